package crawler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/markup"
)

// EpisodeRef is an episode label and the pagination option it was listed
// under. Page is empty when the list is not paginated.
type EpisodeRef struct {
	Label string
	Page  string
}

// Index returns the numeric index derived from the label.
func (r EpisodeRef) Index() (int, bool) {
	return catalog.EpisodeIndex(r.Label)
}

var errNoPagination = errors.New("no pagination control")

// Paginator enumerates episodes across the page ranges of a dropdown-driven
// episode list. The dropdown moves through closed → open → settled: a closed
// menu alone never means the list below it has re-rendered.
type Paginator struct {
	sel    Selectors
	timing Timing
}

// NewPaginator creates a Paginator.
func NewPaginator(sel Selectors, timing Timing) *Paginator {
	return &Paginator{sel: sel, timing: timing}
}

// Enumerate opens listURL and collects every episode of every page range,
// ordered by index. A page range that cannot be reached is logged and
// skipped; labels without an index are dropped.
func (p *Paginator) Enumerate(ctx context.Context, page Page, listURL string) ([]EpisodeRef, error) {
	if err := p.Open(ctx, page, listURL); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	var refs []EpisodeRef
	scrape := func(option string) {
		labels, err := texts(ctx, page, p.sel.EpisodeLabel)
		if err != nil {
			slog.WarnContext(ctx, "reading episode labels failed", "url", listURL, "page", option, "error", err)
			return
		}
		for _, label := range labels {
			label = markup.CleanText(label)
			idx, ok := catalog.EpisodeIndex(label)
			if !ok {
				slog.DebugContext(ctx, "ignoring episode label without index", "url", listURL, "episode", label)
				continue
			}
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			refs = append(refs, EpisodeRef{Label: label, Page: option})
		}
	}

	options, current, err := p.options(ctx, page)
	switch {
	case errors.Is(err, errNoPagination):
		scrape("")
	case err != nil:
		slog.WarnContext(ctx, "pagination unavailable, scraping current page only", "url", listURL, "error", err)
		scrape("")
	default:
		for _, opt := range options {
			if !sameLabel(current, opt) {
				if err := p.switchTo(ctx, page, opt); err != nil {
					slog.WarnContext(ctx, "switching episode page failed, skipping", "url", listURL, "page", opt, "error", err)
					continue
				}
				current = opt
			}
			scrape(opt)
		}
	}

	sortRefs(refs)
	slog.DebugContext(ctx, "episodes enumerated", "url", listURL, "pages", len(options), "episodes", len(refs))
	return refs, nil
}

// Open navigates to listURL, enters the episode list when the site hides it
// behind a "watch" control, and waits for episode items.
func (p *Paginator) Open(ctx context.Context, page Page, listURL string) error {
	if err := page.Navigate(ctx, listURL, p.timing.Navigate); err != nil {
		return fmt.Errorf("navigating to episode list: %w", err)
	}
	if p.sel.EnterEpisodes != "" {
		if err := page.WaitFor(ctx, p.sel.EnterEpisodes, Visible, p.timing.Probe); err == nil {
			if err := page.Click(ctx, p.sel.EnterEpisodes, ClickOptions{Timeout: p.timing.Step}); err != nil {
				slog.DebugContext(ctx, "clicking episode list entry failed", "url", listURL, "error", err)
			}
		}
	}
	if err := page.WaitFor(ctx, p.sel.EpisodeItem, Attached, p.timing.Wait); err != nil {
		return fmt.Errorf("%w: %w", ErrNoEpisodes, err)
	}
	return nil
}

// Goto selects the page range option unless it is already selected.
func (p *Paginator) Goto(ctx context.Context, page Page, option string) error {
	if option == "" {
		return nil
	}
	current, err := page.Text(ctx, p.sel.PaginationControl)
	if err == nil && sameLabel(current, option) {
		return nil
	}
	return p.switchTo(ctx, page, option)
}

// options opens the pagination menu once, reads every page range label and
// closes it again. It returns the currently selected label too.
func (p *Paginator) options(ctx context.Context, page Page) ([]string, string, error) {
	if err := page.WaitFor(ctx, p.sel.PaginationControl, Visible, p.timing.Probe); err != nil {
		return nil, "", errNoPagination
	}
	current, err := page.Text(ctx, p.sel.PaginationControl)
	if err != nil {
		return nil, "", fmt.Errorf("reading current page range: %w", err)
	}

	if err := bounded(ctx, p.timing.Step, p.openMenu(page), dismiss(page)); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMenuOpenTimeout, err)
	}

	labels, err := texts(ctx, page, p.sel.PaginationOption)
	p.closeMenu(ctx, page)
	if err != nil {
		return nil, "", fmt.Errorf("reading page ranges: %w", err)
	}

	options := lo.Compact(lo.Map(labels, func(l string, _ int) string { return markup.CleanText(l) }))
	return options, markup.CleanText(current), nil
}

func (p *Paginator) openMenu(page Page) step {
	return func(ctx context.Context, timeout time.Duration) error {
		if err := page.Click(ctx, p.sel.PaginationControl, ClickOptions{Timeout: timeout}); err != nil {
			return err
		}
		return page.WaitFor(ctx, p.sel.PaginationMenu, Visible, timeout)
	}
}

func (p *Paginator) closeMenu(ctx context.Context, page Page) {
	if err := page.Press(ctx, KeyEscape); err != nil {
		slog.DebugContext(ctx, "closing pagination menu failed", "error", err)
		return
	}
	if err := page.WaitFor(ctx, p.sel.PaginationMenu, Hidden, p.timing.Step); err != nil {
		slog.DebugContext(ctx, "pagination menu still open", "error", err)
	}
}

// switchTo selects option and waits until the menu is closed and the
// episode items are attached again.
func (p *Paginator) switchTo(ctx context.Context, page Page, option string) error {
	return bounded(ctx, p.timing.Step, func(ctx context.Context, timeout time.Duration) error {
		if err := p.openMenu(page)(ctx, timeout); err != nil {
			return fmt.Errorf("opening menu: %w", err)
		}
		if err := clickText(ctx, page, p.sel.PaginationOption, option, timeout); err != nil {
			return fmt.Errorf("choosing %q: %w", option, err)
		}
		if err := page.WaitFor(ctx, p.sel.PaginationMenu, Hidden, timeout); err != nil {
			return fmt.Errorf("waiting for menu to close: %w", err)
		}
		if err := page.WaitFor(ctx, p.sel.EpisodeItem, Attached, timeout); err != nil {
			return fmt.Errorf("waiting for episodes: %w", err)
		}
		return sleep(ctx, p.timing.PageSettle)
	}, dismiss(page))
}

// sameLabel reports whether a control showing current has option selected.
func sameLabel(current, option string) bool {
	current, option = strings.TrimSpace(current), strings.TrimSpace(option)
	if current == "" || option == "" {
		return false
	}
	return current == option || containsFold(current, option)
}

func sortRefs(refs []EpisodeRef) {
	slices.SortStableFunc(refs, func(a, b EpisodeRef) int {
		ai, _ := a.Index()
		bi, _ := b.Index()
		return cmp.Compare(ai, bi)
	})
}
