package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/markup"
)

// VariantResolver lists and switches the language/track variants offered by
// the player's variant dropdown.
type VariantResolver struct {
	sel      Selectors
	timing   Timing
	keywords []string
}

// NewVariantResolver creates a VariantResolver. The variant dropdown is the
// first candidate control whose text contains one of keywords.
func NewVariantResolver(sel Selectors, timing Timing, keywords []string) *VariantResolver {
	return &VariantResolver{sel: sel, timing: timing, keywords: keywords}
}

// control locates the variant dropdown among the candidate controls.
func (r *VariantResolver) control(ctx context.Context, page Page) (int, string, bool) {
	els, err := page.All(ctx, r.sel.VariantControl)
	if err != nil {
		slog.DebugContext(ctx, "reading variant controls failed", "error", err)
		return 0, "", false
	}
	for i, el := range els {
		text := markup.CleanText(el.Text)
		if lo.SomeBy(r.keywords, func(k string) bool { return containsFold(text, k) }) {
			return i, text, true
		}
	}
	return 0, "", false
}

// List returns the variant labels in menu order. Without a variant control
// the only variant is catalog.DefaultVariant.
func (r *VariantResolver) List(ctx context.Context, page Page) []string {
	n, current, ok := r.control(ctx, page)
	if !ok {
		return []string{catalog.DefaultVariant}
	}

	if err := bounded(ctx, r.timing.Step, r.openMenu(page, n), dismiss(page)); err != nil {
		slog.WarnContext(ctx, "variant menu did not open, using current variant", "variant", current, "error", err)
		return []string{current}
	}

	labels, err := texts(ctx, page, r.sel.VariantOption)
	if err := page.Press(ctx, KeyEscape); err != nil {
		slog.DebugContext(ctx, "closing variant menu failed", "error", err)
	}
	if err := page.WaitFor(ctx, r.sel.VariantMenu, Hidden, r.timing.Step); err != nil {
		slog.DebugContext(ctx, "variant menu still open", "error", err)
	}
	if err != nil {
		slog.WarnContext(ctx, "reading variant options failed, using current variant", "variant", current, "error", err)
		return []string{current}
	}

	labels = lo.Uniq(lo.FilterMap(labels, func(l string, _ int) (string, bool) {
		l = markup.CleanText(l)
		return l, l != ""
	}))
	if len(labels) == 0 {
		return []string{current}
	}
	return labels
}

// Select makes label the active variant. It succeeds without interaction when
// label is catalog.DefaultVariant or the control already shows label. On
// failure the menu is dismissed and false
// is returned.
func (r *VariantResolver) Select(ctx context.Context, page Page, label string) bool {
	// The implicit variant means whatever is active, even when a control
	// shows up after playback starts.
	if label == catalog.DefaultVariant {
		return true
	}
	n, current, ok := r.control(ctx, page)
	if !ok {
		return false
	}
	if containsFold(current, label) {
		return true
	}

	err := bounded(ctx, r.timing.Step, func(ctx context.Context, timeout time.Duration) error {
		if err := r.openMenu(page, n)(ctx, timeout); err != nil {
			return fmt.Errorf("opening menu: %w", err)
		}
		if err := clickText(ctx, page, r.sel.VariantOption, label, timeout); err != nil {
			return fmt.Errorf("choosing %q: %w", label, err)
		}
		// The menu closes before the player reloads; only the loader going
		// away means the new variant is in place.
		_ = page.WaitFor(ctx, r.sel.Loading, Attached, r.timing.Probe)
		if err := page.WaitFor(ctx, r.sel.Loading, Hidden, r.timing.Player); err != nil {
			return fmt.Errorf("waiting for player to reload: %w", err)
		}
		return nil
	}, dismiss(page))
	if err != nil {
		slog.WarnContext(ctx, "switching variant failed", "variant", label, "current", current, "error", err)
		return false
	}
	return true
}

func (r *VariantResolver) openMenu(page Page, n int) step {
	return func(ctx context.Context, timeout time.Duration) error {
		if err := page.ClickNth(ctx, r.sel.VariantControl, n, ClickOptions{Timeout: timeout}); err != nil {
			return err
		}
		return page.WaitFor(ctx, r.sel.VariantMenu, Visible, timeout)
	}
}
