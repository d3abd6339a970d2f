package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/markup"
)

const (
	scrollHeightJS   = `document.body.scrollHeight`
	scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`
)

// Summary is a catalog entry as seen on the listing page.
type Summary struct {
	Identity       string
	Title          string
	EpisodeListURL string
	Artwork        string
	Tags           []string
}

// Discoverer exhausts the infinite-scroll catalog listing.
type Discoverer struct {
	catalogURL string
	baseURL    string
	sel        Selectors
	timing     Timing
}

// NewDiscoverer creates a Discoverer for the catalog at catalogURL. Relative
// links resolve against baseURL.
func NewDiscoverer(catalogURL, baseURL string, sel Selectors, timing Timing) *Discoverer {
	return &Discoverer{catalogURL: catalogURL, baseURL: baseURL, sel: sel, timing: timing}
}

// Discover returns the catalog in listing order, deduplicated by identity.
// Failures are logged and yield an empty result.
func (d *Discoverer) Discover(ctx context.Context, page Page) []Summary {
	summaries, err := d.discover(ctx, page)
	if err != nil {
		slog.WarnContext(ctx, "catalog discovery failed", "url", d.catalogURL, "error", err)
		return nil
	}
	return summaries
}

func (d *Discoverer) discover(ctx context.Context, page Page) ([]Summary, error) {
	if err := page.Navigate(ctx, d.catalogURL, d.timing.Navigate); err != nil {
		return nil, fmt.Errorf("navigating to catalog: %w", err)
	}
	if err := page.WaitFor(ctx, d.sel.ListingItem, Attached, d.timing.Wait); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryTimeout, err)
	}

	scrolls, err := d.scrollToEnd(ctx, page)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "catalog fully scrolled", "scrolls", scrolls)

	html, err := page.Markup(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog markup: %w", err)
	}
	return d.parse(ctx, html)
}

// scrollToEnd scrolls until the document height stops growing between two
// consecutive reads, pausing after each scroll for lazy content to land.
func (d *Discoverer) scrollToEnd(ctx context.Context, page Page) (int, error) {
	var last int64
	if err := page.Evaluate(ctx, scrollHeightJS, &last); err != nil {
		return 0, fmt.Errorf("measuring scroll height: %w", err)
	}

	for scrolls := 1; ; scrolls++ {
		if err := page.Evaluate(ctx, scrollToBottomJS, nil); err != nil {
			return scrolls, fmt.Errorf("scrolling: %w", err)
		}
		if err := sleep(ctx, d.timing.ScrollSettle); err != nil {
			return scrolls, err
		}

		var height int64
		if err := page.Evaluate(ctx, scrollHeightJS, &height); err != nil {
			return scrolls, fmt.Errorf("measuring scroll height: %w", err)
		}
		slog.DebugContext(ctx, "scrolled catalog", "height", height, "previous", last)
		if height == last {
			return scrolls, nil
		}
		last = height

		if scrolls >= d.timing.MaxScrolls {
			slog.WarnContext(ctx, "catalog still growing at scroll limit, stopping", "scrolls", scrolls)
			return scrolls, nil
		}
	}
}

func (d *Discoverer) parse(ctx context.Context, html string) ([]Summary, error) {
	rules := []markup.Rule{
		{Name: "title", Selector: d.sel.ListingTitle},
		{Name: "href", Selector: d.sel.ListingTitle, Attr: "href"},
	}
	if d.sel.ListingEpisode != "" {
		rules = append(rules, markup.Rule{Name: "episode", Selector: d.sel.ListingEpisode, Attr: "href"})
	}
	if d.sel.ListingPoster != "" {
		rules = append(rules, markup.Rule{Name: "poster", Selector: d.sel.ListingPoster, Attr: "style", Transform: markup.StyleURL})
	}
	if d.sel.ListingTags != "" {
		rules = append(rules, markup.Rule{Name: "tags", Selector: d.sel.ListingTags, Multiple: true})
	}

	records, err := markup.Extract(html, d.sel.ListingItem, rules)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for i, rec := range records {
		title, href := rec.First("title"), rec.First("href")
		if title == "" || href == "" {
			slog.DebugContext(ctx, "skipping listing entry without title or link", "position", i)
			continue
		}
		identity, err := catalog.Canonical(d.baseURL, href)
		if err != nil {
			slog.WarnContext(ctx, "skipping listing entry with invalid link", "title", title, "href", href, "error", err)
			continue
		}

		listURL := identity
		if ep := rec.First("episode"); ep != "" {
			listURL = catalog.Resolve(d.baseURL, ep)
		}

		artwork := rec.First("poster")
		if artwork != "" {
			artwork = catalog.Resolve(d.baseURL, artwork)
		}

		summaries = append(summaries, Summary{
			Identity:       identity,
			Title:          title,
			EpisodeListURL: listURL,
			Artwork:        artwork,
			Tags:           rec["tags"],
		})
	}

	unique := lo.UniqBy(summaries, func(s Summary) string { return s.Identity })
	slog.InfoContext(ctx, "catalog discovered", "entries", len(records), "items", len(unique))
	return unique, nil
}
