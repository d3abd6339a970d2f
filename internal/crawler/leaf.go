package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/stupside/showcrawl/internal/markup"
)

// Leaf is the outcome of selecting one episode: the player's embed source,
// if any, and the page URL after selection.
type Leaf struct {
	Reference mo.Option[string]
	URL       string
}

// LeafFetcher selects an episode and reads the embedded player's source.
type LeafFetcher struct {
	sel     Selectors
	timing  Timing
	ads     []*regexp.Regexp
	playing string
}

// NewLeafFetcher creates a LeafFetcher. Frames whose source matches any of
// adPatterns are never returned. An episode item whose text contains
// playingMarker is already loaded and is not clicked again.
func NewLeafFetcher(sel Selectors, timing Timing, adPatterns []string, playingMarker string) (*LeafFetcher, error) {
	ads := make([]*regexp.Regexp, 0, len(adPatterns))
	for _, p := range adPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling ad pattern %q: %w", p, err)
		}
		ads = append(ads, re)
	}
	return &LeafFetcher{sel: sel, timing: timing, ads: ads, playing: playingMarker}, nil
}

// Fetch selects the episode labelled label on the current page and returns
// the source of the first qualifying player frame. No qualifying frame within
// the player budget is reported as an absent Reference, not an error.
func (f *LeafFetcher) Fetch(ctx context.Context, page Page, label string) (Leaf, error) {
	labels, err := texts(ctx, page, f.sel.EpisodeLabel)
	if err != nil {
		return Leaf{}, fmt.Errorf("reading episode labels: %w", err)
	}
	labels = lo.Map(labels, func(l string, _ int) string { return markup.CleanText(l) })
	n := indexOfLabel(labels, label)
	if n < 0 {
		return Leaf{}, fmt.Errorf("%w: episode %q", ErrNoSuchElement, label)
	}

	previous := f.source(ctx, page)

	clicked, err := f.choose(ctx, page, n, len(labels))
	if err != nil {
		return Leaf{}, fmt.Errorf("selecting episode %q: %w", label, err)
	}

	leaf := Leaf{Reference: mo.None[string]()}
	if err := page.WaitFor(ctx, f.sel.Player, Attached, f.timing.Player); err != nil {
		slog.DebugContext(ctx, "player did not appear", "episode", label, "error", err)
	} else if src, ok := f.await(ctx, page, previous, clicked); ok {
		leaf.Reference = mo.Some(src)
	}

	if u, err := page.URL(ctx); err == nil {
		leaf.URL = u
	} else {
		slog.DebugContext(ctx, "reading episode url failed", "episode", label, "error", err)
	}
	return leaf, nil
}

// choose clicks the nth episode unless it is already playing. It reports
// whether a click happened.
func (f *LeafFetcher) choose(ctx context.Context, page Page, n, labels int) (bool, error) {
	items, err := page.All(ctx, f.sel.EpisodeItem)
	if err != nil || len(items) != labels {
		// Item and label counts disagree; the label chip is clickable too.
		return true, page.ClickNth(ctx, f.sel.EpisodeLabel, n, ClickOptions{Timeout: f.timing.Step})
	}
	if f.playing != "" && containsFold(items[n].Text, f.playing) {
		return false, nil
	}
	return true, page.ClickNth(ctx, f.sel.EpisodeItem, n, ClickOptions{Timeout: f.timing.Step})
}

// await polls the player frames until one qualifies. After a click the frame
// that was showing before is only accepted once the budget runs out.
func (f *LeafFetcher) await(ctx context.Context, page Page, previous string, clicked bool) (string, bool) {
	deadline := time.Now().Add(f.timing.Player)
	for {
		src := f.source(ctx, page)
		if src != "" && (!clicked || src != previous) {
			return src, true
		}
		if !time.Now().Before(deadline) {
			return src, src != ""
		}
		if err := sleep(ctx, f.timing.PollInterval); err != nil {
			return "", false
		}
	}
}

// source returns the first non-empty, non-advertising frame source.
func (f *LeafFetcher) source(ctx context.Context, page Page) string {
	frames, err := page.All(ctx, f.sel.PlayerFrame)
	if err != nil {
		return ""
	}
	for _, fr := range frames {
		if src := fr.Attrs["src"]; src != "" && !f.advert(src) {
			return src
		}
	}
	return ""
}

func (f *LeafFetcher) advert(src string) bool {
	return lo.SomeBy(f.ads, func(re *regexp.Regexp) bool { return re.MatchString(src) })
}
