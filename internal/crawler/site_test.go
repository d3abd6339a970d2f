package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	testBase    = "https://site.test"
	testCatalog = "https://site.test/anime"
)

var errNotReady = errors.New("condition not met")

// fakeShow is one show on the fake site. Episodes are labelled "Episode N"
// for N in 1..episodes.
type fakeShow struct {
	path     string
	title    string
	episodes int
	perPage  int      // 0 disables pagination
	variants []string // nil hides the variant control
	noFrame  map[string]bool
	genres   []string // nil shows Action and Adventure
	panics   bool
}

// fakeSite is a single stateful tab over a scripted site. It implements Page.
type fakeSite struct {
	sel   Selectors
	shows []*fakeShow

	heights []int64 // scroll extents, advanced by each scroll command
	scrolls int
	dupe    bool // list the first show twice under a different title

	brokenNav     bool
	menuBroken    bool
	brokenRanges  map[int]bool
	brokenVariant map[string]bool
	lateVariants  bool // the variant control renders only once an episode plays

	url     string
	show    *fakeShow
	page    int
	variant int
	menu    string
	playing int
	clicks  int
}

func newFakeSite(shows ...*fakeShow) *fakeSite {
	return &fakeSite{sel: DefaultSelectors(), shows: shows, heights: []int64{100}}
}

func testTiming() Timing {
	return Timing{
		Navigate:     time.Second,
		Wait:         time.Second,
		Step:         time.Second,
		Probe:        time.Millisecond,
		Player:       20 * time.Millisecond,
		PollInterval: time.Millisecond,
		MaxScrolls:   50,
	}
}

func testOptions(batch int) Options {
	return Options{
		BaseURL:         testBase,
		CatalogURL:      testCatalog,
		BatchLimit:      batch,
		Selectors:       DefaultSelectors(),
		Timing:          testTiming(),
		VariantKeywords: DefaultVariantKeywords,
		AdPatterns:      DefaultAdPatterns,
		PlayingMarker:   "Playing",
	}
}

func episodeLabel(n int) string { return fmt.Sprintf("Episode %d", n) }

func frameSrc(variant string, episode int) string {
	return fmt.Sprintf("https://player.test/%s/%d", strings.ToLower(variant), episode)
}

func (s *fakeShow) ranges() []string {
	if s.perPage == 0 {
		return nil
	}
	var out []string
	for first := 1; first <= s.episodes; first += s.perPage {
		out = append(out, fmt.Sprintf("%d-%d", first, min(first+s.perPage-1, s.episodes)))
	}
	return out
}

func (f *fakeSite) visibleEpisodes() []int {
	if f.show == nil {
		return nil
	}
	first, last := 1, f.show.episodes
	if f.show.perPage > 0 {
		first = f.page*f.show.perPage + 1
		last = min(first+f.show.perPage-1, f.show.episodes)
	}
	var out []int
	for n := first; n <= last; n++ {
		out = append(out, n)
	}
	return out
}

func (f *fakeSite) variantLabel() string {
	if f.show == nil || len(f.show.variants) == 0 {
		return "Default"
	}
	return f.show.variants[f.variant]
}

func (f *fakeSite) present(selector string) bool {
	switch selector {
	case f.sel.ListingItem:
		return f.url == testCatalog
	case f.sel.DetailReady:
		return f.show != nil
	case f.sel.EpisodeItem, f.sel.EpisodeLabel:
		return f.show != nil && f.show.episodes > 0
	case f.sel.PaginationControl:
		return f.show != nil && f.show.perPage > 0
	case f.sel.PaginationMenu, f.sel.VariantMenu:
		return f.menu != ""
	case f.sel.Player:
		return f.playing > 0
	}
	return false
}

func (f *fakeSite) Navigate(_ context.Context, url string, _ time.Duration) error {
	if f.brokenNav {
		return errNotReady
	}
	f.url, f.show, f.page, f.variant, f.menu, f.playing = url, nil, 0, 0, "", 0
	for _, s := range f.shows {
		if testBase+s.path == url {
			if s.panics {
				panic("renderer crashed")
			}
			f.show = s
		}
	}
	return nil
}

func (f *fakeSite) WaitFor(_ context.Context, selector string, state State, _ time.Duration) error {
	if f.present(selector) == (state != Hidden) {
		return nil
	}
	return fmt.Errorf("%w: %s %s", errNotReady, selector, state)
}

func (f *fakeSite) Attribute(_ context.Context, selector, name string) (string, error) {
	if selector == f.sel.Artwork && name == "style" && f.show != nil {
		return `background-image: url("/images/poster.jpg")`, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
}

func (f *fakeSite) Text(_ context.Context, selector string) (string, error) {
	switch {
	case selector == f.sel.Synopsis && f.show != nil:
		return "  A long\n story. ", nil
	case selector == f.sel.PaginationControl && f.present(selector):
		return f.show.ranges()[f.page], nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
}

func (f *fakeSite) All(_ context.Context, selector string) ([]Element, error) {
	var out []Element
	text := func(s string) { out = append(out, Element{Text: s}) }

	switch selector {
	case f.sel.InfoLabels:
		text("TV")
		text("Fall 2004")
	case f.sel.Genres:
		genres := []string{"Action", "Adventure"}
		if f.show != nil && f.show.genres != nil {
			genres = f.show.genres
		}
		for _, g := range genres {
			text(g)
		}
	case f.sel.VariantControl:
		if f.show != nil && f.show.variants != nil && (!f.lateVariants || f.playing > 0) {
			text("Server 1")
			text(f.variantLabel())
		}
	case f.sel.PaginationOption, f.sel.VariantOption:
		switch f.menu {
		case "pagination":
			for _, r := range f.show.ranges() {
				text(r)
			}
		case "variant":
			for _, v := range f.show.variants {
				text(v)
			}
		}
	case f.sel.EpisodeItem:
		for _, n := range f.visibleEpisodes() {
			if n == f.playing {
				text(episodeLabel(n) + "\nPlaying")
			} else {
				text(episodeLabel(n))
			}
		}
	case f.sel.EpisodeLabel:
		for _, n := range f.visibleEpisodes() {
			text(episodeLabel(n))
		}
	case f.sel.PlayerFrame:
		if f.playing > 0 {
			out = append(out, Element{Attrs: map[string]string{"src": "https://disqus.com/embed/comments"}})
			if !f.show.noFrame[fmt.Sprintf("%s/%d", f.variantLabel(), f.playing)] {
				out = append(out, Element{Attrs: map[string]string{"src": frameSrc(f.variantLabel(), f.playing)}})
			}
		}
	}
	return out, nil
}

func (f *fakeSite) Click(_ context.Context, selector string, _ ClickOptions) error {
	if selector == f.sel.PaginationControl && f.present(selector) {
		if !f.menuBroken {
			f.menu = "pagination"
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
}

func (f *fakeSite) ClickNth(_ context.Context, selector string, n int, _ ClickOptions) error {
	switch selector {
	case f.sel.VariantControl:
		f.menu = "variant"
		return nil
	case f.sel.PaginationOption, f.sel.VariantOption:
		switch f.menu {
		case "pagination":
			if f.brokenRanges[n] {
				return errNotReady
			}
			f.page, f.menu = n, ""
			return nil
		case "variant":
			if f.brokenVariant[f.show.variants[n]] {
				return errNotReady
			}
			f.variant, f.menu = n, ""
			return nil
		}
	case f.sel.EpisodeItem, f.sel.EpisodeLabel:
		eps := f.visibleEpisodes()
		if n < len(eps) {
			f.playing = eps[n]
			f.clicks++
			return nil
		}
	}
	return fmt.Errorf("%w: %s[%d]", ErrNoSuchElement, selector, n)
}

func (f *fakeSite) Press(_ context.Context, key string) error {
	if key == KeyEscape {
		f.menu = ""
	}
	return nil
}

func (f *fakeSite) Evaluate(_ context.Context, js string, out any) error {
	switch js {
	case scrollHeightJS:
		*out.(*int64) = f.heights[min(f.scrolls, len(f.heights)-1)]
	case scrollToBottomJS:
		f.scrolls++
	default:
		return fmt.Errorf("unexpected script %q", js)
	}
	return nil
}

func (f *fakeSite) URL(context.Context) (string, error) {
	if f.playing > 0 {
		return fmt.Sprintf("%s/ep-%d", f.url, f.playing), nil
	}
	return f.url, nil
}

func (f *fakeSite) Markup(context.Context) (string, error) {
	var b strings.Builder
	b.WriteString(`<html><body><div class="latest-update">`)
	card := func(href, title string) {
		fmt.Fprintf(&b, `<div class="show-item"><h2 class="show-title"><a href="%s">%s</a></h2><span class="v-chip__content">TV</span></div>`, href, title)
	}
	for _, s := range f.shows {
		card(s.path, s.title)
	}
	if f.dupe && len(f.shows) > 0 {
		card(f.shows[0].path+"/", f.shows[0].title+" (again)")
	}
	b.WriteString(`</div></body></html>`)
	return b.String(), nil
}
