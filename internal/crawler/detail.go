package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/markup"
)

// showTypes is the closed set of classification labels, in match priority.
var showTypes = []string{"TV", "Movie", "OVA", "ONA", "Special"}

var yearToken = regexp.MustCompile(`\b(\d{4})\b`)

// DetailFetcher reads a show's descriptive metadata from its detail page.
type DetailFetcher struct {
	baseURL string
	sel     Selectors
	timing  Timing
}

// NewDetailFetcher creates a DetailFetcher.
func NewDetailFetcher(baseURL string, sel Selectors, timing Timing) *DetailFetcher {
	return &DetailFetcher{baseURL: baseURL, sel: sel, timing: timing}
}

// Fetch extracts the metadata block of detailURL. Each field is extracted
// independently; anything that fails stays catalog.Unknown. An unreachable
// page yields an all-unknown block.
func (f *DetailFetcher) Fetch(ctx context.Context, page Page, detailURL string) catalog.Metadata {
	md := catalog.NewMetadata()

	if err := page.Navigate(ctx, detailURL, f.timing.Navigate); err != nil {
		slog.WarnContext(ctx, "detail page unreachable", "url", detailURL, "error", err)
		return md
	}
	if err := page.WaitFor(ctx, f.sel.DetailReady, Attached, f.timing.Wait); err != nil {
		slog.WarnContext(ctx, "detail page did not render", "url", detailURL, "error", err)
		return md
	}

	field := func(name string, extract func() error) {
		if err := extract(); err != nil {
			slog.WarnContext(ctx, "metadata field unavailable", "url", detailURL, "field", name, "error", err)
		}
	}

	field("synopsis", func() error {
		if f.sel.Synopsis == "" {
			return nil
		}
		text, err := page.Text(ctx, f.sel.Synopsis)
		if err != nil {
			return err
		}
		if text = markup.CleanText(text); text != "" {
			md.Synopsis = text
		}
		return nil
	})

	var labels []string
	field("labels", func() error {
		if f.sel.InfoLabels == "" {
			return nil
		}
		var err error
		labels, err = texts(ctx, page, f.sel.InfoLabels)
		return err
	})
	md.Type = matchType(labels)
	md.ReleaseYear = matchYear(labels)

	field("genres", func() error {
		if f.sel.Genres == "" {
			return nil
		}
		genres, err := texts(ctx, page, f.sel.Genres)
		if err != nil {
			return err
		}
		md.Genres = lo.Compact(genres)
		return nil
	})

	field("artwork", func() error {
		if f.sel.Artwork == "" {
			return nil
		}
		attr := f.sel.ArtworkAttr
		if attr == "" {
			attr = "src"
		}
		v, err := page.Attribute(ctx, f.sel.Artwork, attr)
		if err != nil {
			return err
		}
		if attr == "style" {
			v = markup.StyleURL(v)
		}
		if v == "" {
			return fmt.Errorf("empty %s attribute", attr)
		}
		md.Artwork = catalog.Resolve(f.baseURL, v)
		return nil
	})

	return md
}

// matchType returns the first label equal to a known show type.
func matchType(labels []string) string {
	for _, l := range labels {
		for _, t := range showTypes {
			if strings.EqualFold(strings.TrimSpace(l), t) {
				return t
			}
		}
	}
	return catalog.Unknown
}

// matchYear returns the first four-digit token found among labels.
func matchYear(labels []string) string {
	for _, l := range labels {
		if m := yearToken.FindStringSubmatch(l); m != nil {
			return m[1]
		}
	}
	return catalog.Unknown
}
