package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/stupside/showcrawl/internal/catalog"
)

// brokenText fails reading the text of one selector.
type brokenText struct {
	*fakeSite
	selector string
}

func (b brokenText) Text(ctx context.Context, selector string) (string, error) {
	if selector == b.selector {
		return "", errors.New("detached node")
	}
	return b.fakeSite.Text(ctx, selector)
}

func newTestDetailFetcher() *DetailFetcher {
	return NewDetailFetcher(testBase, DefaultSelectors(), testTiming())
}

func TestDetailFetch(t *testing.T) {
	site := newFakeSite(&fakeShow{path: "/anime/one-piece", title: "One Piece"})

	got := newTestDetailFetcher().Fetch(context.Background(), site, testBase+"/anime/one-piece")

	want := catalog.Metadata{
		Artwork:     "https://site.test/images/poster.jpg",
		Synopsis:    "A long story.",
		Type:        "TV",
		ReleaseYear: "2004",
		Genres:      []string{"Action", "Adventure"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetailFetchToleratesFieldFailure(t *testing.T) {
	site := newFakeSite(&fakeShow{path: "/anime/one-piece", title: "One Piece"})
	page := brokenText{fakeSite: site, selector: site.sel.Synopsis}

	got := newTestDetailFetcher().Fetch(context.Background(), page, testBase+"/anime/one-piece")

	assert.Equal(t, catalog.Unknown, got.Synopsis)
	assert.Equal(t, []string{"Action", "Adventure"}, got.Genres)
	assert.Equal(t, "TV", got.Type)
}

func TestDetailFetchKeepsRepeatedGenres(t *testing.T) {
	site := newFakeSite(&fakeShow{
		path:   "/anime/one-piece",
		title:  "One Piece",
		genres: []string{"Action", "", "Comedy", "Action"},
	})

	got := newTestDetailFetcher().Fetch(context.Background(), site, testBase+"/anime/one-piece")

	assert.Equal(t, []string{"Action", "Comedy", "Action"}, got.Genres)
}

func TestDetailFetchUnreachable(t *testing.T) {
	site := newFakeSite()
	site.brokenNav = true

	got := newTestDetailFetcher().Fetch(context.Background(), site, testBase+"/anime/one-piece")

	if diff := cmp.Diff(catalog.NewMetadata(), got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchTypeAndYear(t *testing.T) {
	labels := []string{"Spring 1999", "movie", "TV", "2001"}
	assert.Equal(t, "Movie", matchType(labels))
	assert.Equal(t, "1999", matchYear(labels))

	assert.Equal(t, catalog.Unknown, matchType([]string{"Series"}))
	assert.Equal(t, catalog.Unknown, matchYear([]string{"12 episodes"}))
}
