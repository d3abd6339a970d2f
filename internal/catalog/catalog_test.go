package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpisodeIndex(t *testing.T) {
	testCases := []struct {
		label string
		want  int
		ok    bool
	}{
		{label: "Episode 12", want: 12, ok: true},
		{label: "Ep. 05", want: 5, ok: true},
		{label: "  EP 7  ", want: 7, ok: true},
		{label: "Episode 3 (Playing)", want: 3, ok: true},
		{label: "Season 2 Episode 14", want: 14, ok: true},
		{label: "Special", ok: false},
		{label: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			got, ok := EpisodeIndex(tc.label)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDifferentLabelsShareIndex(t *testing.T) {
	a, _ := EpisodeIndex("Episode 5")
	b, _ := EpisodeIndex("Ep. 05")
	assert.Equal(t, a, b)
}

func TestSortEpisodes(t *testing.T) {
	eps := []Episode{
		{Label: "Episode 10"},
		{Label: "Preview"},
		{Label: "Episode 2"},
		{Label: "Episode 1"},
	}
	SortEpisodes(eps)

	labels := make([]string, len(eps))
	for i, ep := range eps {
		labels[i] = ep.Label
	}
	assert.Equal(t, []string{"Episode 1", "Episode 2", "Episode 10", "Preview"}, labels)
}

func TestAddSourceKeepsVariantsUnique(t *testing.T) {
	var ep Episode
	assert.True(t, ep.AddSource(Source{Variant: "Japanese (SUB)", Reference: "https://a"}))
	assert.False(t, ep.AddSource(Source{Variant: "Japanese (SUB)", Reference: "https://b"}))
	assert.True(t, ep.AddSource(Source{Variant: "English (DUB)", Reference: "https://c"}))

	require.Len(t, ep.Sources, 2)
	assert.Equal(t, "https://a", ep.Sources[0].Reference)
}

func TestCanonical(t *testing.T) {
	testCases := []struct {
		href string
		want string
	}{
		{href: "/one-piece-0948", want: "https://kickass.example/one-piece-0948"},
		{href: "/one-piece-0948/?ref=home#top", want: "https://kickass.example/one-piece-0948"},
		{href: "https://KICKASS.example/bleach/", want: "https://kickass.example/bleach"},
	}

	for _, tc := range testCases {
		got, err := Canonical("https://kickass.example/", tc.href)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.href)
	}
}

func TestNewMetadataIsUnknown(t *testing.T) {
	md := NewMetadata()
	assert.Equal(t, Unknown, md.Synopsis)
	assert.Equal(t, Unknown, md.Type)
	assert.Equal(t, Unknown, md.ReleaseYear)
	assert.Equal(t, Unknown, md.Artwork)
	assert.NotNil(t, md.Genres)
	assert.Empty(t, md.Genres)
}

func TestItemIndexes(t *testing.T) {
	it := Item{Episodes: []Episode{{Label: "Episode 1"}, {Label: "Ep 03"}, {Label: "Trailer"}}}
	assert.Equal(t, map[int]struct{}{1: {}, 3: {}}, it.Indexes())
}
