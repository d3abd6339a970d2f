package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeafFetcher(t *testing.T) *LeafFetcher {
	t.Helper()
	f, err := NewLeafFetcher(DefaultSelectors(), testTiming(), DefaultAdPatterns, "Playing")
	require.NoError(t, err)
	return f
}

func TestLeafFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("skips advertising frames", func(t *testing.T) {
		site := openShow(t, &fakeShow{path: "/anime/x", episodes: 3})

		leaf, err := newTestLeafFetcher(t).Fetch(ctx, site, "Episode 2")

		require.NoError(t, err)
		src, ok := leaf.Reference.Get()
		require.True(t, ok)
		assert.Equal(t, frameSrc("Default", 2), src)
		assert.Equal(t, testBase+"/anime/x/ep-2", leaf.URL)
	})

	t.Run("playing episode is not clicked again", func(t *testing.T) {
		site := openShow(t, &fakeShow{path: "/anime/x", episodes: 3})
		f := newTestLeafFetcher(t)

		_, err := f.Fetch(ctx, site, "Episode 1")
		require.NoError(t, err)
		leaf, err := f.Fetch(ctx, site, "Episode 1")
		require.NoError(t, err)

		assert.Equal(t, 1, site.clicks)
		assert.Equal(t, frameSrc("Default", 1), leaf.Reference.OrEmpty())
	})

	t.Run("missing frame is not an error", func(t *testing.T) {
		site := openShow(t, &fakeShow{path: "/anime/x", episodes: 3, noFrame: map[string]bool{"Default/3": true}})

		leaf, err := newTestLeafFetcher(t).Fetch(ctx, site, "Episode 3")

		require.NoError(t, err)
		assert.True(t, leaf.Reference.IsAbsent())
	})

	t.Run("unknown label", func(t *testing.T) {
		site := openShow(t, &fakeShow{path: "/anime/x", episodes: 3})

		_, err := newTestLeafFetcher(t).Fetch(ctx, site, "Episode 9")

		assert.True(t, errors.Is(err, ErrNoSuchElement))
	})
}

func TestNewLeafFetcherRejectsBadPattern(t *testing.T) {
	_, err := NewLeafFetcher(DefaultSelectors(), testTiming(), []string{"("}, "")
	assert.Error(t, err)
}
