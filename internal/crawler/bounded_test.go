package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBounded(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	var fellBack bool
	fallback := func(context.Context) { fellBack = true }

	err := bounded(ctx, time.Second, func(context.Context, time.Duration) error { return nil }, fallback)
	assert.NoError(t, err)
	assert.False(t, fellBack)

	var got time.Duration
	err = bounded(ctx, 3*time.Second, func(_ context.Context, timeout time.Duration) error {
		got = timeout
		return boom
	}, fallback)
	assert.ErrorIs(t, err, boom)
	assert.True(t, fellBack)
	assert.Equal(t, 3*time.Second, got)
}

func TestBoundedSkipsFallbackWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := bounded(ctx, time.Second, func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}, func(context.Context) { called = true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestIndexOfLabel(t *testing.T) {
	labels := []string{"Episode 1", "Episode 10", "Sub (Japanese)"}

	assert.Equal(t, 0, indexOfLabel(labels, "Episode 1"))
	assert.Equal(t, 1, indexOfLabel(labels, " Episode 10 "))
	assert.Equal(t, 2, indexOfLabel(labels, "japanese"))
	assert.Equal(t, -1, indexOfLabel(labels, "Dub"))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), 0))
}
