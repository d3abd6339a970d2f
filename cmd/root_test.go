package cmd

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	assert.Equal(t, "", resolveConfigPath(ctx, fs, defaultConfigPath, false))
	assert.Equal(t, "custom.yaml", resolveConfigPath(ctx, fs, "custom.yaml", true), "an explicit file is kept even when absent")

	require.NoError(t, afero.WriteFile(fs, defaultConfigPath, []byte("crawl:\n  workers: 2\n"), 0o644))
	assert.Equal(t, defaultConfigPath, resolveConfigPath(ctx, fs, defaultConfigPath, false))
}

func TestCrawlRejectsOutOfRangeFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too many workers", []string{"--workers", "64"}},
		{"no workers", []string{"--workers", "0"}},
		{"negative batch limit", []string{"--batch-limit=-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"showcrawl", "crawl", "--store", t.TempDir() + "/catalog.json"}, tt.args...)
			err := Root().Run(context.Background(), args)
			assert.ErrorContains(t, err, "validating config")
		})
	}
}
