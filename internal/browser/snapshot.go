package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"

	"github.com/stupside/showcrawl/internal/action"
)

const (
	snapshotTimeout = 15 * time.Second
	maxNameLen      = 80
)

// Snapshot writes a screenshot and the rendered HTML of the current page
// under the snapshot directory, in a folder named after the page URL. It only
// runs when debug logging is enabled and never fails the caller.
func (s *Session) Snapshot(ctx context.Context, label string) {
	if s.cfg.SnapshotDir == "" || !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	var current string
	_ = s.run(ctx, snapshotTimeout, func(tab context.Context) (err error) {
		current, err = action.Location(tab)
		return err
	})

	dir := filepath.Join(s.cfg.SnapshotDir, sanitize(current))
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		slog.DebugContext(ctx, "snapshot: mkdir failed", "error", err)
		return
	}
	prefix := filepath.Join(dir, fmt.Sprintf("%s_%d", sanitize(label), time.Now().UnixMilli()))

	var png []byte
	err := s.run(ctx, snapshotTimeout, func(tab context.Context) error {
		return chromedp.Run(tab, chromedp.FullScreenshot(&png, 90))
	})
	if err != nil {
		slog.DebugContext(ctx, "snapshot: screenshot failed", "label", label, "error", err)
	} else if err := afero.WriteFile(s.fs, prefix+".png", png, 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write png failed", "error", err)
	}

	html, err := s.Markup(ctx)
	if err != nil {
		slog.DebugContext(ctx, "snapshot: html failed", "label", label, "error", err)
	} else if err := afero.WriteFile(s.fs, prefix+".html", []byte(html), 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write html failed", "error", err)
	}

	slog.DebugContext(ctx, "snapshot: saved", "label", label, "path", prefix)
}

// sanitize turns a URL or label into a safe file name.
func sanitize(raw string) string {
	s := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		s = u.Host + u.Path
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '?', '*', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, strings.Trim(s, "/"))
	if s == "" {
		return "unknown"
	}
	if len(s) > maxNameLen {
		cut := maxNameLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}
