package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// step is one UI interaction bounded by timeout.
type step func(ctx context.Context, timeout time.Duration) error

// bounded runs s with timeout. When it fails, fallback (if any) restores a
// known UI state before the error is returned to the caller.
func bounded(ctx context.Context, timeout time.Duration, s step, fallback func(ctx context.Context)) error {
	err := s(ctx, timeout)
	if err == nil {
		return nil
	}
	if fallback != nil && ctx.Err() == nil {
		fallback(ctx)
	}
	return err
}

// dismiss returns a fallback that presses Escape to close whatever menu is open.
func dismiss(page Page) func(ctx context.Context) {
	return func(ctx context.Context) {
		if err := page.Press(ctx, KeyEscape); err != nil {
			slog.DebugContext(ctx, "dismiss keystroke failed", "error", err)
		}
	}
}

// sleep pauses for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// texts returns the trimmed text of every element matching selector.
func texts(ctx context.Context, page Page, selector string) ([]string, error) {
	els, err := page.All(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		out = append(out, strings.TrimSpace(el.Text))
	}
	return out, nil
}

// clickText clicks the first element matching selector whose trimmed text
// equals label, falling back to the first case-insensitive containment match.
func clickText(ctx context.Context, page Page, selector, label string, timeout time.Duration) error {
	labels, err := texts(ctx, page, selector)
	if err != nil {
		return err
	}
	n := indexOfLabel(labels, label)
	if n < 0 {
		return fmt.Errorf("%w: %q in %s", ErrNoSuchElement, label, selector)
	}
	return page.ClickNth(ctx, selector, n, ClickOptions{Timeout: timeout})
}

func indexOfLabel(labels []string, label string) int {
	label = strings.TrimSpace(label)
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	for i, l := range labels {
		if containsFold(l, label) {
			return i
		}
	}
	return -1
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
