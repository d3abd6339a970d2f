package action

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// targetAttr marks the element picked by ClickNth so chromedp can address it
// with a plain attribute selector.
const targetAttr = "data-showcrawl-target"

//go:embed js/mark_nth.js
var markNthJS string

//go:embed js/force_click.js
var forceClickJS string

// ErrNoElement is returned when a click target does not exist.
var ErrNoElement = errors.New("element not found")

// Click clicks at the given viewport coordinates.
func Click(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.MouseClickXY(x, y, chromedp.ButtonLeft))
}

// ClickNth clicks the nth element matching selector. A forced click is
// dispatched from script and does not wait for the element to be visible.
func ClickNth(ctx context.Context, selector string, n int, force bool) error {
	var marked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(call(markNthJS, selector, n, targetAttr), &marked)); err != nil {
		return fmt.Errorf("marking %s[%d]: %w", selector, n, err)
	}
	if !marked {
		return fmt.Errorf("%w: %s[%d]", ErrNoElement, selector, n)
	}

	if force {
		var clicked bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(call(forceClickJS, targetAttr), &clicked)); err != nil {
			return fmt.Errorf("clicking %s[%d]: %w", selector, n, err)
		}
		if !clicked {
			return fmt.Errorf("%w: %s[%d] detached", ErrNoElement, selector, n)
		}
		return nil
	}

	target := fmt.Sprintf("[%s]", targetAttr)
	if err := chromedp.Run(ctx, chromedp.Click(target, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("clicking %s[%d]: %w", selector, n, err)
	}
	return nil
}

// Press sends a single key to the focused element. Named keys such as
// "Escape" or "Enter" map to their key codes.
func Press(ctx context.Context, key string) error {
	switch key {
	case "Escape":
		key = kb.Escape
	case "Enter":
		key = kb.Enter
	case "Tab":
		key = kb.Tab
	}
	return chromedp.Run(ctx, chromedp.KeyEvent(key))
}
