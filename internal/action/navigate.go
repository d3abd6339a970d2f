// Package action holds the chromedp building blocks used to drive a single
// browser tab: navigation, element waits and queries, clicks, key presses
// and the Cloudflare Turnstile bypass.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrTimeout is returned when a tab operation exceeds its budget.
var ErrTimeout = errors.New("browser operation timed out")

// Navigate loads url in the tab bound to ctx and waits for the body.
//
// The timeout is enforced from outside the chromedp run: cancelling a child
// of the tab context while a navigation is in flight breaks the target in
// chromedp v0.14.
func Navigate(ctx context.Context, url string, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("navigating to %s: %w", url, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: navigating to %s after %s", ErrTimeout, url, timeout)
	}
}

// Location returns the tab's current URL.
func Location(ctx context.Context) (string, error) {
	var u string
	if err := chromedp.Run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// OuterHTML returns the rendered markup of the whole document.
func OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}
