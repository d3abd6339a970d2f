// Package browser runs headless Chrome tabs through chromedp and exposes
// each one as a crawler.Page.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"

	"github.com/stupside/showcrawl/internal/action"
	"github.com/stupside/showcrawl/internal/app"
	"github.com/stupside/showcrawl/internal/crawler"
)

var (
	// ErrLaunch is returned when the browser cannot be started.
	ErrLaunch = errors.New("browser launch failed")
	// ErrTimeout is returned when a wait or navigation exceeds its budget.
	ErrTimeout = action.ErrTimeout
)

// pollInterval is how often in-page waits re-check their condition.
const pollInterval = 100 * time.Millisecond

// Session is one browser with one tab. It is not safe for concurrent use.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	cfg app.BrowserConfig
	fs  afero.Fs
}

var _ crawler.Page = (*Session)(nil)

// Open launches a browser with a fresh stealth profile. The browser outlives
// ctx cancellation until Close so that an item in progress can finish.
func Open(ctx context.Context, cfg app.BrowserConfig) (*Session, error) {
	profile := NewProfile(nil)
	slog.DebugContext(ctx, "browser profile",
		"ua", profile.UserAgent,
		"timezone", profile.TimezoneID,
		"screen", fmt.Sprintf("%dx%d", profile.ScreenWidth, profile.ScreenHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOpts(cfg, profile)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it gets the same outside timeout as
	// navigations because the tab context must not be cancelled before it.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(taskCtx,
			runtime.Enable(),
			network.Enable(),
			cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorDeny),
			injectStealth(profile),
			injectCDPStealth(profile),
		)
	}()

	var err error
	select {
	case err = <-started:
	case <-time.After(cfg.Timeout):
		err = fmt.Errorf("%w after %s", ErrTimeout, cfg.Timeout)
	}
	if err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	return &Session{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		fs:          afero.NewOsFs(),
	}, nil
}

// Close tears down the tab and the browser.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

// run executes fn on the tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, fn func(tab context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	tab, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return fn(tab)
}

// Navigate loads url and clears a Turnstile challenge if one shows up.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := action.Navigate(s.ctx, url, timeout); err != nil {
		return err
	}
	if s.cfg.Turnstile.Solve <= 0 {
		return nil
	}
	budget := s.cfg.Turnstile.Solve*2 + s.cfg.Turnstile.Reload
	return s.run(ctx, budget, func(tab context.Context) error {
		return action.BypassTurnstile(tab, s.cfg.Turnstile.Solve, s.cfg.Turnstile.Reload)
	})
}

func (s *Session) WaitFor(ctx context.Context, selector string, state crawler.State, timeout time.Duration) error {
	// The polling timeout ends the wait; the outer budget only guards the
	// round trip.
	return s.run(ctx, timeout+s.cfg.Timeout, func(tab context.Context) error {
		return action.WaitState(tab, selector, string(state), timeout, pollInterval)
	})
}

func (s *Session) All(ctx context.Context, selector string) ([]crawler.Element, error) {
	var els []crawler.Element
	err := s.run(ctx, 0, func(tab context.Context) error {
		return action.QueryAll(tab, selector, &els)
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", selector, err)
	}
	return els, nil
}

func (s *Session) first(ctx context.Context, selector string) (crawler.Element, error) {
	els, err := s.All(ctx, selector)
	if err != nil {
		return crawler.Element{}, err
	}
	if len(els) == 0 {
		return crawler.Element{}, fmt.Errorf("%w: %s", crawler.ErrNoSuchElement, selector)
	}
	return els[0], nil
}

// Attribute returns the named attribute of the first match, or "" when the
// element has no such attribute.
func (s *Session) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := s.first(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Attrs[name], nil
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	el, err := s.first(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (s *Session) Click(ctx context.Context, selector string, opts crawler.ClickOptions) error {
	return s.ClickNth(ctx, selector, 0, opts)
}

func (s *Session) ClickNth(ctx context.Context, selector string, n int, opts crawler.ClickOptions) error {
	err := s.run(ctx, opts.Timeout, func(tab context.Context) error {
		return action.ClickNth(tab, selector, n, opts.Force)
	})
	if errors.Is(err, action.ErrNoElement) {
		return fmt.Errorf("%w: %w", crawler.ErrNoSuchElement, err)
	}
	return err
}

func (s *Session) Press(ctx context.Context, key string) error {
	return s.run(ctx, 0, func(tab context.Context) error {
		return action.Press(tab, key)
	})
}

func (s *Session) Evaluate(ctx context.Context, js string, out any) error {
	return s.run(ctx, 0, func(tab context.Context) error {
		return action.Eval(tab, js, out)
	})
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	err := s.run(ctx, 0, func(tab context.Context) (err error) {
		u, err = action.Location(tab)
		return err
	})
	return u, err
}

func (s *Session) Markup(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, func(tab context.Context) (err error) {
		html, err = action.OuterHTML(tab)
		return err
	})
	return html, err
}
