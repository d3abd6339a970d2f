// Package crawler discovers a show catalog on a rendered website, walks each
// show's paginated episode list and language variants, and merges what it
// finds into a store.
package crawler

import (
	"context"
	"errors"
	"time"
)

// State is an element condition a Page can wait for.
type State string

const (
	Attached State = "attached"
	Visible  State = "visible"
	Hidden   State = "hidden"
)

// Element is a snapshot of one element matched by Page.All.
type Element struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// ClickOptions tunes a click. Force dispatches the click without waiting for
// the element to become visible.
type ClickOptions struct {
	Force   bool
	Timeout time.Duration
}

// Page is a single stateful browser tab. Every blocking call is bounded by an
// explicit timeout or the context.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, state State, timeout time.Duration) error
	Attribute(ctx context.Context, selector, name string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	All(ctx context.Context, selector string) ([]Element, error)
	Click(ctx context.Context, selector string, opts ClickOptions) error
	ClickNth(ctx context.Context, selector string, n int, opts ClickOptions) error
	Press(ctx context.Context, key string) error
	Evaluate(ctx context.Context, js string, out any) error
	URL(ctx context.Context) (string, error)
	Markup(ctx context.Context) (string, error)
}

// Snapshotter is implemented by pages able to dump debug artifacts.
type Snapshotter interface {
	Snapshot(ctx context.Context, label string)
}

// KeyEscape dismisses an open menu.
const KeyEscape = "Escape"

var (
	ErrDiscoveryTimeout = errors.New("catalog listing did not appear")
	ErrMenuOpenTimeout  = errors.New("pagination menu did not open")
	ErrNoEpisodes       = errors.New("episode list did not appear")
	ErrNoSuchElement    = errors.New("no matching element")
)
