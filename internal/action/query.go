package action

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// elementStateJS is a function of (selector, state) that reports whether the
// first match is attached, visible or hidden. A missing element is hidden.
//
//go:embed js/element_state.js
var elementStateJS string

// queryAllJS is a function of (selector) returning {text, attrs} for every
// match in document order.
//
//go:embed js/query_all.js
var queryAllJS string

// call renders a JS invocation of fn with JSON-encoded arguments.
func call(fn string, args ...any) string {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			// Arguments are strings and ints.
			panic(fmt.Sprintf("action: encoding argument %v: %v", a, err))
		}
		encoded[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", strings.TrimSpace(fn), strings.Join(encoded, ", "))
}

// WaitState polls the page until the first element matching selector is in
// state ("attached", "visible" or "hidden") or timeout elapses.
func WaitState(ctx context.Context, selector, state string, timeout, interval time.Duration) error {
	var ok bool
	err := chromedp.Run(ctx, chromedp.Poll(
		call(elementStateJS, selector, state),
		&ok,
		chromedp.WithPollingTimeout(timeout),
		chromedp.WithPollingInterval(interval),
	))
	if err != nil {
		return fmt.Errorf("%w: %s not %s within %s: %w", ErrTimeout, selector, state, timeout, err)
	}
	return nil
}

// QueryAll decodes the text and attributes of every element matching
// selector into out, which must point to a slice of structs with "text" and
// "attrs" fields.
func QueryAll(ctx context.Context, selector string, out any) error {
	return chromedp.Run(ctx, chromedp.Evaluate(call(queryAllJS, selector), out))
}

// Eval evaluates expression. A nil out discards the result.
func Eval(ctx context.Context, expression string, out any) error {
	if out == nil {
		var done bool
		return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf("(%s, true)", expression), &done))
	}
	return chromedp.Run(ctx, chromedp.Evaluate(expression, out))
}
