// Package browser abstracts the browser automation engine behind a small
// session capability set. Each detection or fill operation owns one
// exclusive, short-lived session; sessions are never pooled or shared.
package browser

import (
	"context"
	"time"
)

// Driver opens isolated browser sessions
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one exclusive browser page. Every method suspends at the
// browser-interaction boundary and respects context cancellation. Close
// must be called on every exit path; it is safe to call more than once.
type Session interface {
	// Navigate loads url and waits for the document to become ready,
	// bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitReady waits for the current document to reach a ready state,
	// bounded by timeout. Callers that tolerate non-navigating submits
	// treat a timeout as non-fatal.
	WaitReady(ctx context.Context, timeout time.Duration) error
	// Evaluate runs a JavaScript expression against the loaded page and
	// unmarshals the result into out.
	Evaluate(ctx context.Context, expression string, out interface{}) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill sets the value of a text-like input.
	Fill(ctx context.Context, selector, value string) error
	// Check ensures a checkbox is checked.
	Check(ctx context.Context, selector string) error
	// SelectOption selects a dropdown option by value.
	SelectOption(ctx context.Context, selector, value string) error
	// SelectOptionByText selects a dropdown option by its visible text,
	// the fallback when value selection fails.
	SelectOptionByText(ctx context.Context, selector, text string) error
	// SetFiles attaches local files to a file input.
	SetFiles(ctx context.Context, selector string, paths []string) error
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// Screenshot captures the current viewport to path.
	Screenshot(ctx context.Context, path string) error
	// Close releases the session and its browser resources.
	Close() error
}

// Settle pauses for the given delay to tolerate client-side hydration,
// returning early if the context is cancelled.
func Settle(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
