// SPDX-License-Identifier: MIT

package source

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamStatus      = errors.New("upstream: non-success HTTP status")
	ErrUpstreamEmpty       = errors.New("upstream: empty document")
	ErrUpstreamTooLarge    = errors.New("upstream: document exceeds size limit")
	ErrUpstreamDecode      = errors.New("upstream: document could not be decoded")
	ErrUpstreamOpen        = errors.New("upstream: circuit breaker open")
	ErrNoSources           = errors.New("upstream: no sources configured")
)

// FetchError wraps a sentinel with the source and attempt details.
type FetchError struct {
	Sentinel error
	Source   string
	Location string // URL or file path
	Status   int
	Err      error // lower-level cause, e.g. a *url.Error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("source %s: %v", e.Source, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// IsUpstream reports whether err is a failure to obtain a document, as
// opposed to a cancelled caller or a programming error.
func IsUpstream(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) || errors.Is(err, ErrNoSources)
}

// permanent reports whether retrying the same request cannot help.
func permanent(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch {
	case errors.Is(fe.Sentinel, ErrUpstreamTooLarge):
		return true
	case errors.Is(fe.Sentinel, ErrUpstreamStatus):
		// 408 and 429 are worth another attempt; other 4xx are not.
		return fe.Status >= 400 && fe.Status < 500 && fe.Status != 408 && fe.Status != 429
	}
	return false
}
