// Package eventfeed implements the lazy, time-ordered event source
// described in spec.md §4.A, ported from the Protocol in
// original_source/src/suite_trading/platform/event_feed/event_feed.go
// (originally event_feed.py).
package eventfeed

import (
	"fmt"
	"time"

	"jax-eventengine/internal/domain"
)

// Feed is the EventFeed contract (spec.md §4.A / §6).
//
// Peek/Pop/IsFinished/AddListener/RemoveListener/RemoveEventsBefore/Close
// are all synchronous and single-threaded; concurrent use of the same
// Feed from multiple goroutines is a programming error (spec.md §5).
type Feed interface {
	// Peek returns the next event without consuming it, or ok=false if no
	// event is currently ready (a finite lazy source may still be
	// generating more).
	Peek() (domain.Event, bool)
	// Pop consumes the next event and, on success, synchronously invokes
	// every registered listener in registration order. Listener errors are
	// logged by the caller-supplied hook and swallowed — they never abort
	// the feed.
	Pop() (domain.Event, bool)
	// IsFinished reports whether no further events will ever be produced.
	IsFinished() bool
	// AddListener registers fn under key. key must be unique and
	// non-empty; violating either fails with domain.ErrValidation.
	AddListener(key string, fn Listener) error
	// RemoveListener detaches the listener registered under key. An
	// unknown key fails with domain.ErrValidation.
	RemoveListener(key string) error
	// RemoveEventsBefore trims the head of the stream so the first
	// remaining event (if any) has DtEvent >= cutoff.
	RemoveEventsBefore(cutoff time.Time)
	// Close releases resources. Idempotent and non-blocking.
	Close()
	// Metadata is an optional read-only mapping set at construction.
	Metadata() map[string]string
}

// Listener is invoked synchronously from Pop with the event just consumed.
// A returned error is logged by the feed owner and never aborts Pop.
type Listener func(domain.Event) error

// listenerSlot pairs a listener with its registration key, preserving
// registration order for deterministic invocation (spec.md §9 "listener
// callbacks on feeds... owner-indexed slots").
type listenerSlot struct {
	key string
	fn  Listener
}

// listenerSet is embedded by every Feed implementation to share the
// add/remove/invoke bookkeeping.
type listenerSet struct {
	slots []listenerSlot
}

func (s *listenerSet) add(key string, fn Listener) error {
	if key == "" {
		return fmt.Errorf("%w: listener key must be non-empty", domain.ErrValidation)
	}
	for _, slot := range s.slots {
		if slot.key == key {
			return fmt.Errorf("%w: listener key %q already registered", domain.ErrValidation, key)
		}
	}
	s.slots = append(s.slots, listenerSlot{key: key, fn: fn})
	return nil
}

func (s *listenerSet) remove(key string) error {
	for i, slot := range s.slots {
		if slot.key == key {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: listener key %q not registered", domain.ErrValidation, key)
}

// ErrorHook is called when a listener returns an error from Pop; swap in a
// test double to assert on swallowed errors.
type ErrorHook func(feedKey, listenerKey string, err error)

func (s *listenerSet) notify(feedKey string, evt domain.Event, onErr ErrorHook) {
	for _, slot := range s.slots {
		if err := slot.fn(evt); err != nil && onErr != nil {
			onErr(feedKey, slot.key, err)
		}
	}
}
