package eventfeed

import (
	"time"

	"jax-eventengine/internal/domain"
)

// TimeNotificationFeed emits TimeNotification events at a fixed interval,
// and terminates once the bound feed it tracks finishes (spec.md §4.A
// "fixed-interval time-notification feed that terminates when a bound
// feed finishes").
//
// The "bound feed" relationship is expressed via the Bound function rather
// than holding a reference to another Feed directly, so this feed stays
// decoupled from any particular Feed implementation.
type TimeNotificationFeed struct {
	listenerSet
	key      string
	interval time.Duration
	next     time.Time
	end      time.Time
	bound    func() bool // returns true once the bound feed has finished
	closed   bool
	onErr    ErrorHook
}

// NewTimeNotificationFeed emits a notification every interval starting at
// start, until end is reached or bound() reports the tracked feed has
// finished, whichever comes first.
func NewTimeNotificationFeed(key string, start time.Time, interval time.Duration, end time.Time, bound func() bool, onErr ErrorHook) *TimeNotificationFeed {
	return &TimeNotificationFeed{key: key, interval: interval, next: start, end: end, bound: bound, onErr: onErr}
}

func (f *TimeNotificationFeed) Peek() (domain.Event, bool) {
	if f.IsFinished() {
		return domain.Event{}, false
	}
	return domain.NewTimeNotificationEvent(f.next, f.next, "interval"), true
}

func (f *TimeNotificationFeed) Pop() (domain.Event, bool) {
	evt, ok := f.Peek()
	if !ok {
		return domain.Event{}, false
	}
	f.next = f.next.Add(f.interval)
	f.notify(f.key, evt, f.onErr)
	return evt, true
}

func (f *TimeNotificationFeed) IsFinished() bool {
	if f.closed {
		return true
	}
	if f.bound != nil && f.bound() {
		return true
	}
	return !f.end.IsZero() && !f.next.Before(f.end)
}

func (f *TimeNotificationFeed) AddListener(key string, fn Listener) error { return f.add(key, fn) }
func (f *TimeNotificationFeed) RemoveListener(key string) error           { return f.remove(key) }

func (f *TimeNotificationFeed) RemoveEventsBefore(cutoff time.Time) {
	for f.next.Before(cutoff) {
		f.next = f.next.Add(f.interval)
	}
}

func (f *TimeNotificationFeed) Close() { f.closed = true }

func (f *TimeNotificationFeed) Metadata() map[string]string { return nil }
