package strategy

import (
	"fmt"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/eventfeed"
)

// feedSlot pairs a registered feed with whether it drives simulated fills
// (spec.md §4.I "add_event_feed(key, feed, use_for_simulated_fills=false)").
type feedSlot struct {
	feed        eventfeed.Feed
	drivesFills bool
}

// merger selects the next ready event across a Strategy's registered feeds
// by globally smallest DtEvent, tie-broken by feed registration order
// (spec.md §4.B). It owns no goroutines: next is called synchronously from
// the Runtime's dispatch loop, in turn driven by the Engine.
type merger struct {
	keys  []string
	slots map[string]feedSlot
}

func newMerger() *merger {
	return &merger{slots: make(map[string]feedSlot)}
}

// add registers feed under key, appended to the end of the tie-break order.
// A duplicate key fails with domain.ErrValidation.
func (m *merger) add(key string, feed eventfeed.Feed, drivesFills bool) error {
	if _, exists := m.slots[key]; exists {
		return fmt.Errorf("%w: feed key %q already registered", domain.ErrValidation, key)
	}
	m.keys = append(m.keys, key)
	m.slots[key] = feedSlot{feed: feed, drivesFills: drivesFills}
	return nil
}

// remove detaches the feed registered under key and returns it without
// closing it (Runtime.RemoveEventFeed closes it). An unknown key fails
// with domain.ErrValidation.
func (m *merger) remove(key string) (eventfeed.Feed, error) {
	slot, exists := m.slots[key]
	if !exists {
		return nil, fmt.Errorf("%w: feed key %q not registered", domain.ErrValidation, key)
	}
	delete(m.slots, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return slot.feed, nil
}

// next peeks every registered feed and returns the event with the globally
// smallest DtEvent, ties broken by registration order. ok is false when no
// feed currently has a ready event.
func (m *merger) next() (key string, evt domain.Event, drivesFills bool, ok bool) {
	for _, k := range m.keys {
		slot, exists := m.slots[k]
		if !exists {
			continue
		}
		candidate, ready := slot.feed.Peek()
		if !ready {
			continue
		}
		if !ok || candidate.DtEvent.Before(evt.DtEvent) {
			key, evt, drivesFills, ok = k, candidate, slot.drivesFills, true
		}
	}
	return key, evt, drivesFills, ok
}

// pop consumes the event selected by next from its originating feed.
func (m *merger) pop(key string) (domain.Event, bool) {
	slot, exists := m.slots[key]
	if !exists {
		return domain.Event{}, false
	}
	return slot.feed.Pop()
}

// finished reports whether every registered feed is finished (spec.md §4.B:
// a strategy with no feeds left to drain has nothing further to dispatch).
func (m *merger) finished() bool {
	for _, key := range m.keys {
		if !m.slots[key].feed.IsFinished() {
			return false
		}
	}
	return true
}
