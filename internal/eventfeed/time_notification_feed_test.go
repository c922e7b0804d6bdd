package eventfeed

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, ts string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("parse time %q: %v", ts, err)
	}
	return at
}

func TestTimeNotificationFeed_EmitsAtFixedInterval(t *testing.T) {
	start := mustParse(t, "2026-01-01T09:00:00Z")
	end := mustParse(t, "2026-01-01T09:03:00Z")
	feed := NewTimeNotificationFeed("clock", start, time.Minute, end, nil, nil)

	var ticks []time.Time
	for {
		evt, ok := feed.Pop()
		if !ok {
			break
		}
		ticks = append(ticks, evt.DtEvent)
	}

	if len(ticks) != 3 {
		t.Fatalf("got %d ticks, want 3: %v", len(ticks), ticks)
	}
	for i, want := range []time.Time{start, start.Add(time.Minute), start.Add(2 * time.Minute)} {
		if !ticks[i].Equal(want) {
			t.Fatalf("tick %d = %v, want %v", i, ticks[i], want)
		}
	}
}

func TestTimeNotificationFeed_FinishesWhenBoundFeedFinishes(t *testing.T) {
	start := mustParse(t, "2026-01-01T09:00:00Z")
	boundFinished := false
	feed := NewTimeNotificationFeed("clock", start, time.Minute, time.Time{}, func() bool { return boundFinished }, nil)

	if feed.IsFinished() {
		t.Fatal("feed should not be finished while bound() returns false")
	}
	boundFinished = true
	if !feed.IsFinished() {
		t.Fatal("feed should finish once bound() returns true")
	}
	if _, ok := feed.Pop(); ok {
		t.Fatal("Pop should report false once the feed has finished")
	}
}

func TestTimeNotificationFeed_Close_StopsEmission(t *testing.T) {
	start := mustParse(t, "2026-01-01T09:00:00Z")
	feed := NewTimeNotificationFeed("clock", start, time.Minute, time.Time{}, nil, nil)
	feed.Close()
	if !feed.IsFinished() {
		t.Fatal("Close should finish the feed")
	}
}

func TestTimeNotificationFeed_RemoveEventsBefore_AdvancesNext(t *testing.T) {
	start := mustParse(t, "2026-01-01T09:00:00Z")
	feed := NewTimeNotificationFeed("clock", start, time.Minute, time.Time{}, nil, nil)
	cutoff := mustParse(t, "2026-01-01T09:02:30Z")

	feed.RemoveEventsBefore(cutoff)

	evt, ok := feed.Peek()
	if !ok {
		t.Fatal("want a next event after trimming")
	}
	want := mustParse(t, "2026-01-01T09:03:00Z")
	if !evt.DtEvent.Equal(want) {
		t.Fatalf("next event = %v, want %v", evt.DtEvent, want)
	}
}

var _ Feed = (*TimeNotificationFeed)(nil)
