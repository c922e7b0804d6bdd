package aggregation

import (
	"time"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/eventfeed"
)

// listenerSlot duplicates the tiny registration-order bookkeeping shared by
// every eventfeed.Feed implementation; kept local (rather than exported
// from eventfeed) to avoid a needless cross-package coupling for three
// methods.
type listenerSlot struct {
	key string
	fn  eventfeed.Listener
}

// BarFeed wraps a source feed of Bar events and re-emits them aggregated
// into a longer window (spec.md §4.K). Config: WindowSize with boundaries
// snapping to multiples of WindowSize since the Unix epoch.
//
// BarFeed owns its source feed exclusively: Peek/Pop pull from the source
// internally as needed, so the source is never separately registered with
// a strategy's multi-feed merger.
type BarFeed struct {
	key          string
	source       eventfeed.Feed
	windowSize   time.Duration
	outType      domain.BarType
	emitPartial  bool

	acc          Accumulator
	aligned      bool
	windowStart  time.Time
	windowEnd    time.Time
	lastReceived time.Time

	pending  *domain.Event
	finished bool

	listeners []listenerSlot
	onErr     eventfeed.ErrorHook
}

// NewBarFeed builds a BarFeed over source, aggregating into outType's
// period (windowSize must match outType.PeriodValue/PeriodUnit in the
// caller's own units — BarFeed treats windowSize as the ground truth for
// boundary alignment and stamps outType on every emitted Bar).
func NewBarFeed(key string, source eventfeed.Feed, windowSize time.Duration, outType domain.BarType, emitPartialOnFinish bool, onErr eventfeed.ErrorHook) *BarFeed {
	return &BarFeed{
		key:         key,
		source:      source,
		windowSize:  windowSize,
		outType:     outType,
		emitPartial: emitPartialOnFinish,
		onErr:       onErr,
	}
}

// windowBoundary snaps t down to the nearest multiple of windowSize since
// the Unix epoch (spec.md §4.K "window boundaries snap to multiples of
// the window since the epoch").
func windowBoundary(t time.Time, windowSize time.Duration) time.Time {
	epoch := time.Unix(0, 0).UTC()
	elapsed := t.Sub(epoch)
	windows := elapsed / windowSize
	if elapsed%windowSize < 0 {
		windows--
	}
	return epoch.Add(windows * windowSize)
}

func (f *BarFeed) fill() {
	for f.pending == nil && !f.finished {
		srcEvt, ok := f.source.Pop()
		if !ok {
			if f.source.IsFinished() {
				f.flushOnFinish()
			}
			return
		}
		if srcEvt.Kind != domain.EventBar || srcEvt.Bar == nil {
			continue
		}
		bar := *srcEvt.Bar
		f.lastReceived = srcEvt.DtReceived

		winStart := windowBoundary(bar.StartDt, f.windowSize)

		if !f.aligned {
			if !bar.StartDt.Equal(winStart) {
				continue // leading partial window: dropped per spec.md §4.K
			}
			f.aligned = true
			f.windowStart = winStart
			f.windowEnd = winStart.Add(f.windowSize)
			f.acc.Reset()
			f.acc.Add(bar)
			continue
		}

		if bar.StartDt.Before(f.windowEnd) {
			f.acc.Add(bar)
			continue
		}

		// bar.StartDt >= current window end: flush and begin the next window.
		aggBar := f.acc.Build(f.outType, f.windowStart, f.windowEnd, false)
		evt := domain.NewBarEvent(aggBar, f.lastReceived)
		f.pending = &evt

		f.windowStart = windowBoundary(bar.StartDt, f.windowSize)
		f.windowEnd = f.windowStart.Add(f.windowSize)
		f.acc.Reset()
		f.acc.Add(bar)
		return
	}
}

func (f *BarFeed) flushOnFinish() {
	if f.aligned && f.acc.Started() && f.emitPartial {
		aggBar := f.acc.Build(f.outType, f.windowStart, f.windowEnd, true)
		evt := domain.NewBarEvent(aggBar, f.lastReceived)
		f.pending = &evt
	}
	f.finished = true
}

func (f *BarFeed) Peek() (domain.Event, bool) {
	f.fill()
	if f.pending == nil {
		return domain.Event{}, false
	}
	return *f.pending, true
}

func (f *BarFeed) Pop() (domain.Event, bool) {
	evt, ok := f.Peek()
	if !ok {
		return domain.Event{}, false
	}
	f.pending = nil
	// An emit-on-finish flush is terminal: once delivered there is nothing
	// further to pull from an exhausted source.
	if evt.Bar != nil && evt.Bar.IsPartial && f.source.IsFinished() {
		f.finished = true
	}
	for _, slot := range f.listeners {
		if err := slot.fn(evt); err != nil && f.onErr != nil {
			f.onErr(f.key, slot.key, err)
		}
	}
	return evt, true
}

func (f *BarFeed) IsFinished() bool {
	f.fill()
	return f.finished && f.pending == nil
}

func (f *BarFeed) AddListener(key string, fn eventfeed.Listener) error {
	if key == "" {
		return domain.ErrValidation
	}
	for _, slot := range f.listeners {
		if slot.key == key {
			return domain.ErrValidation
		}
	}
	f.listeners = append(f.listeners, listenerSlot{key: key, fn: fn})
	return nil
}

func (f *BarFeed) RemoveListener(key string) error {
	for i, slot := range f.listeners {
		if slot.key == key {
			f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
			return nil
		}
	}
	return domain.ErrValidation
}

// RemoveEventsBefore drops any pending aggregated bar older than cutoff and
// forwards the trim to the wrapped source.
func (f *BarFeed) RemoveEventsBefore(cutoff time.Time) {
	if f.pending != nil && f.pending.DtEvent.Before(cutoff) {
		f.pending = nil
	}
	f.source.RemoveEventsBefore(cutoff)
}

func (f *BarFeed) Close() {
	f.finished = true
	f.source.Close()
}

func (f *BarFeed) Metadata() map[string]string {
	return map[string]string{"aggregated_from": f.source.Metadata()["key"]}
}

var _ eventfeed.Feed = (*BarFeed)(nil)
