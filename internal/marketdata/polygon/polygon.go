// Package polygon implements an eventfeed.Feed backed by Polygon.io's
// aggregates (bars) REST API — an external market-data provider feeding
// events into the engine at the system boundary. Concrete provider
// integrations are out of core scope (spec.md §1 "concrete market-data
// providers"); only the adapter shape (implementing eventfeed.Feed) is in
// scope, grounded in libs/marketdata/provider_polygon.go's GetCandles.
package polygon

import (
	"context"
	"fmt"
	"sort"
	"time"

	polygonsdk "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/eventfeed"
)

// Config configures one Feed.
type Config struct {
	APIKey     string
	Instrument domain.Instrument
	BarType    domain.BarType
	Multiplier int
	Timespan   models.Timespan
	From       time.Time
	To         time.Time
}

// Feed fetches the requested aggregate window once at construction time
// (New) and then behaves like a fixed-sequence feed over the result
// — Polygon's REST aggregates endpoint is not a push stream, so there is
// no later-arriving data to poll for within one Feed instance.
type Feed struct {
	listenerSetEmbed
	key    string
	bars   []domain.Bar
	cursor int
	closed bool
	meta   map[string]string
}

// listenerSetEmbed re-implements eventfeed's listener bookkeeping locally,
// since eventfeed's listenerSet type is unexported and cannot be embedded
// from outside its package.
type listenerSetEmbed struct {
	onErr     eventfeed.ErrorHook
	listeners map[string]eventfeed.Listener
	order     []string
}

func (l *listenerSetEmbed) AddListener(key string, fn eventfeed.Listener) error {
	if key == "" {
		return fmt.Errorf("%w: listener key must be non-empty", domain.ErrValidation)
	}
	if l.listeners == nil {
		l.listeners = make(map[string]eventfeed.Listener)
	}
	if _, exists := l.listeners[key]; exists {
		return fmt.Errorf("%w: listener key %q already registered", domain.ErrValidation, key)
	}
	l.listeners[key] = fn
	l.order = append(l.order, key)
	return nil
}

func (l *listenerSetEmbed) RemoveListener(key string) error {
	if _, exists := l.listeners[key]; !exists {
		return fmt.Errorf("%w: listener key %q not registered", domain.ErrValidation, key)
	}
	delete(l.listeners, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

func (l *listenerSetEmbed) notify(feedKey string, evt domain.Event) {
	for _, k := range l.order {
		if err := l.listeners[k](evt); err != nil && l.onErr != nil {
			l.onErr(feedKey, k, err)
		}
	}
}

// New fetches cfg's aggregate window from Polygon and builds a Feed over
// the resulting bars, sorted by end time.
func New(ctx context.Context, cfg Config, onErr eventfeed.ErrorHook) (*Feed, error) {
	client := polygonsdk.New(cfg.APIKey)

	params := models.ListAggsParams{
		Ticker:     cfg.Instrument.Name,
		Multiplier: cfg.Multiplier,
		Timespan:   cfg.Timespan,
		From:       models.Millis(cfg.From),
		To:         models.Millis(cfg.To),
	}

	iter := client.ListAggs(ctx, &params)

	var bars []domain.Bar
	for iter.Next() {
		agg := iter.Item()
		bar := domain.Bar{
			Type:    cfg.BarType,
			StartDt: time.Time(agg.Timestamp).UTC(),
			EndDt:   time.Time(agg.Timestamp).UTC(),
			Open:    decimal.NewFromFloat(agg.Open),
			High:    decimal.NewFromFloat(agg.High),
			Low:     decimal.NewFromFloat(agg.Low),
			Close:   decimal.NewFromFloat(agg.Close),
			Volume:  decimal.NewFromFloat(agg.Volume),
		}
		bars = append(bars, bar)
	}
	if iter.Err() != nil {
		return nil, fmt.Errorf("%w: polygon list_aggs: %v", domain.ErrConnection, iter.Err())
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].EndDt.Before(bars[j].EndDt) })

	return &Feed{
		key:              cfg.Instrument.Key(),
		bars:             bars,
		listenerSetEmbed: listenerSetEmbed{onErr: onErr},
		meta:             map[string]string{"provider": "polygon", "instrument": cfg.Instrument.Key()},
	}, nil
}

func (f *Feed) Peek() (domain.Event, bool) {
	if f.cursor >= len(f.bars) {
		return domain.Event{}, false
	}
	return domain.NewBarEvent(f.bars[f.cursor], time.Now().UTC()), true
}

func (f *Feed) Pop() (domain.Event, bool) {
	evt, ok := f.Peek()
	if !ok {
		return domain.Event{}, false
	}
	f.cursor++
	f.notify(f.key, evt)
	return evt, true
}

func (f *Feed) IsFinished() bool { return f.closed || f.cursor >= len(f.bars) }

func (f *Feed) RemoveEventsBefore(cutoff time.Time) {
	for f.cursor < len(f.bars) && f.bars[f.cursor].EndDt.Before(cutoff) {
		f.cursor++
	}
}

func (f *Feed) Close() { f.closed = true }

func (f *Feed) Metadata() map[string]string { return f.meta }

var _ eventfeed.Feed = (*Feed)(nil)
