package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/eventfeed"
	"jax-eventengine/internal/fsm"
	"jax-eventengine/internal/strategy"
)

// fakeBroker is a minimal Broker that fills every pending order in full at
// a fixed price on the next ingested event, to exercise the scheduling + routing loop
// without pulling in the full SimBroker pipeline.
type fakeBroker struct {
	pending []domain.Order
}

func (b *fakeBroker) SubmitOrder(ctx context.Context, order *domain.Order) error {
	order.State = domain.OrderAccepted
	b.pending = append(b.pending, *order)
	return nil
}

func (b *fakeBroker) CancelOrder(orderID uuid.UUID) error { return nil }

func (b *fakeBroker) IngestEvent(ctx context.Context, evt domain.Event) []domain.Execution {
	var execs []domain.Execution
	var remaining []domain.Order
	for _, order := range b.pending {
		fill := domain.OrderFill{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Quantity:  order.Quantity,
			Price:     decimal.NewFromInt(100),
			Timestamp: evt.DtEvent,
		}
		order.Fills = append(order.Fills, fill)
		order.State = domain.OrderFilled
		execs = append(execs, domain.Execution{Order: order, Fill: fill})
	}
	b.pending = remaining
	return execs
}

// recordingStrategyImpl submits one market order on its first event and
// records every execution it's handed back.
type recordingStrategyImpl struct {
	brokerKey  string
	submitted  bool
	executions []domain.Execution
	events     []domain.Event
}

func (s *recordingStrategyImpl) OnStart(ctx context.Context, rt *strategy.Runtime) error { return nil }

func (s *recordingStrategyImpl) OnEvent(ctx context.Context, evt domain.Event) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingStrategyImpl) OnExecution(ctx context.Context, exec domain.Execution) error {
	s.executions = append(s.executions, exec)
	return nil
}

func (s *recordingStrategyImpl) OnStop(ctx context.Context) error { return nil }

// submittingStrategy submits a market order the first time it sees an
// event, via the Runtime handle captured in OnStart.
type submittingStrategy struct {
	recordingStrategyImpl
	rt *strategy.Runtime
}

func (s *submittingStrategy) OnStart(ctx context.Context, rt *strategy.Runtime) error {
	s.rt = rt
	return nil
}

func (s *submittingStrategy) OnEvent(ctx context.Context, evt domain.Event) error {
	s.recordingStrategyImpl.OnEvent(ctx, evt)
	if s.submitted {
		return nil
	}
	s.submitted = true
	order := domain.NewOrder(domain.Instrument{}, domain.Buy, decimal.NewFromInt(10), domain.OrderMarket, domain.TIFDay, domain.DirectionEntry)
	return s.rt.SubmitOrder(ctx, &order, s.brokerKey)
}

func tn(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func feedEvent(dt string) domain.Event {
	return domain.NewTimeNotificationEvent(tn(dt), tn(dt), "tick")
}

func TestEngine_RunDeliversExecutionBackToOriginatingStrategy(t *testing.T) {
	eng := New()
	broker := &fakeBroker{}
	if err := eng.AddBroker("sim-1", broker); err != nil {
		t.Fatalf("add broker: %v", err)
	}

	impl := &submittingStrategy{brokerKey: "sim-1"}
	rt, err := eng.AddStrategy("strat-1", impl)
	if err != nil {
		t.Fatalf("add strategy: %v", err)
	}

	feed := eventfeed.NewListFeed("a", []domain.Event{
		feedEvent("2024-01-05T09:30:00Z"),
		feedEvent("2024-01-05T09:31:00Z"),
	}, nil, nil)
	if err := rt.AddEventFeed("a", feed, true); err != nil {
		t.Fatalf("add feed: %v", err)
	}

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(impl.executions) != 1 {
		t.Fatalf("want 1 execution delivered, got %d", len(impl.executions))
	}
	if eng.State() != fsm.EngineStopped {
		t.Fatalf("want engine STOPPED, got %s", eng.State())
	}
}

func TestEngine_SchedulerPicksGlobalMinimumDtEvent(t *testing.T) {
	eng := New()
	broker := &fakeBroker{}
	if err := eng.AddBroker("sim-1", broker); err != nil {
		t.Fatalf("add broker: %v", err)
	}

	implA := &recordingStrategyImpl{}
	implB := &recordingStrategyImpl{}
	rtA, err := eng.AddStrategy("a", implA)
	if err != nil {
		t.Fatalf("add strategy a: %v", err)
	}
	rtB, err := eng.AddStrategy("b", implB)
	if err != nil {
		t.Fatalf("add strategy b: %v", err)
	}

	feedA := eventfeed.NewListFeed("fa", []domain.Event{feedEvent("2024-01-05T09:31:00Z")}, nil, nil)
	feedB := eventfeed.NewListFeed("fb", []domain.Event{feedEvent("2024-01-05T09:30:00Z")}, nil, nil)
	if err := rtA.AddEventFeed("fa", feedA, false); err != nil {
		t.Fatalf("add feed a: %v", err)
	}
	if err := rtB.AddEventFeed("fb", feedB, false); err != nil {
		t.Fatalf("add feed b: %v", err)
	}
	var dispatched []string
	if err := feedA.AddListener("order", func(domain.Event) error { dispatched = append(dispatched, "a"); return nil }); err != nil {
		t.Fatalf("add listener a: %v", err)
	}
	if err := feedB.AddListener("order", func(domain.Event) error { dispatched = append(dispatched, "b"); return nil }); err != nil {
		t.Fatalf("add listener b: %v", err)
	}

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(implB.events) != 1 || len(implA.events) != 1 {
		t.Fatalf("both strategies should have received their one event, got a=%d b=%d", len(implA.events), len(implB.events))
	}
	if len(dispatched) != 2 || dispatched[0] != "b" || dispatched[1] != "a" {
		t.Fatalf("want strategy b's earlier event dispatched before a's, got %v", dispatched)
	}
}

func TestEngine_AddBrokerFailsAfterStart(t *testing.T) {
	eng := New()
	if _, err := eng.machine.Apply(fsm.EngineActionStart); err != nil {
		t.Fatalf("force start: %v", err)
	}
	if err := eng.AddBroker("late", &fakeBroker{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

type recordingSink struct {
	executions []domain.Execution
}

func (s *recordingSink) RecordExecution(ctx context.Context, runID uuid.UUID, strategyKey, brokerKey string, exec domain.Execution) error {
	s.executions = append(s.executions, exec)
	return nil
}

func TestEngine_NotifiesExecutionSink(t *testing.T) {
	eng := New()
	broker := &fakeBroker{}
	if err := eng.AddBroker("sim-1", broker); err != nil {
		t.Fatalf("add broker: %v", err)
	}
	sink := &recordingSink{}
	eng.Sink = sink

	impl := &submittingStrategy{brokerKey: "sim-1"}
	rt, err := eng.AddStrategy("strat-1", impl)
	if err != nil {
		t.Fatalf("add strategy: %v", err)
	}
	feed := eventfeed.NewListFeed("a", []domain.Event{
		feedEvent("2024-01-05T09:30:00Z"),
		feedEvent("2024-01-05T09:31:00Z"),
	}, nil, nil)
	if err := rt.AddEventFeed("a", feed, true); err != nil {
		t.Fatalf("add feed: %v", err)
	}

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.executions) != 1 {
		t.Fatalf("want 1 execution recorded by sink, got %d", len(sink.executions))
	}
}

func TestEngine_SubmitOrderUnknownBrokerFails(t *testing.T) {
	eng := New()
	impl := &recordingStrategyImpl{}
	if _, err := eng.AddStrategy("strat-1", impl); err != nil {
		t.Fatalf("add strategy: %v", err)
	}
	order := domain.NewOrder(domain.Instrument{}, domain.Buy, decimal.NewFromInt(1), domain.OrderMarket, domain.TIFDay, domain.DirectionEntry)
	if err := eng.SubmitOrder(context.Background(), "strat-1", &order, "missing"); !errors.Is(err, domain.ErrUnknownEntity) {
		t.Fatalf("want ErrUnknownEntity, got %v", err)
	}
}
