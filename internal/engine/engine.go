// Package engine implements the Trading Engine (spec.md §4.J): the
// orchestrator owning every Broker and Strategy in a run, the global
// scheduling loop, and the Routing Registry (§4.L) that ties executions
// back to their originating strategy.
//
// Grounded in internal/modules/backtest/engine.go (the teacher's Engine
// wrapping a deterministic run) and original_source's
// platform/engine/engine_state_machine.py for the lifecycle.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/fsm"
	"jax-eventengine/internal/observability"
	"jax-eventengine/internal/strategy"
)

// Broker is the subset of a broker's contract the Engine drives directly
// (spec.md §6 "Broker contract"). SimBroker satisfies this. The external
// broker contract (internal/broker/external) does not: its CancelOrder
// takes a context and the order, and it has no IngestEvent.
type Broker interface {
	SubmitOrder(ctx context.Context, order *domain.Order) error
	CancelOrder(orderID uuid.UUID) error
	IngestEvent(ctx context.Context, evt domain.Event) []domain.Execution
}

// route is one Routing Registry entry: order.id -> (strategy, broker)
// (spec.md §4.L).
type route struct {
	strategyKey string
	brokerKey   string
}

// ExecutionSink is an optional external observer notified of every
// execution alongside the owning strategy's OnExecution callback. The
// core engine never depends on one being attached (spec.md §6 "Persisted
// state: none"); internal/journal.Journal implements this to persist
// fills without the Engine or SimBroker knowing Postgres exists.
type ExecutionSink interface {
	RecordExecution(ctx context.Context, runID uuid.UUID, strategyKey, brokerKey string, exec domain.Execution) error
}

// Engine owns every Broker and Strategy Runtime for one run and drives the
// single-threaded, event-driven scheduling loop described in spec.md §4.J
// and §5. It never spawns goroutines.
type Engine struct {
	machine *fsm.EngineMachine

	brokerOrder []string
	brokers     map[string]Broker

	strategyOrder []string
	strategies    map[string]*strategy.Runtime

	routing map[uuid.UUID]route

	// RunID identifies this run for ExecutionSink correlation. Set once at
	// construction.
	RunID uuid.UUID

	// Sink, when non-nil, is notified of every execution right after the
	// owning strategy's OnExecution callback. A sink error is logged and
	// never aborts the run.
	Sink ExecutionSink

	// HaltOnStrategyError stops the whole run the first time any strategy
	// transitions to ERROR. When false (the default) the engine drops that
	// strategy from scheduling and continues with the survivors (spec.md
	// §4.I "the engine either halts or continues with surviving strategies
	// per configuration").
	HaltOnStrategyError bool
}

// New creates an Engine at fsm.EngineNew.
func New() *Engine {
	return &Engine{
		machine:    fsm.NewEngineMachine(),
		brokers:    make(map[string]Broker),
		strategies: make(map[string]*strategy.Runtime),
		routing:    make(map[uuid.UUID]route),
		RunID:      uuid.New(),
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() fsm.EngineState {
	return e.machine.State()
}

// AddBroker registers broker under key. Valid only in state NEW (spec.md
// §4.J). A duplicate key fails with domain.ErrValidation.
func (e *Engine) AddBroker(key string, broker Broker) error {
	if e.machine.State() != fsm.EngineNew {
		return fmt.Errorf("%w: brokers can only be added before Start", domain.ErrInvalidTransition)
	}
	if _, exists := e.brokers[key]; exists {
		return fmt.Errorf("%w: broker key %q already registered", domain.ErrValidation, key)
	}
	e.brokerOrder = append(e.brokerOrder, key)
	e.brokers[key] = broker
	return nil
}

// AddStrategy wraps impl in a Runtime, keyed by key in registration order
// (the engine's strategy-registration tie-break per spec.md §4.J step 3).
// Valid only in state NEW. A duplicate key fails with domain.ErrValidation.
func (e *Engine) AddStrategy(key string, impl strategy.Strategy) (*strategy.Runtime, error) {
	if e.machine.State() != fsm.EngineNew {
		return nil, fmt.Errorf("%w: strategies can only be added before Start", domain.ErrInvalidTransition)
	}
	if _, exists := e.strategies[key]; exists {
		return nil, fmt.Errorf("%w: strategy key %q already registered", domain.ErrValidation, key)
	}
	rt := strategy.NewRuntime(key, impl, e)
	e.strategyOrder = append(e.strategyOrder, key)
	e.strategies[key] = rt
	return rt, nil
}

// SubmitOrder implements strategy.EngineAPI: it records the routing pair
// used by routeExecutions and forwards the order to the named broker
// (spec.md §4.L).
func (e *Engine) SubmitOrder(ctx context.Context, strategyKey string, order *domain.Order, brokerKey string) error {
	broker, exists := e.brokers[brokerKey]
	if !exists {
		return fmt.Errorf("%w: broker key %q not registered", domain.ErrUnknownEntity, brokerKey)
	}
	e.routing[order.ID] = route{strategyKey: strategyKey, brokerKey: brokerKey}
	return broker.SubmitOrder(ctx, order)
}

// Run executes the full lifecycle (spec.md §4.J steps 1-5): starting every
// strategy, looping the global scheduler until every strategy is drained
// or failed, then stopping every strategy and the engine itself. It is the
// single entry point; callers never drive the loop manually.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.startStrategies(ctx); err != nil {
		return err
	}
	if _, err := e.machine.Apply(fsm.EngineActionStart); err != nil {
		return err
	}

	for {
		key, ok := e.selectNext()
		if !ok {
			break
		}
		if err := e.dispatchOne(ctx, key); err != nil && e.HaltOnStrategyError {
			break
		}
	}

	return e.stopAll(ctx)
}

// startStrategies invokes Add+Start on every registered strategy in
// registration order (spec.md §4.J step 1). A strategy that fails to start
// is logged and excluded from scheduling, rather than aborting the run,
// unless HaltOnStrategyError is set.
func (e *Engine) startStrategies(ctx context.Context) error {
	for _, key := range e.strategyOrder {
		rt := e.strategies[key]
		if err := rt.Add(); err != nil {
			return err
		}
		if err := rt.Start(ctx); err != nil {
			observability.LogEvent(ctx, "error", "strategy_start_failed", map[string]any{
				"strategy_id": key,
				"error":       err.Error(),
			})
			if e.HaltOnStrategyError {
				return err
			}
		}
	}
	return nil
}

// selectNext picks the RUNNING strategy whose merger reports the globally
// smallest next DtEvent, ties broken by strategy-registration order
// (spec.md §4.J step 3, §5 "Across strategies"). ok is false once no
// strategy has any ready or pending event, the termination condition of
// §4.J step 5.
func (e *Engine) selectNext() (key string, ok bool) {
	var bestDt domain.Event
	for _, k := range e.strategyOrder {
		rt := e.strategies[k]
		if rt.State() != fsm.StrategyRunning {
			continue
		}
		evt, ready := rt.PeekDtEvent()
		if !ready {
			continue
		}
		if !ok || evt.DtEvent.Before(bestDt.DtEvent) {
			key, bestDt, ok = k, evt, true
		}
	}
	return key, ok
}

// dispatchOne dispatches the selected strategy's next event, forwards it
// to every broker when the originating feed drives simulated fills, and
// routes any resulting executions back to their owning strategies (spec.md
// §4.J steps 3-4).
func (e *Engine) dispatchOne(ctx context.Context, key string) error {
	rt := e.strategies[key]
	evt, drivesFills, _, err := rt.DispatchNext(ctx)
	if err != nil {
		return err
	}
	if !drivesFills {
		return nil
	}
	for _, brokerKey := range e.brokerOrder {
		executions := e.brokers[brokerKey].IngestEvent(ctx, evt)
		e.routeExecutions(ctx, executions, brokerKey)
	}
	return nil
}

// routeExecutions looks up each execution's order.id in the routing
// registry and synchronously invokes the owning strategy's OnExecution
// before the next event is selected (spec.md §4.J step 4, §5 "a strategy
// always sees on_execution before any later on_event").
func (e *Engine) routeExecutions(ctx context.Context, executions []domain.Execution, brokerKey string) {
	for _, exec := range executions {
		r, exists := e.routing[exec.Order.ID]
		if !exists || r.brokerKey != brokerKey {
			continue
		}
		rt, exists := e.strategies[r.strategyKey]
		if !exists {
			continue
		}
		if err := rt.DeliverExecution(ctx, exec); err != nil {
			observability.LogEvent(ctx, "error", "execution_delivery_failed", map[string]any{
				"strategy_id": r.strategyKey,
				"order_id":    exec.Order.ID.String(),
				"error":       err.Error(),
			})
		}
		if e.Sink != nil {
			if err := e.Sink.RecordExecution(ctx, e.RunID, r.strategyKey, r.brokerKey, exec); err != nil {
				observability.LogEvent(ctx, "error", "execution_sink_failed", map[string]any{
					"strategy_id": r.strategyKey,
					"order_id":    exec.Order.ID.String(),
					"error":       err.Error(),
				})
			}
		}
	}
}

// stopAll calls OnStop on every strategy in reverse registration order,
// then transitions the engine itself to STOPPED (spec.md §4.J step 5).
func (e *Engine) stopAll(ctx context.Context) error {
	for i := len(e.strategyOrder) - 1; i >= 0; i-- {
		rt := e.strategies[e.strategyOrder[i]]
		if rt.State() != fsm.StrategyRunning {
			continue
		}
		if err := rt.Stop(ctx); err != nil {
			observability.LogEvent(ctx, "error", "strategy_stop_failed", map[string]any{
				"strategy_id": e.strategyOrder[i],
				"error":       err.Error(),
			})
		}
	}
	_, err := e.machine.Apply(fsm.EngineActionStop)
	return err
}

var _ strategy.EngineAPI = (*Engine)(nil)
