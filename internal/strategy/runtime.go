package strategy

import (
	"context"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/eventfeed"
	"jax-eventengine/internal/fsm"
	"jax-eventengine/internal/observability"
)

// Runtime wraps one Strategy implementation with its lifecycle FSM and its
// merged set of event feeds. The Engine owns a Runtime per strategy and is
// the only caller of its exported methods; Runtime never spawns goroutines
// of its own (spec.md §4.I, §5).
type Runtime struct {
	Key      string
	strategy Strategy
	machine  *fsm.StrategyMachine
	merger   *merger
	engine   EngineAPI
}

// NewRuntime constructs a Runtime at StrategyNew, not yet added to an
// Engine.
func NewRuntime(key string, impl Strategy, engine EngineAPI) *Runtime {
	return &Runtime{
		Key:      key,
		strategy: impl,
		machine:  fsm.NewStrategyMachine(),
		merger:   newMerger(),
		engine:   engine,
	}
}

// State returns the current lifecycle state.
func (r *Runtime) State() fsm.StrategyState {
	return r.machine.State()
}

// AddEventFeed registers feed under key so the merger considers it on every
// subsequent dispatch. Valid in any state; a strategy commonly adds its
// primary feeds before Start and additional feeds once RUNNING. When
// drivesSimulatedFills is true, the Engine forwards every event this feed
// produces to its registered SimBroker(s) in addition to this strategy's
// OnEvent (spec.md §4.I "use_for_simulated_fills").
//
// Registering a feed after Start has already consumed events from others
// requires the caller to trim it first via feed.RemoveEventsBefore(cutoff)
// — the Runtime does not infer strategy_now on the caller's behalf.
func (r *Runtime) AddEventFeed(key string, feed eventfeed.Feed, drivesSimulatedFills bool) error {
	return r.merger.add(key, feed, drivesSimulatedFills)
}

// RemoveEventFeed detaches and closes the feed registered under key.
func (r *Runtime) RemoveEventFeed(key string) error {
	feed, err := r.merger.remove(key)
	if err != nil {
		return err
	}
	feed.Close()
	return nil
}

// SubmitOrder delegates to the owning Engine, which records the
// (strategy, broker) routing pair before forwarding to the broker (spec.md
// §4.I, §4.L). Rejected with ErrNotRunning unless the strategy is RUNNING.
func (r *Runtime) SubmitOrder(ctx context.Context, order *domain.Order, brokerKey string) error {
	if r.machine.State() != fsm.StrategyRunning {
		return ErrNotRunning
	}
	return r.engine.SubmitOrder(ctx, r.Key, order, brokerKey)
}

// Add transitions NEW -> ADDED (spec.md §4.I, invoked once by Engine.AddStrategy).
func (r *Runtime) Add() error {
	_, err := r.machine.Apply(fsm.StrategyActionAdd)
	return err
}

// Start transitions ADDED -> RUNNING and invokes the strategy's OnStart
// callback. A callback error fails the transition to ERROR and is
// returned to the caller.
func (r *Runtime) Start(ctx context.Context) error {
	if _, err := r.machine.Apply(fsm.StrategyActionStart); err != nil {
		return err
	}
	if err := r.strategy.OnStart(ctx, r); err != nil {
		r.fail(ctx, err)
		return err
	}
	return nil
}

// NextEventReady reports whether the merger has an event ready to dispatch
// without consuming it.
func (r *Runtime) NextEventReady() bool {
	_, _, _, ok := r.merger.next()
	return ok
}

// PeekDtEvent returns the next ready event across all registered feeds
// without consuming it, used by the Engine's global scheduling selection
// (spec.md §4.J). ok is false when nothing is ready.
func (r *Runtime) PeekDtEvent() (evt domain.Event, ok bool) {
	_, evt, _, ready := r.merger.next()
	return evt, ready
}

// DispatchNext pops the next ready event from whichever feed produced it
// and invokes OnEvent. drivesFills reports whether the originating feed was
// registered with drivesSimulatedFills=true, telling the Engine whether to
// also forward evt to its SimBroker(s). A callback error transitions the
// strategy to ERROR.
func (r *Runtime) DispatchNext(ctx context.Context) (dispatched domain.Event, drivesFills bool, ok bool, err error) {
	key, _, drives, ready := r.merger.next()
	if !ready {
		return domain.Event{}, false, false, nil
	}
	evt, popped := r.merger.pop(key)
	if !popped {
		return domain.Event{}, false, false, nil
	}
	if err := r.strategy.OnEvent(ctx, evt); err != nil {
		r.fail(ctx, err)
		return evt, drives, true, err
	}
	return evt, drives, true, nil
}

// DeliverExecution invokes OnExecution for a fill routed back from a
// broker (spec.md §4.J step 4). A callback error transitions the strategy
// to ERROR.
func (r *Runtime) DeliverExecution(ctx context.Context, exec domain.Execution) error {
	if err := r.strategy.OnExecution(ctx, exec); err != nil {
		r.fail(ctx, err)
		return err
	}
	return nil
}

// Finished reports whether every registered feed has been fully drained.
func (r *Runtime) Finished() bool {
	return r.merger.finished()
}

// Stop transitions RUNNING -> STOPPED and invokes OnStop best-effort: a
// callback error is logged but never prevents the transition, since Stop
// is terminal bookkeeping (spec.md §4.I "on_stop ... even on the
// error path").
func (r *Runtime) Stop(ctx context.Context) error {
	stopErr := r.strategy.OnStop(ctx)
	if stopErr != nil {
		observability.LogStrategyError(ctx, r.Key, stopErr)
	}
	if _, err := r.machine.Apply(fsm.StrategyActionStop); err != nil {
		return err
	}
	return stopErr
}

// fail transitions the strategy to ERROR from whatever state it currently
// occupies, logs the triggering error, and invokes OnStop best-effort
// (spec.md §4.I "any exception escaping a callback transitions the
// strategy to ERROR, triggers on_stop (best-effort)"). OnStop's own error,
// if any, is logged and otherwise swallowed — ERROR is already terminal
// and ignores any further FSM action.
func (r *Runtime) fail(ctx context.Context, cause error) {
	observability.LogStrategyError(ctx, r.Key, cause)
	if _, err := r.machine.Apply(fsm.StrategyActionFail); err != nil {
		observability.LogEvent(ctx, "error", "strategy_fail_transition_failed", map[string]any{
			"strategy_id": r.Key,
			"cause":       cause.Error(),
			"error":       err.Error(),
		})
	}
	if stopErr := r.strategy.OnStop(ctx); stopErr != nil {
		observability.LogStrategyError(ctx, r.Key, stopErr)
	}
}
