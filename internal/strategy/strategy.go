// Package strategy implements the Multi-Feed Merger (spec.md §4.B) and
// Strategy Lifecycle (§4.I): the callback contract a Strategy implements,
// and the Runtime the Engine drives it through.
//
// Grounded in original_source/src/suite_trading/strategy/strategy.py (the
// callback contract) and strategy_state_machine.py (the lifecycle), with
// the selector style borrowed from libs/eventtrader/eventtrader.go minus
// its mutex: the merger is only called from the Engine's single goroutine.
package strategy

import (
	"context"
	"fmt"

	"jax-eventengine/internal/domain"
)

// Strategy is the callback contract invoked exclusively by the Engine
// (spec.md §4.I). Each method is single-threaded and may freely mutate the
// implementation's own state. An error returned from OnStart, OnEvent or
// OnExecution transitions the owning Runtime to ERROR; an OnStop error
// during Runtime.Stop is logged and the strategy still ends STOPPED.
type Strategy interface {
	OnStart(ctx context.Context, rt *Runtime) error
	OnEvent(ctx context.Context, evt domain.Event) error
	OnExecution(ctx context.Context, exec domain.Execution) error
	OnStop(ctx context.Context) error
}

// EngineAPI is the subset of the Trading Engine a Runtime delegates to for
// order submission (spec.md §4.I "submit_order(order, broker) — delegates
// to the Engine, which records the routing pair and forwards to
// broker.submit_order").
type EngineAPI interface {
	SubmitOrder(ctx context.Context, strategyKey string, order *domain.Order, brokerKey string) error
}

// ErrNotRunning is returned by Runtime.SubmitOrder when called outside the
// RUNNING state (spec.md §4.I "FSM guards: submitting an order while not
// RUNNING fails fast").
var ErrNotRunning = fmt.Errorf("%w: strategy is not RUNNING", domain.ErrInvalidTransition)
