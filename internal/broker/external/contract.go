// Package external implements the External Broker contract (spec.md §6
// "Broker contract": connect/disconnect/is_connected, submit_order/
// cancel_order/modify_order/get_active_orders) for live/paper brokers
// sitting outside the deterministic SimBroker pipeline.
//
// Concrete adapters (internal/broker/external/alpaca,
// internal/broker/external/ib) wrap a vendor SDK behind this contract;
// Wrap decorates any of them with a circuit breaker so a misbehaving
// upstream never wedges the caller (spec.md §5 "External broker
// implementations... must be wrapped in a boundary", grounded in
// libs/resilience/circuitbreaker.go).
package external

import (
	"context"

	"jax-eventengine/internal/domain"
)

// Broker is the External Broker contract. Unlike engine.Broker (which
// pulls executions synchronously off IngestEvent for the deterministic
// sim loop), a live Broker reports fills asynchronously out of band; this
// contract only covers the connect/order-management surface spec.md §6
// names.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	SubmitOrder(ctx context.Context, order *domain.Order) error
	CancelOrder(ctx context.Context, order *domain.Order) error
	ModifyOrder(ctx context.Context, order *domain.Order) error
	GetActiveOrders(ctx context.Context) ([]domain.Order, error)
}
