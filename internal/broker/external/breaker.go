package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"jax-eventengine/internal/domain"
)

// BreakerConfig configures the circuit breaker wrapping a live Broker's
// blocking calls. Mirrors libs/resilience/circuitbreaker.go's
// CircuitBreakerConfig field-for-field.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

// DefaultBreakerConfig returns the same defaults as
// libs/resilience/circuitbreaker.go's DefaultConfig.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		MaxFailures: 5,
	}
}

// guarded wraps an underlying Broker with a gobreaker.CircuitBreaker so
// repeated connection/order failures trip the breaker instead of
// cascading into the caller on every retry.
type guarded struct {
	inner Broker
	cb    *gobreaker.CircuitBreaker[any]
}

// Wrap decorates inner with a circuit breaker built from cfg. The
// returned Broker satisfies the same contract and is safe to substitute
// anywhere a plain Broker is expected.
func Wrap(inner Broker, cfg BreakerConfig) Broker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && (counts.ConsecutiveFailures >= cfg.MaxFailures || failureRatio >= 0.6)
		},
	}
	return &guarded{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (g *guarded) execute(fn func() (any, error)) error {
	_, err := g.cb.Execute(fn)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return nil
}

func (g *guarded) Connect(ctx context.Context) error {
	return g.execute(func() (any, error) { return nil, g.inner.Connect(ctx) })
}

func (g *guarded) Disconnect(ctx context.Context) error {
	return g.inner.Disconnect(ctx)
}

func (g *guarded) IsConnected() bool {
	return g.inner.IsConnected()
}

func (g *guarded) SubmitOrder(ctx context.Context, order *domain.Order) error {
	return g.execute(func() (any, error) { return nil, g.inner.SubmitOrder(ctx, order) })
}

func (g *guarded) CancelOrder(ctx context.Context, order *domain.Order) error {
	return g.execute(func() (any, error) { return nil, g.inner.CancelOrder(ctx, order) })
}

func (g *guarded) ModifyOrder(ctx context.Context, order *domain.Order) error {
	return g.execute(func() (any, error) { return nil, g.inner.ModifyOrder(ctx, order) })
}

func (g *guarded) GetActiveOrders(ctx context.Context) ([]domain.Order, error) {
	result, err := g.cb.Execute(func() (any, error) { return g.inner.GetActiveOrders(ctx) })
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	return result.([]domain.Order), nil
}

var _ Broker = (*guarded)(nil)
