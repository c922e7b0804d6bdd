// Package alpaca adapts Alpaca's trading REST API to the External Broker
// contract (spec.md §6), following the connect/config shape of
// libs/marketdata/provider_alpaca.go (which wraps Alpaca's market-data
// client the same way).
package alpaca

import (
	"context"
	"fmt"
	"sync"

	alpacasdk "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"jax-eventengine/internal/broker/external"
	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/observability"
)

// Config holds the credentials and endpoint needed to reach Alpaca's
// trading API.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // paper: https://paper-api.alpaca.markets
}

// Broker implements external.Broker against Alpaca's trading REST API.
type Broker struct {
	config Config
	client *alpacasdk.Client
	health *resty.Client

	mu        sync.RWMutex
	connected bool

	// orderIDs maps a domain.Order's engine-assigned ID to the broker
	// order ID Alpaca returned, since the External Broker contract
	// identifies orders by the engine's own Order value.
	orderIDs map[string]string
}

// New constructs a disconnected Broker. Call Connect before submitting
// orders.
func New(cfg Config) *Broker {
	client := alpacasdk.NewClient(alpacasdk.ClientOpts{
		ApiKey:    cfg.APIKey,
		ApiSecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return &Broker{
		config:   cfg,
		client:   client,
		health:   resty.New().SetBaseURL(cfg.BaseURL),
		orderIDs: make(map[string]string),
	}
}

func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return nil
	}
	observability.LogEvent(ctx, "info", "alpaca_connecting", map[string]any{
		"config": b.config,
	})
	// A lightweight account fetch doubles as the connectivity check,
	// mirroring provider_alpaca.go's pattern of probing the account/
	// snapshot endpoint rather than maintaining a persistent socket.
	if _, err := b.client.GetAccount(); err != nil {
		return fmt.Errorf("%w: alpaca connect: %v", domain.ErrConnection, err)
	}
	b.connected = true
	return nil
}

func (b *Broker) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Broker) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Broker) SubmitOrder(ctx context.Context, order *domain.Order) error {
	if !b.IsConnected() {
		return fmt.Errorf("%w: alpaca broker not connected", domain.ErrConnection)
	}

	side := alpacasdk.Buy
	if order.Side == domain.Sell {
		side = alpacasdk.Sell
	}
	orderType := alpacasdk.Market
	switch order.Type {
	case domain.OrderLimit:
		orderType = alpacasdk.Limit
	case domain.OrderStop:
		orderType = alpacasdk.Stop
	case domain.OrderStopLimit:
		orderType = alpacasdk.StopLimit
	}

	req := alpacasdk.PlaceOrderRequest{
		Symbol:      order.Instrument.Name,
		Qty:         decimalPtr(order.Quantity),
		Side:        side,
		Type:        orderType,
		TimeInForce: timeInForce(order.TIF),
	}
	if order.LimitPrice != nil {
		req.LimitPrice = decimalPtr(*order.LimitPrice)
	}
	if order.StopPrice != nil {
		req.StopPrice = decimalPtr(*order.StopPrice)
	}

	placed, err := b.client.PlaceOrder(req)
	if err != nil {
		return fmt.Errorf("%w: alpaca submit_order: %v", domain.ErrConnection, err)
	}

	b.mu.Lock()
	b.orderIDs[order.ID.String()] = placed.ID
	b.mu.Unlock()
	order.State = domain.OrderSubmitted
	return nil
}

func (b *Broker) CancelOrder(ctx context.Context, order *domain.Order) error {
	brokerID, ok := b.lookupBrokerID(order)
	if !ok {
		return fmt.Errorf("%w: order %s has no known alpaca order id", domain.ErrUnknownEntity, order.ID)
	}
	if err := b.client.CancelOrder(brokerID); err != nil {
		return fmt.Errorf("%w: alpaca cancel_order: %v", domain.ErrConnection, err)
	}
	return nil
}

func (b *Broker) ModifyOrder(ctx context.Context, order *domain.Order) error {
	brokerID, ok := b.lookupBrokerID(order)
	if !ok {
		return fmt.Errorf("%w: order %s has no known alpaca order id", domain.ErrUnknownEntity, order.ID)
	}
	req := alpacasdk.ReplaceOrderRequest{
		Qty: decimalPtr(order.Quantity),
	}
	if order.LimitPrice != nil {
		req.LimitPrice = decimalPtr(*order.LimitPrice)
	}
	if _, err := b.client.ReplaceOrder(brokerID, req); err != nil {
		return fmt.Errorf("%w: alpaca modify_order: %v", domain.ErrConnection, err)
	}
	return nil
}

func (b *Broker) GetActiveOrders(ctx context.Context) ([]domain.Order, error) {
	status := "open"
	orders, err := b.client.GetOrders(alpacasdk.GetOrdersRequest{Status: status})
	if err != nil {
		return nil, fmt.Errorf("%w: alpaca get_active_orders: %v", domain.ErrConnection, err)
	}

	result := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, domain.Order{
			Side:  orderSide(o.Side),
			State: domain.OrderSubmitted,
		})
	}
	return result, nil
}

func (b *Broker) lookupBrokerID(order *domain.Order) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.orderIDs[order.ID.String()]
	return id, ok
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func timeInForce(tif domain.TimeInForce) alpacasdk.TimeInForce {
	switch tif {
	case domain.TIFGTC:
		return alpacasdk.GTC
	case domain.TIFIOC:
		return alpacasdk.IOC
	case domain.TIFFOK:
		return alpacasdk.FOK
	case domain.TIFGTD:
		return alpacasdk.GTD
	default:
		return alpacasdk.Day
	}
}

func orderSide(side alpacasdk.Side) domain.OrderSide {
	if side == alpacasdk.Sell {
		return domain.Sell
	}
	return domain.Buy
}

var _ external.Broker = (*Broker)(nil)
