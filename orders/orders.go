// Package orders provides the payment/order back-office views: orders taken
// during calls and their payments, including supervisor-initiated refunds.
package orders

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

const (
	resourceOrders   = "orders"
	resourcePayments = "payments"
)

// Order is a backend-owned record; only the rendered fields are declared.
type Order struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	AgentID      string    `json:"agentId"`
	TotalCents   int64     `json:"totalCents"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Payment is a backend-owned record tied to one order.
type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type orderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

type paymentListResponse struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
}

// Client reads and writes order resources through the shared pipeline and
// cache.
type Client struct {
	pipeline *transport.Pipeline
	cache    *query.Cache
}

// New creates an orders client over the shared pipeline and cache.
func New(pipeline *transport.Pipeline, cache *query.Cache) (*Client, error) {
	if pipeline == nil {
		return nil, errors.New("[orders.New] pipeline is required")
	}
	if cache == nil {
		return nil, errors.New("[orders.New] cache is required")
	}
	return &Client{pipeline: pipeline, cache: cache}, nil
}

// List returns orders matching the given filters.
func (c *Client) List(ctx context.Context, limit, offset int, filters map[string]string) ([]Order, error) {
	key := query.NewKey(resourceOrders, limit, offset, filters)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Order, error) {
		params := map[string]string{
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(offset),
		}
		for k, v := range filters {
			params[k] = v
		}
		var resp orderListResponse
		if err := c.pipeline.Get(ctx, "/orders", params, &resp); err != nil {
			return nil, err
		}
		return resp.Orders, nil
	})
}

// Get returns one order.
func (c *Client) Get(ctx context.Context, orderID string) (*Order, error) {
	key := query.NewKey(resourceOrders, orderID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) (*Order, error) {
		var order Order
		if err := c.pipeline.Get(ctx, "/orders/"+orderID, nil, &order); err != nil {
			return nil, err
		}
		return &order, nil
	})
}

// Payments returns the payments recorded against one order.
func (c *Client) Payments(ctx context.Context, orderID string) ([]Payment, error) {
	key := query.NewKey(resourcePayments, orderID)
	return query.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Payment, error) {
		var resp paymentListResponse
		if err := c.pipeline.Get(ctx, "/orders/"+orderID+"/payments", nil, &resp); err != nil {
			return nil, err
		}
		return resp.Payments, nil
	})
}

// RefundPayment reverses a payment. The payment list and the owning order
// are invalidated; the back-office view converges from the refetch.
func (c *Client) RefundPayment(ctx context.Context, orderID, paymentID string) (*Payment, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Payment, error) {
		var payment Payment
		if err := c.pipeline.Post(ctx, "/payments/"+paymentID+"/refund", nil, &payment); err != nil {
			return nil, err
		}
		return &payment, nil
	}, query.MutationOptions{
		Invalidates: []query.Key{
			query.NewKey(resourcePayments, orderID),
			query.NewKey(resourceOrders, orderID),
		},
		InvalidatesPrefixes: []string{resourceOrders},
	})
}

// UpdateStatus moves an order through its fulfilment states.
func (c *Client) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	return query.Mutate(ctx, c.cache, func(ctx context.Context) (*Order, error) {
		var order Order
		body := struct {
			Status string `json:"status"`
		}{Status: status}
		if err := c.pipeline.Patch(ctx, "/orders/"+orderID+"/status", body, &order); err != nil {
			return nil, err
		}
		return &order, nil
	}, query.MutationOptions{
		Invalidates:         []query.Key{query.NewKey(resourceOrders, orderID)},
		InvalidatesPrefixes: []string{resourceOrders},
	})
}
