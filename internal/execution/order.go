// Package execution models the order lifecycle and routes new orders to the
// paper simulator or the live broker.
package execution

import (
	"sync"
	"time"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusOpen      OrderStatus = "OPEN"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusFilled    OrderStatus = "FILLED"
	StatusClosed    OrderStatus = "CLOSED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusClosed, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// OrderEvent is one entry in an order's audit trail.
type OrderEvent struct {
	Ts      time.Time   `json:"ts"`
	Status  OrderStatus `json:"status"`
	Message string      `json:"message"`
}

// Order is the locally tracked lifecycle record reconciled against the
// broker's reported state. Events is append-only and never truncated within
// a process lifetime.
type Order struct {
	OrderID   string       `json:"order_id"`
	Symbol    string       `json:"symbol"`
	Side      string       `json:"side"`
	Qty       int          `json:"qty"`
	Price     float64      `json:"price"`
	Status    OrderStatus  `json:"status"`
	FilledQty int          `json:"filled_qty"`
	AvgPrice  float64      `json:"avg_price"`
	Events    []OrderEvent `json:"events"`
}

// Transition moves the order to a new status, recording the audit event.
func (o *Order) Transition(status OrderStatus, message string) {
	o.Status = status
	o.Events = append(o.Events, OrderEvent{Ts: time.Now(), Status: status, Message: message})
}

// Tracker is the shared map of locally known orders keyed by order ID. The
// router writes to it on placement; the reconciliation loop reads and
// updates it against broker polls.
type Tracker struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func NewTracker() *Tracker {
	return &Tracker{orders: map[string]*Order{}}
}

func (t *Tracker) Track(o *Order) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orders[o.OrderID] = o
}

func (t *Tracker) Get(orderID string) (*Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.orders[orderID]
	return o, ok
}

// All returns the tracked orders. Callers receive the live pointers; the
// reconciliation loop is the only mutator after placement.
func (t *Tracker) All() []*Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Order, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, o)
	}
	return out
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.orders)
}
