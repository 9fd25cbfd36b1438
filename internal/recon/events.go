// Package recon periodically diffs locally tracked orders and positions
// against broker-reported state and folds the differences back into the
// local ledger.
package recon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderUpdated   EventType = "ORDER_UPDATED"
	EventOrderFilled    EventType = "ORDER_FILLED"
	EventOrderCancelled EventType = "ORDER_CANCELLED"
	EventOrderRejected  EventType = "ORDER_REJECTED"
	EventDiscrepancy    EventType = "RECONCILIATION_DISCREPANCY"
	EventPositionSynced EventType = "POSITION_SYNCED"
)

// Event is one reconciliation outcome. Discrepancy events are audit trail,
// not control flow.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	OrderID      string    `json:"order_id,omitempty"`
	Symbol       string    `json:"symbol,omitempty"`
	BeforeStatus string    `json:"before_status,omitempty"`
	AfterStatus  string    `json:"after_status,omitempty"`
	Qty          int       `json:"qty,omitempty"`
	Price        float64   `json:"price,omitempty"`
	Message      string    `json:"message,omitempty"`
	Ts           time.Time `json:"ts"`
}

func newEvent(t EventType) Event {
	return Event{ID: uuid.NewString(), Type: t, Ts: time.Now()}
}

// eventLog keeps the most recent events for the dashboard.
type eventLog struct {
	mu     sync.Mutex
	events []Event
	max    int
}

func newEventLog(max int) *eventLog {
	return &eventLog{max: max}
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
}

func (l *eventLog) recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
