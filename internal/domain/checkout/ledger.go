package checkout

import (
	"context"
	"time"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// EventType classifies ledger entries and notifications.
type EventType string

const (
	EventOrderCreated         EventType = "order_created"
	EventPaid                 EventType = "paid"
	EventPaymentFailed        EventType = "payment_failed"
	EventReconciliationFailed EventType = "reconciliation_failed"
)

// Entry is one ledger row. Orders created before a failed payment are kept in
// the ledger for manual reconciliation.
type Entry struct {
	Type      EventType
	OrderID   string
	PaymentID string
	Amount    money.Money
	Detail    string
	At        time.Time
}

// Ledger records checkout progress. Write failures never fail a checkout.
type Ledger interface {
	Record(ctx context.Context, e Entry) error
}

// Event is published after a payment settles or reconciliation fails.
type Event struct {
	Type     EventType
	Receipt  *Receipt
	OrderID  string
	Customer Customer
	Items    []LineItem
	Reason   string
	At       time.Time
}

// Notifier delivers checkout events. Delivery failures never fail a checkout.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Notifiers fans an event out to every notifier, returning the first error.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, e Event) error {
	var first error
	for _, n := range ns {
		if err := n.Notify(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopLedger struct{}

func (nopLedger) Record(context.Context, Entry) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }
