package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

const (
	recordEntrySQL = `
INSERT INTO checkout_ledger (event_type, order_id, payment_id, amount, currency, detail, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listEntriesSQL = `
SELECT event_type, order_id, payment_id, amount, currency, detail, recorded_at
FROM checkout_ledger
WHERE order_id = $1
ORDER BY id`
)

var _ checkout.Ledger = (*Ledger)(nil)

// Ledger implements checkout.Ledger on the checkout_ledger table.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger backed by pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Record appends e.
func (l *Ledger) Record(ctx context.Context, e checkout.Entry) error {
	currency := e.Amount.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.pool.Exec(ctx, recordEntrySQL,
		string(e.Type), e.OrderID, e.PaymentID, e.Amount.Amount, currency, e.Detail, at,
	)
	if err != nil {
		return errors.Wrapf(err, "record %s for order %q", e.Type, e.OrderID)
	}
	return nil
}

type entryRow struct {
	EventType  string
	OrderID    string
	PaymentID  string
	Amount     decimal.Decimal
	Currency   string
	Detail     string
	RecordedAt time.Time
}

// Entries returns the entries for orderID in insertion order.
func (l *Ledger) Entries(ctx context.Context, orderID string) ([]checkout.Entry, error) {
	rows, err := l.pool.Query(ctx, listEntriesSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "list ledger for order %q", orderID)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entryRow])
	if err != nil {
		return nil, errors.Wrap(err, "scan ledger")
	}

	entries := make([]checkout.Entry, len(collected))
	for i, r := range collected {
		entries[i] = checkout.Entry{
			Type:      checkout.EventType(r.EventType),
			OrderID:   r.OrderID,
			PaymentID: r.PaymentID,
			Amount:    money.Money{Amount: r.Amount, Currency: r.Currency},
			Detail:    r.Detail,
			At:        r.RecordedAt,
		}
	}
	return entries, nil
}
