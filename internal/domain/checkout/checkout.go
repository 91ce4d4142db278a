package checkout

import (
	"context"
	"time"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// PickupType selects how the pickup time is chosen.
type PickupType string

const (
	PickupASAP      PickupType = "ASAP"
	PickupScheduled PickupType = "SCHEDULED"
)

// Order states used by the orchestrator.
const (
	StateOpen      = "OPEN"
	StateCompleted = "COMPLETED"
)

// Pickup is the customer's pickup choice. Time is only read for scheduled
// pickups.
type Pickup struct {
	Type PickupType
	Time time.Time
}

// Customer identifies who collects the order.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// DisplayName is "first last" without stray spaces.
func (c Customer) DisplayName() string {
	switch {
	case c.LastName == "":
		return c.FirstName
	case c.FirstName == "":
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}

// LineItem is one cart row sent to the vendor.
type LineItem struct {
	CatalogObjectID string
	Name            string
	VariationName   string
	Quantity        int
	// Price is informational only; the vendor prices the order itself.
	Price money.Money
}

// OrderRequest is the input for creating a vendor order.
type OrderRequest struct {
	Items    []LineItem
	Customer Customer
	Pickup   Pickup
	Note     string
}

// Request is the input for the combined checkout.
type Request struct {
	OrderRequest
	SourceID string
}

// PayRequest charges an existing order.
type PayRequest struct {
	OrderID  string
	SourceID string
	Customer Customer
}

// Fulfillment is the pickup block attached to a new order.
type Fulfillment struct {
	RecipientName string
	Email         string
	Phone         string
	PickupAt      time.Time
	Note          string
}

// NewOrder is a vendor order creation request.
type NewOrder struct {
	IdempotencyKey string
	LineItems      []LineItem
	Fulfillment    Fulfillment
	Metadata       map[string]string
}

// Order is the vendor's view of an order. Total and NetAmountDue are nil when
// the vendor omits them.
type Order struct {
	ID           string
	Version      int64
	State        string
	Total        *money.Money
	NetAmountDue *money.Money
	CreatedAt    time.Time
}

// AmountDue prefers the net amount due over the gross total.
func (o *Order) AmountDue() (money.Money, bool) {
	switch {
	case o.NetAmountDue != nil:
		return *o.NetAmountDue, true
	case o.Total != nil:
		return *o.Total, true
	}
	return money.Money{}, false
}

// NewPayment is a vendor payment creation request.
type NewPayment struct {
	IdempotencyKey string
	SourceID       string
	OrderID        string
	Amount         money.Money
	BuyerEmail     string
	Autocomplete   bool
}

// Card is a masked card summary.
type Card struct {
	Brand string
	Last4 string
}

// Payment is the vendor's view of a payment.
type Payment struct {
	ID         string
	OrderID    string
	Status     string
	Amount     money.Money
	Total      *money.Money
	ReceiptURL string
	Card       *Card
	CreatedAt  time.Time
}

// Charged is the total when present, otherwise the requested amount.
func (p *Payment) Charged() money.Money {
	if p.Total != nil {
		return *p.Total
	}
	if p.Amount.Currency == "" {
		return money.Zero(money.DefaultCurrency)
	}
	return p.Amount
}

// Vendor is the payments platform the orchestrator drives.
type Vendor interface {
	CreateOrder(ctx context.Context, req NewOrder) (*Order, error)
	RetrieveOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrderState moves order id to state. version must be the latest
	// read version or the vendor rejects the update.
	UpdateOrderState(ctx context.Context, id string, version int64, state, idempotencyKey string) (*Order, error)
	CreatePayment(ctx context.Context, req NewPayment) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// Receipt is returned after a successful charge. OrderState is only
// COMPLETED when the completion update itself succeeded.
type Receipt struct {
	PaymentID      string
	Status         string
	OrderID        string
	ReceiptURL     string
	Amount         money.Money
	Card           *Card
	OrderState     string
	OrderCompleted bool
	CreatedAt      time.Time
}

// PlacedOrder is returned by CreateOrder.
type PlacedOrder struct {
	OrderID   string
	Version   int64
	State     string
	Total     money.Money
	AmountDue money.Money
}

// OrderSummary is the best-effort order view attached to payment details.
type OrderSummary struct {
	ID        string
	State     string
	CreatedAt time.Time
}

// PaymentDetails is a payment with its order, when the order could be read.
type PaymentDetails struct {
	Payment *Payment
	Order   *OrderSummary
}
