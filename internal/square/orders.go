package square

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

// CreateOrder creates an OPEN pickup order at the client's location.
func (c *Client) CreateOrder(ctx context.Context, req checkout.NewOrder) (*checkout.Order, error) {
	lines := make([]*sq.OrderLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		line := &sq.OrderLineItem{
			Quantity:        strconv.Itoa(li.Quantity),
			CatalogObjectID: sq.String(li.CatalogObjectID),
		}
		if li.VariationName != "" {
			line.Note = sq.String(li.VariationName)
		}
		lines = append(lines, line)
	}

	f := req.Fulfillment
	recipient := &sq.FulfillmentRecipient{DisplayName: sq.String(f.RecipientName)}
	if f.Email != "" {
		recipient.EmailAddress = sq.String(f.Email)
	}
	if f.Phone != "" {
		recipient.PhoneNumber = sq.String(f.Phone)
	}
	pickup := &sq.FulfillmentPickupDetails{
		Recipient: recipient,
		PickupAt:  sq.String(f.PickupAt.UTC().Format(time.RFC3339)),
	}
	if f.Note != "" {
		pickup.Note = sq.String(f.Note)
	}

	order := &sq.Order{
		LocationID: c.location,
		State:      sq.OrderStateOpen.Ptr(),
		LineItems:  lines,
		Fulfillments: []*sq.Fulfillment{{
			Type:          sq.FulfillmentTypePickup.Ptr(),
			State:         sq.FulfillmentStateProposed.Ptr(),
			PickupDetails: pickup,
		}},
	}
	if len(req.Metadata) > 0 {
		order.Metadata = make(map[string]*string, len(req.Metadata))
		for k, v := range req.Metadata {
			order.Metadata[k] = sq.String(v)
		}
	}

	resp, err := c.api.Orders.Create(ctx, &sq.CreateOrderRequest{
		Order:          order,
		IdempotencyKey: sq.String(req.IdempotencyKey),
	})
	if err != nil {
		return nil, errors.Wrap(vendorError(err), "create order")
	}
	return orderFromSquare(resp.GetOrder(), resp.GetErrors())
}

// RetrieveOrder fetches an order by id.
func (c *Client) RetrieveOrder(ctx context.Context, id string) (*checkout.Order, error) {
	resp, err := c.api.Orders.Get(ctx, &sq.GetOrdersRequest{OrderID: id})
	if err != nil {
		return nil, errors.Wrapf(vendorError(err), "retrieve order %s", id)
	}
	return orderFromSquare(resp.GetOrder(), resp.GetErrors())
}

// UpdateOrderState sparsely updates the order state at version.
func (c *Client) UpdateOrderState(ctx context.Context, id string, version int64, state, idempotencyKey string) (*checkout.Order, error) {
	resp, err := c.api.Orders.Update(ctx, &sq.UpdateOrderRequest{
		OrderID: id,
		Order: &sq.Order{
			LocationID: c.location,
			Version:    sq.Int(int(version)),
			State:      sq.OrderState(state).Ptr(),
		},
		IdempotencyKey: sq.String(idempotencyKey),
	})
	if err != nil {
		return nil, errors.Wrapf(vendorError(err), "update order %s", id)
	}
	return orderFromSquare(resp.GetOrder(), resp.GetErrors())
}

// CreatePayment charges req.SourceID for req.Amount against the order.
func (c *Client) CreatePayment(ctx context.Context, req checkout.NewPayment) (*checkout.Payment, error) {
	amount, err := moneyToSquare(req.Amount)
	if err != nil {
		return nil, err
	}
	body := &sq.CreatePaymentRequest{
		SourceID:       req.SourceID,
		IdempotencyKey: req.IdempotencyKey,
		AmountMoney:    amount,
		LocationID:     sq.String(c.location),
		Autocomplete:   sq.Bool(req.Autocomplete),
	}
	if req.OrderID != "" {
		body.OrderID = sq.String(req.OrderID)
	}
	if req.BuyerEmail != "" {
		body.BuyerEmailAddress = sq.String(req.BuyerEmail)
	}

	resp, err := c.api.Payments.Create(ctx, body)
	if err != nil {
		return nil, errors.Wrap(vendorError(err), "create payment")
	}
	return paymentFromSquare(resp.GetPayment(), resp.GetErrors())
}

// GetPayment fetches a payment by id.
func (c *Client) GetPayment(ctx context.Context, id string) (*checkout.Payment, error) {
	resp, err := c.api.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: id})
	if err != nil {
		return nil, errors.Wrapf(vendorError(err), "get payment %s", id)
	}
	return paymentFromSquare(resp.GetPayment(), resp.GetErrors())
}

func orderFromSquare(o *sq.Order, errs []*sq.Error) (*checkout.Order, error) {
	if o == nil {
		return nil, envelopeError(errs, "response carries no order")
	}
	out := &checkout.Order{
		ID:           deref(o.ID),
		Total:        moneyFromSquare(o.TotalMoney),
		NetAmountDue: moneyFromSquare(o.NetAmountDueMoney),
	}
	if o.Version != nil {
		out.Version = int64(*o.Version)
	}
	if o.State != nil {
		out.State = string(*o.State)
	}
	var err error
	if out.CreatedAt, err = parseTime(o.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return out, nil
}

func paymentFromSquare(p *sq.Payment, errs []*sq.Error) (*checkout.Payment, error) {
	if p == nil {
		return nil, envelopeError(errs, "Payment processing failed")
	}
	out := &checkout.Payment{
		ID:         deref(p.ID),
		OrderID:    deref(p.OrderID),
		Status:     deref(p.Status),
		Total:      moneyFromSquare(p.TotalMoney),
		ReceiptURL: deref(p.ReceiptURL),
	}
	if m := moneyFromSquare(p.AmountMoney); m != nil {
		out.Amount = *m
	}
	if cd := p.CardDetails; cd != nil && cd.Card != nil {
		out.Card = &checkout.Card{Last4: deref(cd.Card.Last4)}
		if cd.Card.CardBrand != nil {
			out.Card.Brand = string(*cd.Card.CardBrand)
		}
	}
	var err error
	if out.CreatedAt, err = parseTime(p.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "decode payment")
	}
	return out, nil
}

// moneyFromSquare returns nil when m carries no amount. A missing currency
// defaults to USD.
func moneyFromSquare(m *sq.Money) *money.Money {
	if m == nil || m.Amount == nil {
		return nil
	}
	currency := money.DefaultCurrency
	if m.Currency != nil && *m.Currency != "" {
		currency = string(*m.Currency)
	}
	out := money.New(*m.Amount, currency)
	return &out
}

// moneyToSquare narrows m to the SDK's int64 minor units.
func moneyToSquare(m money.Money) (*sq.Money, error) {
	minor := m.Amount.IntPart()
	if !m.Amount.Equal(decimal.NewFromInt(minor)) {
		return nil, &failure.VendorError{
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_AMOUNT",
			Message:    "Invalid order amount",
		}
	}
	currency := m.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &sq.Money{
		Amount:   sq.Int64(minor),
		Currency: sq.Currency(currency).Ptr(),
	}, nil
}

func parseTime(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse time %q", *s)
	}
	return t, nil
}
