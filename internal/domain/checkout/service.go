// Package checkout turns a cart into a paid vendor order: validate locally,
// create the order, charge the tokenized card and optionally complete the
// order.
package checkout

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
	"github.com/xenking/molino-storefront/internal/domain/phone"
)

// Config holds checkout policy.
type Config struct {
	// CompleteOrders advances paid orders to COMPLETED. When false, paid
	// orders stay OPEN for staff to fulfil at the point of sale.
	CompleteOrders bool
	// ScheduleLead is the minimum distance of a scheduled pickup from now.
	ScheduleLead time.Duration
	// ASAPEstimate is added to now for ASAP pickups.
	ASAPEstimate time.Duration
	// OrderSource tags orders with their sales channel.
	OrderSource string
}

// DefaultConfig returns the storefront's checkout policy.
func DefaultConfig() Config {
	return Config{
		ScheduleLead: 30 * time.Minute,
		ASAPEstimate: 15 * time.Minute,
		OrderSource:  "Online Ordering Site",
	}
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the checkout policy.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLedger records checkout progress to l.
func WithLedger(l Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithNotifier delivers checkout events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("molino/checkout") }
}

// WithMeterProvider sets the meter provider for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("molino/checkout") }
}

// Service orchestrates order creation and payment against the vendor.
type Service struct {
	vendor   Vendor
	ledger   Ledger
	notifier Notifier
	cfg      Config

	tracer   trace.Tracer
	meter    metric.Meter
	payments metric.Int64Counter

	now    func() time.Time
	newKey func() string
}

// NewService creates a checkout Service.
func NewService(vendor Vendor, opts ...Option) *Service {
	s := &Service{
		vendor:   vendor,
		ledger:   nopLedger{},
		notifier: nopNotifier{},
		cfg:      DefaultConfig(),
		tracer:   tracenoop.NewTracerProvider().Tracer("molino/checkout"),
		meter:    metricnoop.NewMeterProvider().Meter("molino/checkout"),
		now:      time.Now,
		newKey:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	counter, err := s.meter.Int64Counter("molino.checkout.payments",
		metric.WithDescription("Checkout payment attempts by outcome"),
	)
	if err != nil {
		counter, _ = metricnoop.NewMeterProvider().Meter("").Int64Counter("")
	}
	s.payments = counter
	return s
}

// Checkout validates req, creates the order, charges req.SourceID for the
// amount due and returns the receipt. Vendor errors abort the flow and are
// not retried; an order created before a failed charge is left as is.
func (s *Service) Checkout(ctx context.Context, req Request) (_ *Receipt, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout")
	defer func() { endSpan(span, rerr) }()

	pickupAt, err := s.validateOrder(req.OrderRequest)
	if err != nil {
		return nil, err
	}
	if req.SourceID == "" {
		return nil, failure.Invalid("sourceId", "Payment source ID is required")
	}

	order, err := s.placeOrder(ctx, req.OrderRequest, pickupAt)
	if err != nil {
		return nil, err
	}
	amount, ok := order.AmountDue()
	if !ok {
		return nil, errInvalidAmount
	}
	return s.charge(ctx, order, amount, req.SourceID, req.Customer, req.Items)
}

// CreateOrder validates req and creates the vendor order without charging.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (_ *PlacedOrder, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CreateOrder")
	defer func() { endSpan(span, rerr) }()

	pickupAt, err := s.validateOrder(req)
	if err != nil {
		return nil, err
	}
	order, err := s.placeOrder(ctx, req, pickupAt)
	if err != nil {
		return nil, err
	}
	due, ok := order.AmountDue()
	if !ok {
		return nil, errInvalidAmount
	}
	total := due
	if order.Total != nil {
		total = *order.Total
	}
	return &PlacedOrder{
		OrderID:   order.ID,
		Version:   order.Version,
		State:     order.State,
		Total:     total,
		AmountDue: due,
	}, nil
}

// Pay charges an existing order for its amount due.
func (s *Service) Pay(ctx context.Context, req PayRequest) (_ *Receipt, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Pay", trace.WithAttributes(
		attribute.String("order.id", req.OrderID),
	))
	defer func() { endSpan(span, rerr) }()

	switch {
	case req.OrderID == "":
		return nil, failure.Invalid("orderId", "Order ID is required")
	case req.SourceID == "":
		return nil, failure.Invalid("sourceId", "Payment source ID is required")
	case req.Customer.Email != "" && !isBareAddress(req.Customer.Email):
		return nil, failure.Invalid("customerDetails.email", "Please enter a valid email address")
	}

	order, err := s.vendor.RetrieveOrder(ctx, req.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "retrieve order")
	}
	amount, ok := order.AmountDue()
	if !ok {
		return nil, errInvalidAmount
	}
	return s.charge(ctx, order, amount, req.SourceID, req.Customer, nil)
}

// PaymentDetails returns payment id with a best-effort summary of its order.
func (s *Service) PaymentDetails(ctx context.Context, paymentID string) (_ *PaymentDetails, rerr error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PaymentDetails")
	defer func() { endSpan(span, rerr) }()

	if paymentID == "" {
		return nil, failure.Invalid("id", "Payment ID is required")
	}
	p, err := s.vendor.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "get payment")
	}

	out := &PaymentDetails{Payment: p}
	if p.OrderID == "" {
		return out, nil
	}
	o, err := s.vendor.RetrieveOrder(ctx, p.OrderID)
	if err != nil {
		zctx.From(ctx).Warn("Retrieve order for payment details",
			zap.String("payment_id", paymentID),
			zap.String("order_id", p.OrderID),
			zap.Error(err),
		)
		return out, nil
	}
	out.Order = &OrderSummary{ID: o.ID, State: o.State, CreatedAt: o.CreatedAt}
	return out, nil
}

var errInvalidAmount = &failure.VendorError{
	StatusCode: 400,
	Code:       "INVALID_AMOUNT",
	Message:    "Invalid order amount",
}

// validateOrder checks req without any network call and returns the pickup
// time to send to the vendor.
func (s *Service) validateOrder(req OrderRequest) (time.Time, error) {
	if len(req.Items) == 0 {
		return time.Time{}, failure.Invalid("items", "Order items are required")
	}
	for _, it := range req.Items {
		if it.CatalogObjectID == "" {
			return time.Time{}, failure.Invalid("items", "Every item needs a catalog id")
		}
		if it.Quantity <= 0 {
			return time.Time{}, failure.Invalid("items", "Quantity must be greater than 0")
		}
	}

	c := req.Customer
	if c.FirstName == "" {
		return time.Time{}, failure.Invalid("customer.firstName", "First name is required")
	}
	if !isBareAddress(c.Email) {
		return time.Time{}, failure.Invalid("customer.email", "Please enter a valid email address")
	}
	if !phone.IsValid(c.Phone) {
		return time.Time{}, failure.Invalid("customer.phone", "Please enter a valid phone number")
	}

	now := s.now()
	switch req.Pickup.Type {
	case PickupASAP:
		return now.Add(s.cfg.ASAPEstimate), nil
	case PickupScheduled:
		if req.Pickup.Time.IsZero() {
			break
		}
		if req.Pickup.Time.Before(now.Add(s.cfg.ScheduleLead)) {
			return time.Time{}, failure.Invalid("pickup.time",
				fmt.Sprintf("Please select a time at least %d minutes from now", int(s.cfg.ScheduleLead.Minutes())))
		}
		return req.Pickup.Time, nil
	}
	return time.Time{}, failure.Invalid("pickup", "Invalid pickup type or missing scheduled time")
}

// isBareAddress reports whether v is a plain addr-spec such as a@b.co.
// Display-name forms like "Ana <a@b.co>" parse but are rejected, since v is
// forwarded to the vendor verbatim.
func isBareAddress(v string) bool {
	addr, err := mail.ParseAddress(v)
	return err == nil && addr.Address == v
}

func (s *Service) placeOrder(ctx context.Context, req OrderRequest, pickupAt time.Time) (*Order, error) {
	lg := zctx.From(ctx)

	lines := make([]LineItem, len(req.Items))
	copy(lines, req.Items)

	order, err := s.vendor.CreateOrder(ctx, NewOrder{
		IdempotencyKey: "order_" + s.newKey(),
		LineItems:      lines,
		Fulfillment: Fulfillment{
			RecipientName: req.Customer.DisplayName(),
			Email:         req.Customer.Email,
			Phone:         phone.ForSquare(req.Customer.Phone),
			PickupAt:      pickupAt,
			Note:          req.Note,
		},
		Metadata: map[string]string{"orderSource": s.cfg.OrderSource},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if order == nil || order.ID == "" {
		return nil, &failure.VendorError{Message: "Failed to create order"}
	}

	lg.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("version", order.Version),
		zap.Time("pickup_at", pickupAt),
	)
	due, _ := order.AmountDue()
	s.record(ctx, Entry{Type: EventOrderCreated, OrderID: order.ID, Amount: due})
	return order, nil
}

func (s *Service) charge(
	ctx context.Context,
	order *Order,
	amount money.Money,
	sourceID string,
	customer Customer,
	items []LineItem,
) (*Receipt, error) {
	lg := zctx.From(ctx).With(zap.String("order_id", order.ID))

	p, err := s.vendor.CreatePayment(ctx, NewPayment{
		IdempotencyKey: "payment_" + s.newKey(),
		SourceID:       sourceID,
		OrderID:        order.ID,
		Amount:         amount,
		BuyerEmail:     customer.Email,
		Autocomplete:   true,
	})
	if err != nil {
		s.payments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		lg.Warn("Payment failed, order left for reconciliation", zap.Error(err))
		s.record(ctx, Entry{Type: EventPaymentFailed, OrderID: order.ID, Amount: amount, Detail: err.Error()})
		return nil, errors.Wrap(err, "create payment")
	}
	if p == nil || p.ID == "" {
		s.payments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		s.record(ctx, Entry{Type: EventPaymentFailed, OrderID: order.ID, Amount: amount, Detail: "empty payment"})
		return nil, &failure.VendorError{Message: "Payment processing failed"}
	}

	s.payments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "paid")))
	lg.Info("Payment captured",
		zap.String("payment_id", p.ID),
		zap.String("status", p.Status),
		zap.Stringer("amount", amount),
	)

	orderID := p.OrderID
	if orderID == "" {
		orderID = order.ID
	}
	receipt := &Receipt{
		PaymentID:  p.ID,
		Status:     p.Status,
		OrderID:    orderID,
		ReceiptURL: p.ReceiptURL,
		Amount:     p.Charged(),
		Card:       p.Card,
		OrderState: order.State,
		CreatedAt:  p.CreatedAt,
	}
	if receipt.OrderState == "" {
		receipt.OrderState = StateOpen
	}
	s.record(ctx, Entry{Type: EventPaid, OrderID: orderID, PaymentID: p.ID, Amount: receipt.Amount})

	if s.cfg.CompleteOrders {
		if err := s.complete(ctx, orderID); err != nil {
			rec := &failure.ReconciliationError{OrderID: orderID, Err: err}
			lg.Error("Order completion failed after payment", zap.Error(rec))
			s.record(ctx, Entry{Type: EventReconciliationFailed, OrderID: orderID, PaymentID: p.ID, Detail: err.Error()})
			s.notify(ctx, Event{Type: EventReconciliationFailed, OrderID: orderID, Reason: err.Error(), Receipt: receipt})
		} else {
			receipt.OrderState = StateCompleted
			receipt.OrderCompleted = true
		}
	}

	s.notify(ctx, Event{
		Type:     EventPaid,
		Receipt:  receipt,
		OrderID:  orderID,
		Customer: customer,
		Items:    items,
	})
	return receipt, nil
}

// complete re-reads the order version and advances it to COMPLETED.
func (s *Service) complete(ctx context.Context, orderID string) error {
	current, err := s.vendor.RetrieveOrder(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "re-read order version")
	}
	updated, err := s.vendor.UpdateOrderState(ctx, orderID, current.Version, StateCompleted, "order_update_"+s.newKey())
	if err != nil {
		return errors.Wrap(err, "update order state")
	}
	if updated != nil && updated.State != "" && updated.State != StateCompleted {
		return errors.Errorf("order state is %s after update", updated.State)
	}
	return nil
}

func (s *Service) record(ctx context.Context, e Entry) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.ledger.Record(ctx, e); err != nil {
		zctx.From(ctx).Warn("Record checkout ledger entry",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = s.now()
	}
	if err := s.notifier.Notify(ctx, e); err != nil {
		zctx.From(ctx).Warn("Deliver checkout event",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
