package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
	"github.com/xenking/molino-storefront/internal/oas"
)

// CreateOrder creates an unpaid order for later payment.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	onErr := errReply{Message: "Failed to create order", Hint: true}

	var req oas.OrderDetails
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, onErr)
		return
	}
	orderReq, err := orderFromOAS(req)
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}

	placed, err := h.checkout.CreateOrder(r.Context(), orderReq)
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}
	writeJSON(w, http.StatusOK, oas.OrderCreated{
		OrderID:      placed.OrderID,
		OrderVersion: placed.Version,
		Total:        placed.Total,
		AmountDue:    placed.AmountDue,
	})
}

// CreatePayment charges an order created by CreateOrder.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	onErr := errReply{Message: "Failed to process payment", NotFound: "Order not found", Hint: true}

	var req oas.PaymentRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, onErr)
		return
	}

	receipt, err := h.checkout.Pay(r.Context(), checkout.PayRequest{
		OrderID:  req.OrderID,
		SourceID: req.SourceID,
		Customer: customerFromOAS(req.CustomerDetails),
	})
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}
	h.clearCart(r)
	writeJSON(w, http.StatusOK, receiptToOAS(receipt))
}

// Checkout creates and pays an order in one call.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	onErr := errReply{Message: "Failed to complete checkout", Hint: true}

	var req oas.CheckoutRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, onErr)
		return
	}
	orderReq, err := orderFromOAS(req.OrderDetails)
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), checkout.Request{
		OrderRequest: orderReq,
		SourceID:     req.SourceID,
	})
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}
	h.clearCart(r)
	writeJSON(w, http.StatusOK, receiptToOAS(receipt))
}

// GetPaymentDetails looks up ?id= with its order.
func (h *Handler) GetPaymentDetails(w http.ResponseWriter, r *http.Request) {
	onErr := errReply{Message: "Failed to retrieve payment details", NotFound: "Payment not found"}

	details, err := h.checkout.PaymentDetails(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, err, onErr)
		return
	}

	p := details.Payment
	out := oas.PaymentDetails{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Status:     p.Status,
		Amount:     p.Charged(),
		ReceiptURL: p.ReceiptURL,
		CreatedAt:  p.CreatedAt,
		Card:       cardToOAS(p.Card),
	}
	if o := details.Order; o != nil {
		out.Order = &oas.OrderSummary{ID: o.ID, State: o.State, CreatedAt: o.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

// clearCart empties the session cart after a successful payment. The charge
// already went through, so a failure here is only logged.
func (h *Handler) clearCart(r *http.Request) {
	ctx := r.Context()
	if _, err := h.carts.Clear(ctx, sessionFrom(ctx)); err != nil {
		zctx.From(ctx).Warn("Clear cart after payment", zap.Error(err))
	}
}

func orderFromOAS(req oas.OrderDetails) (checkout.OrderRequest, error) {
	out := checkout.OrderRequest{
		Items:    make([]checkout.LineItem, len(req.Items)),
		Customer: customerFromOAS(req.Customer),
		Pickup:   checkout.Pickup{Type: checkout.PickupType(req.Pickup.Type)},
		Note:     req.PickupNotes,
	}
	for i, l := range req.Items {
		price := l.Price
		if price.Currency == "" {
			price.Currency = money.DefaultCurrency
		}
		out.Items[i] = checkout.LineItem{
			CatalogObjectID: l.ID,
			Name:            l.Name,
			VariationName:   l.VariationName,
			Quantity:        l.Quantity,
			Price:           price,
		}
	}
	if out.Pickup.Type == checkout.PickupScheduled && req.Pickup.Time != "" {
		t, err := time.Parse(time.RFC3339, req.Pickup.Time)
		if err != nil {
			return checkout.OrderRequest{}, failure.Invalid("pickup.time", "Invalid pickup type or missing scheduled time")
		}
		out.Pickup.Time = t
	}
	return out, nil
}

func customerFromOAS(c oas.Customer) checkout.Customer {
	return checkout.Customer{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}

func cardToOAS(c *checkout.Card) *oas.Card {
	if c == nil {
		return nil
	}
	return &oas.Card{Brand: c.Brand, Last4: c.Last4}
}

func receiptToOAS(r *checkout.Receipt) oas.Receipt {
	return oas.Receipt{
		PaymentID:      r.PaymentID,
		Status:         r.Status,
		OrderID:        r.OrderID,
		ReceiptURL:     r.ReceiptURL,
		Amount:         r.Amount,
		Card:           cardToOAS(r.Card),
		OrderState:     r.OrderState,
		OrderCompleted: r.OrderCompleted,
	}
}
