package handler

import (
	"net/http"

	"github.com/xenking/molino-storefront/internal/domain/cart"
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
	"github.com/xenking/molino-storefront/internal/oas"
)

var cartFail = errReply{Message: "Failed to update cart"}

// GetCart returns the session cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Get(r.Context(), sessionFrom(r.Context()))
	h.respondCart(w, r, snap, err)
}

// AddCartItem adds a row or increases the quantity of an existing one.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req oas.CartItem
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, cartFail)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	item := cart.Item{
		ID:            req.ID,
		Name:          req.Name,
		VariationName: req.VariationName,
		Price:         money.Money{Amount: req.Price, Currency: currency},
		Quantity:      req.Quantity,
		ImageURL:      req.Image,
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	snap, err := h.carts.Add(r.Context(), sessionFrom(r.Context()), item)
	h.respondCart(w, r, snap, err)
}

// UpdateCartItem sets the quantity of a row. Zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req oas.QuantityUpdate
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err, cartFail)
		return
	}
	if !req.Set {
		writeError(w, r, failure.Invalid("quantity", "quantity is required"), cartFail)
		return
	}

	snap, err := h.carts.SetQuantity(r.Context(), sessionFrom(r.Context()), r.PathValue("id"), req.Quantity)
	h.respondCart(w, r, snap, err)
}

// RemoveCartItem drops a row. Unknown ids are ignored.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Remove(r.Context(), sessionFrom(r.Context()), r.PathValue("id"))
	h.respondCart(w, r, snap, err)
}

// ClearCart empties the session cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Clear(r.Context(), sessionFrom(r.Context()))
	h.respondCart(w, r, snap, err)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, snap cart.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err, cartFail)
		return
	}
	out := oas.Cart{
		Items:     make([]oas.CartItem, len(snap.Items)),
		ItemCount: snap.ItemCount,
		Subtotal:  snap.Subtotal,
	}
	for i, it := range snap.Items {
		out.Items[i] = oas.CartItem{
			ID:            it.ID,
			Name:          it.Name,
			VariationName: it.VariationName,
			Price:         it.Price.Amount,
			Currency:      it.Price.Currency,
			Quantity:      it.Quantity,
			Image:         it.ImageURL,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
