package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/molino-storefront/internal/domain/cart"
	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/square"
)

// PublicConfig exposes the browser-safe payment settings.
type PublicConfig interface {
	Public() (square.PublicConfig, error)
}

var _ PublicConfig = square.Config{}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// SessionTTL is the lifetime of the session cookie. Zero makes it a
	// browser-session cookie.
	SessionTTL time.Duration
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Deps are the domain services behind the API.
type Deps struct {
	Menu     menu.Source
	Payments PublicConfig
	Checkout *checkout.Service
	Bridge   *chat.Bridge
	Carts    *cart.Store
	Chats    *chat.Sessions
}

// Handler serves the storefront API, delegating business logic to the domain
// services.
type Handler struct {
	menu     menu.Source
	payments PublicConfig
	checkout *checkout.Service
	bridge   *chat.Bridge
	carts    *cart.Store
	chats    *chat.Sessions

	sessionTTL    time.Duration
	secureCookies bool
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	return &Handler{
		menu:          deps.Menu,
		payments:      deps.Payments,
		checkout:      deps.Checkout,
		bridge:        deps.Bridge,
		carts:         deps.Carts,
		chats:         deps.Chats,
		sessionTTL:    cfg.SessionTTL,
		secureCookies: cfg.SecureCookies,
	}
}

// Register mounts every API route on mux. Cart, payment and chat session
// routes are scoped to the caller's session.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.GetMenu)
	mux.HandleFunc("GET /api/square-config", h.GetSquareConfig)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.Handle("POST /api/payments", h.session(h.CreatePayment))
	mux.Handle("POST /api/checkout", h.session(h.Checkout))
	mux.HandleFunc("GET /api/payment-details", h.GetPaymentDetails)

	mux.HandleFunc("POST /api/chat/create-conversation", h.CreateConversation)
	mux.HandleFunc("POST /api/chat/send-message", h.SendMessage)

	mux.Handle("GET /api/cart", h.session(h.GetCart))
	mux.Handle("DELETE /api/cart", h.session(h.ClearCart))
	mux.Handle("POST /api/cart/items", h.session(h.AddCartItem))
	mux.Handle("PUT /api/cart/items/{id}", h.session(h.UpdateCartItem))
	mux.Handle("DELETE /api/cart/items/{id}", h.session(h.RemoveCartItem))

	mux.Handle("GET /api/chat/session", h.session(h.GetChat))
	mux.Handle("PATCH /api/chat/session", h.session(h.UpdateChatView))
	mux.Handle("DELETE /api/chat/session", h.session(h.ResetChat))
	mux.Handle("POST /api/chat/session/open", h.session(h.OpenChat))
	mux.Handle("POST /api/chat/session/messages", h.session(h.SendChatMessage))
}

type sessionKey struct{}

func withSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// sessionFrom returns the session id set by the session middleware.
func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
