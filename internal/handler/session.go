package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// SessionCookie carries the session id for browsers.
	SessionCookie = "molino_sid"
	// SessionHeader carries the session id for non-browser clients and takes
	// precedence over the cookie.
	SessionHeader = "X-Session-ID"

	maxSessionLen = 128
)

// session resolves the caller's session id, issuing a new one when the
// request carries none.
func (h *Handler) session(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}
		if id == "" || len(id) > maxSessionLen {
			id = uuid.New().String()
			h.setSessionCookie(w, id)
		}
		w.Header().Set(SessionHeader, id)

		ctx := withSession(r.Context(), id)
		ctx = zctx.With(ctx, zap.String("session", id))
		next(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if h.sessionTTL > 0 {
		c.MaxAge = int(h.sessionTTL.Seconds())
	}
	http.SetCookie(w, c)
}
