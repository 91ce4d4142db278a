package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/oas"
)

const maxBodySize = 64 << 10

// readJSON decodes the request body into v. Decode failures are reported as
// validation errors.
func readJSON(r *http.Request, v oas.Decoder) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := oas.Unmarshal(data, v); err != nil {
		return &failure.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v oas.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(oas.Marshal(v))
}

// errReply describes how an endpoint reports errors.
type errReply struct {
	// Message replaces unexpected error text.
	Message string
	// NotFound is the body for ErrNotFound.
	NotFound string
	// Hint adds a customer-facing checkout message.
	Hint bool
	// Apology adds the chat fallback reply.
	Apology bool
}

// writeError maps err to a status and body. Server-side failures are logged,
// client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, err error, onErr errReply) {
	status, body := classify(err, onErr)
	if onErr.Hint {
		body.Message = checkout.UserMessage(err)
	}
	if onErr.Apology {
		body.Fallback = chat.Apology
	}

	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func classify(err error, onErr errReply) (int, oas.Error) {
	var (
		cfgErr    *failure.ConfigError
		validErr  *failure.ValidationError
		vendorErr *failure.VendorError
	)
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, oas.Error{Error: cfgErr.Error()}
	case errors.As(err, &validErr):
		return http.StatusBadRequest, oas.Error{Error: validErr.Message}
	case errors.Is(err, chat.ErrUnavailable):
		// Upstream status and body stay in the log.
		msg := onErr.Message
		if msg == "" {
			msg = "Failed to send message"
		}
		return http.StatusInternalServerError, oas.Error{Error: msg}
	case errors.Is(err, failure.ErrNotFound):
		msg := onErr.NotFound
		if msg == "" {
			msg = "Not found"
		}
		return http.StatusNotFound, oas.Error{Error: msg}
	case errors.Is(err, menu.ErrUnavailable):
		return http.StatusBadGateway, oas.Error{Error: "Failed to load menu items"}
	case errors.As(err, &vendorErr):
		msg := vendorErr.Message
		if msg == "" {
			msg = onErr.Message
		}
		return vendorErr.HTTPStatus(), oas.Error{Error: msg}
	}
	msg := onErr.Message
	if msg == "" {
		msg = "Internal server error"
	}
	return http.StatusInternalServerError, oas.Error{Error: msg}
}
