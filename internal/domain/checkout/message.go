package checkout

import (
	"context"
	"net"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/molino-storefront/internal/domain/failure"
)

// Customer-facing hints for failed checkouts.
const (
	MessageCard    = "Your card could not be charged. Please check the card details or try a different card."
	MessageNetwork = "We could not reach the payment service. Please check your connection and try again."
	MessageGeneric = "An error occurred during checkout"
)

// cardCodes are vendor error codes caused by the payment method.
var cardCodes = []string{
	"CARD", "CVV", "DECLINE", "EXPIR", "INSUFFICIENT_FUNDS", "PAN_FAILURE",
	"ADDRESS_VERIFICATION", "POSTAL_CODE", "PAYMENT_LIMIT", "TRANSACTION_LIMIT",
}

// UserMessage returns a hint to show the customer for err, separating
// problems with the card from problems reaching the vendor.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var vErr *failure.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}

	var vendorErr *failure.VendorError
	if errors.As(err, &vendorErr) {
		if vendorErr.Category == "PAYMENT_METHOD_ERROR" || matchesAny(vendorErr.Code, cardCodes) {
			return MessageCard
		}
		if vendorErr.StatusCode >= 500 {
			return MessageNetwork
		}
		if vendorErr.Message != "" {
			return vendorErr.Message
		}
		return MessageGeneric
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return MessageNetwork
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "card"), strings.Contains(text, "declin"):
		return MessageCard
	case strings.Contains(text, "network"), strings.Contains(text, "timeout"), strings.Contains(text, "connection"):
		return MessageNetwork
	}
	return MessageGeneric
}

func matchesAny(code string, fragments []string) bool {
	code = strings.ToUpper(code)
	for _, f := range fragments {
		if strings.Contains(code, f) {
			return true
		}
	}
	return false
}
