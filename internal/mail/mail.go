// Package mail sends order confirmations through SendGrid.
package mail

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
)

// Config controls outgoing mail. An empty API key disables it.
type Config struct {
	APIKey   string `usage:"SendGrid API key (SENDGRID_API_KEY)" flag:"sendgrid-api-key"`
	From     string `default:"orders@elmolino.example" usage:"Sender address for confirmations"`
	FromName string `default:"El Molino" usage:"Sender display name"`
	// StaffAddress receives reconciliation alerts when set.
	StaffAddress string `usage:"Address alerted when a paid order could not be completed"`
	BaseURL      string `usage:"Override the SendGrid API host"`
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool { return c.APIKey != "" }

// Mailer implements checkout.Notifier.
type Mailer struct {
	client *sendgrid.Client
	cfg    Config
}

var _ checkout.Notifier = (*Mailer)(nil)

// New creates a Mailer.
func New(cfg Config) *Mailer {
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v3/mail/send"
	}
	return &Mailer{client: client, cfg: cfg}
}

// Notify emails the customer on payment and staff on reconciliation failure.
// Other events are ignored.
func (m *Mailer) Notify(ctx context.Context, e checkout.Event) error {
	switch e.Type {
	case checkout.EventPaid:
		if e.Customer.Email == "" || e.Receipt == nil {
			return nil
		}
		subject, text := Confirmation(e)
		return m.send(ctx, e.Customer.DisplayName(), e.Customer.Email, subject, text)
	case checkout.EventReconciliationFailed:
		if m.cfg.StaffAddress == "" {
			return nil
		}
		subject := fmt.Sprintf("Order %s needs manual completion", e.OrderID)
		text := fmt.Sprintf("Payment succeeded but order %s could not be marked completed.\n\nReason: %s\n", e.OrderID, e.Reason)
		return m.send(ctx, "", m.cfg.StaffAddress, subject, text)
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, toName, to, subject, text string) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.cfg.FromName, m.cfg.From),
		subject,
		sgmail.NewEmail(toName, to),
		text,
		"<pre>"+html.EscapeString(text)+"</pre>",
	)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if resp.StatusCode >= 400 {
		return errors.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	zctx.From(ctx).Info("Mail sent",
		zap.Int("status", resp.StatusCode),
		zap.String("subject", subject),
	)
	return nil
}

// Confirmation renders the customer email for a paid event.
func Confirmation(e checkout.Event) (subject, text string) {
	r := e.Receipt
	subject = fmt.Sprintf("Your El Molino order %s is confirmed", shortID(r.OrderID))

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", firstNonEmpty(e.Customer.FirstName, "there"))
	b.WriteString("Thanks for your order! We'll have it ready for pickup.\n\n")
	for _, it := range e.Items {
		name := it.Name
		if name == "" {
			name = it.CatalogObjectID
		}
		if it.VariationName != "" {
			name += " (" + it.VariationName + ")"
		}
		fmt.Fprintf(&b, "  %d x %s\n", it.Quantity, name)
	}
	fmt.Fprintf(&b, "\nTotal charged: %s\n", r.Amount.Display())
	if r.Card != nil && r.Card.Last4 != "" {
		fmt.Fprintf(&b, "Card: %s ending in %s\n", r.Card.Brand, r.Card.Last4)
	}
	if r.ReceiptURL != "" {
		fmt.Fprintf(&b, "Receipt: %s\n", r.ReceiptURL)
	}
	b.WriteString("\nEl Molino Tortilleria & Restaurant\n")
	return subject, b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
