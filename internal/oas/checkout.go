package oas

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// OrderLine is a cart row submitted for an order.
type OrderLine struct {
	ID            string
	Name          string
	VariationName string
	Quantity      int
	Price         money.Money
}

func (s *OrderLine) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			s.ID, err = optStr(d)
		case "name":
			s.Name, err = optStr(d)
		case "variationName":
			s.VariationName, err = optStr(d)
		case "quantity":
			s.Quantity, err = optInt(d)
		case "price":
			s.Price.Amount, err = money.DecodeAmount(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// Customer is the buyer contact block.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (s *Customer) Decode(d *jx.Decoder) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "firstName":
			s.FirstName, err = optStr(d)
		case "lastName":
			s.LastName, err = optStr(d)
		case "email":
			s.Email, err = optStr(d)
		case "phone":
			s.Phone, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// Pickup is the requested pickup window. Time is RFC 3339 and only read for
// SCHEDULED pickups.
type Pickup struct {
	Type string
	Time string
}

func (s *Pickup) Decode(d *jx.Decoder) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "type":
			s.Type, err = optStr(d)
		case "time":
			s.Time, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// OrderDetails is the POST /api/orders body and the orderDetails block of
// POST /api/checkout.
type OrderDetails struct {
	Items       []OrderLine
	Customer    Customer
	Pickup      Pickup
	PickupNotes string
}

// Decode implements Decoder.
func (s *OrderDetails) Decode(d *jx.Decoder) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "items":
			if d.Next() == jx.Null {
				err = d.Null()
				break
			}
			err = d.Arr(func(d *jx.Decoder) error {
				var l OrderLine
				if err := l.Decode(d); err != nil {
					return err
				}
				s.Items = append(s.Items, l)
				return nil
			})
		case "customer":
			err = s.Customer.Decode(d)
		case "pickup":
			err = s.Pickup.Decode(d)
		case "pickupNotes":
			s.PickupNotes, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// CheckoutRequest is the POST /api/checkout body.
type CheckoutRequest struct {
	OrderDetails OrderDetails
	SourceID     string
}

// Decode implements Decoder. The client-sent amount is ignored; the vendor
// order total is charged.
func (s *CheckoutRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "orderDetails":
			err = s.OrderDetails.Decode(d)
		case "paymentDetails":
			if d.Next() == jx.Null {
				err = d.Null()
				break
			}
			err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "sourceId" {
					return d.Skip()
				}
				var err error
				s.SourceID, err = optStr(d)
				return err
			})
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// PaymentRequest is the POST /api/payments body.
type PaymentRequest struct {
	OrderID         string
	SourceID        string
	CustomerDetails Customer
}

// Decode implements Decoder.
func (s *PaymentRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "orderId":
			s.OrderID, err = optStr(d)
		case "sourceId":
			s.SourceID, err = optStr(d)
		case "customerDetails":
			err = s.CustomerDetails.Decode(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// OrderCreated is the POST /api/orders response.
type OrderCreated struct {
	OrderID      string
	OrderVersion int64
	Total        money.Money
	AmountDue    money.Money
}

// Encode implements Encoder.
func (s OrderCreated) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(s.OrderID)
	e.FieldStart("orderVersion")
	e.Int64(s.OrderVersion)
	e.FieldStart("totalAmount")
	e.Num(jx.Num(s.Total.Amount.String()))
	e.FieldStart("paymentDetails")
	s.AmountDue.Encode(e)
	e.ObjEnd()
}

// Card is a masked card summary.
type Card struct {
	Brand string
	Last4 string
}

func encodeCard(e *jx.Encoder, c *Card) {
	e.FieldStart("cardDetails")
	if c == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("brand")
	e.Str(c.Brand)
	e.FieldStart("last4")
	e.Str(c.Last4)
	e.ObjEnd()
}

// Receipt is the response of POST /api/checkout and POST /api/payments.
type Receipt struct {
	PaymentID      string
	Status         string
	OrderID        string
	ReceiptURL     string
	Amount         money.Money
	Card           *Card
	OrderState     string
	OrderCompleted bool
}

// Encode implements Encoder.
func (s Receipt) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("paymentId")
	e.Str(s.PaymentID)
	e.FieldStart("status")
	e.Str(s.Status)
	e.FieldStart("orderId")
	e.Str(s.OrderID)
	encodeOptStr(e, "receiptUrl", s.ReceiptURL)
	e.FieldStart("amount")
	e.Num(jx.Num(s.Amount.Amount.String()))
	e.FieldStart("currency")
	e.Str(s.Amount.Currency)
	encodeCard(e, s.Card)
	e.FieldStart("orderState")
	e.Str(s.OrderState)
	e.FieldStart("orderCompleted")
	e.Bool(s.OrderCompleted)
	e.ObjEnd()
}

// OrderSummary is the order block of a payment-details response.
type OrderSummary struct {
	ID        string
	State     string
	CreatedAt time.Time
}

// PaymentDetails is the GET /api/payment-details response.
type PaymentDetails struct {
	PaymentID  string
	OrderID    string
	Status     string
	Amount     money.Money
	ReceiptURL string
	CreatedAt  time.Time
	Card       *Card
	Order      *OrderSummary
}

// Encode implements Encoder.
func (s PaymentDetails) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("paymentId")
	e.Str(s.PaymentID)
	encodeOptStr(e, "orderId", s.OrderID)
	e.FieldStart("status")
	e.Str(s.Status)
	e.FieldStart("amount")
	e.Num(jx.Num(s.Amount.Amount.String()))
	e.FieldStart("currency")
	e.Str(s.Amount.Currency)
	encodeOptStr(e, "receiptUrl", s.ReceiptURL)
	encodeOptStr(e, "createdAt", formatTime(s.CreatedAt))
	encodeCard(e, s.Card)
	e.FieldStart("orderDetails")
	if s.Order == nil {
		e.Null()
	} else {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(s.Order.ID)
		e.FieldStart("state")
		e.Str(s.Order.State)
		encodeOptStr(e, "createdAt", formatTime(s.Order.CreatedAt))
		e.ObjEnd()
	}
	e.ObjEnd()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
