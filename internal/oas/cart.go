package oas

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// CartItem is a cart row on the wire. Price is in minor units.
type CartItem struct {
	ID            string
	Name          string
	VariationName string
	Price         decimal.Decimal
	Currency      string
	Quantity      int
	Image         string
}

// Decode implements Decoder. Both "image" and "imageUrl" are accepted.
func (s *CartItem) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			s.ID, err = d.Str()
		case "name":
			s.Name, err = optStr(d)
		case "variationName":
			s.VariationName, err = optStr(d)
		case "price":
			s.Price, err = money.DecodeAmount(d)
		case "currency":
			s.Currency, err = optStr(d)
		case "quantity":
			s.Quantity, err = optInt(d)
		case "image", "imageUrl":
			s.Image, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// Encode implements Encoder.
func (s CartItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	if s.VariationName != "" {
		e.FieldStart("variationName")
		e.Str(s.VariationName)
	}
	e.FieldStart("price")
	e.Num(jx.Num(s.Price.String()))
	e.FieldStart("currency")
	e.Str(s.Currency)
	e.FieldStart("quantity")
	e.Int(s.Quantity)
	if s.Image != "" {
		e.FieldStart("image")
		e.Str(s.Image)
	}
	e.ObjEnd()
}

// Cart is the response for every cart operation.
type Cart struct {
	Items     []CartItem
	ItemCount int
	Subtotal  money.Money
}

// Encode implements Encoder. Subtotal is a number with its currency alongside.
func (s Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		it.Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("itemCount")
	e.Int(s.ItemCount)
	e.FieldStart("subtotal")
	e.Num(jx.Num(s.Subtotal.Amount.String()))
	e.FieldStart("currency")
	e.Str(s.Subtotal.Currency)
	e.FieldStart("subtotalDisplay")
	e.Str(s.Subtotal.Display())
	e.ObjEnd()
}

// QuantityUpdate is the PUT /api/cart/items/{id} body.
type QuantityUpdate struct {
	Quantity int
	Set      bool
}

// Decode implements Decoder.
func (s *QuantityUpdate) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "quantity" {
			return d.Skip()
		}
		n, err := optInt(d)
		s.Quantity, s.Set = n, err == nil
		return fieldErr(err, key)
	})
}
