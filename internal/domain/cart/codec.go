package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// ErrCorruptState is returned by repositories when persisted cart data cannot
// be decoded or violates row invariants.
var ErrCorruptState = errors.New("corrupt cart state")

// Marshal encodes rows for persistence.
func Marshal(items []Item) []byte {
	e := jx.Encoder{}
	e.ArrStart()
	for _, it := range items {
		encodeItem(&e, it)
	}
	e.ArrEnd()
	return e.Bytes()
}

// Unmarshal decodes persisted rows. Any decode or validation failure is
// reported as ErrCorruptState.
func Unmarshal(data []byte) ([]Item, error) {
	var items []Item
	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var it Item
		if err := decodeItem(d, &it); err != nil {
			return err
		}
		if err := it.Validate(); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(ErrCorruptState, err.Error())
	}
	return items, nil
}

func encodeItem(e *jx.Encoder, it Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	if it.VariationName != "" {
		e.FieldStart("variationName")
		e.Str(it.VariationName)
	}
	e.FieldStart("price")
	it.Price.Encode(e)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	if it.ImageURL != "" {
		e.FieldStart("imageUrl")
		e.Str(it.ImageURL)
	}
	e.ObjEnd()
}

func decodeItem(d *jx.Decoder, it *Item) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			it.ID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "variationName":
			it.VariationName, err = d.Str()
		case "price":
			var p money.Money
			err = p.Decode(d)
			it.Price = p
		case "quantity":
			it.Quantity, err = d.Int()
		case "imageUrl":
			it.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}
