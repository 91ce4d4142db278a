// Package oas holds the storefront's HTTP request and response schemas with
// their JSON codecs.
package oas

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encoder is implemented by every response schema.
type Encoder interface {
	Encode(e *jx.Encoder)
}

// Decoder is implemented by every request schema.
type Decoder interface {
	Decode(d *jx.Decoder) error
}

// Marshal encodes v.
func Marshal(v Encoder) []byte {
	e := jx.Encoder{}
	v.Encode(&e)
	return e.Bytes()
}

// Unmarshal decodes data into v. An empty body decodes as {}.
func Unmarshal(data []byte, v Decoder) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := v.Decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(err, "decode request")
	}
	return nil
}

// Error is the error response body.
type Error struct {
	Error string
	// Message is a user-facing hint for checkout failures.
	Message string
	// Fallback is the assistant reply shown instead of an error in chat.
	Fallback string
}

// Encode implements Encoder.
func (s Error) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(s.Error)
	if s.Message != "" {
		e.FieldStart("message")
		e.Str(s.Message)
	}
	if s.Fallback != "" {
		e.FieldStart("fallback")
		e.Str(s.Fallback)
	}
	e.ObjEnd()
}

// optStr reads a string that may be null.
func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// optInt reads an integer that may be null or a numeric string.
func optInt(d *jx.Decoder) (int, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		n, err := jx.DecodeStr(s).Int()
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", s)
		}
		return n, nil
	default:
		return d.Int()
	}
}

// optBool reads a bool that may be null.
func optBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

func fieldErr(err error, key []byte) error {
	if err != nil {
		return errors.Wrapf(err, "decode field %q", key)
	}
	return nil
}

func encodeOptStr(e *jx.Encoder, field, v string) {
	e.FieldStart(field)
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}
