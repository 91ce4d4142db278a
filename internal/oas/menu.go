package oas

import (
	"github.com/go-faster/jx"

	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

// Menu is the GET /api/menu response.
type Menu struct {
	Items      []MenuItem
	Categories []MenuCategory
}

// MenuItem is one menu entry.
type MenuItem struct {
	ID           string
	Name         string
	Description  string
	ImageURL     string
	CategoryID   string
	CategoryName string
	Variations   []MenuVariation
}

// MenuVariation is an orderable variation.
type MenuVariation struct {
	ID         string
	Name       string
	PriceMoney money.Money
}

// MenuCategory is a menu category.
type MenuCategory struct {
	ID   string
	Name string
}

// NewMenu converts a catalog snapshot to its wire form.
func NewMenu(m *menu.Menu) Menu {
	out := Menu{
		Items:      make([]MenuItem, len(m.Items)),
		Categories: make([]MenuCategory, len(m.Categories)),
	}
	for i, it := range m.Items {
		vs := make([]MenuVariation, len(it.Variations))
		for j, v := range it.Variations {
			vs[j] = MenuVariation{ID: v.ID, Name: v.Name, PriceMoney: v.Price}
		}
		out.Items[i] = MenuItem{
			ID:           it.ID,
			Name:         it.Name,
			Description:  it.Description,
			ImageURL:     it.ImageURL,
			CategoryID:   it.CategoryID,
			CategoryName: it.CategoryName,
			Variations:   vs,
		}
	}
	for i, c := range m.Categories {
		out.Categories[i] = MenuCategory{ID: c.ID, Name: c.Name}
	}
	return out
}

// Encode implements Encoder.
func (s Menu) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range s.Items {
		it.Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("categories")
	e.ArrStart()
	for _, c := range s.Categories {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(c.ID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Encode implements Encoder.
func (s MenuItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	if s.Description != "" {
		e.FieldStart("description")
		e.Str(s.Description)
	}
	e.FieldStart("image_url")
	e.Str(s.ImageURL)
	if s.CategoryID != "" {
		e.FieldStart("category_id")
		e.Str(s.CategoryID)
	}
	if s.CategoryName != "" {
		e.FieldStart("category_name")
		e.Str(s.CategoryName)
	}
	e.FieldStart("variations")
	e.ArrStart()
	for _, v := range s.Variations {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(v.ID)
		e.FieldStart("name")
		e.Str(v.Name)
		e.FieldStart("price_money")
		v.PriceMoney.Encode(e)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// SquareConfig is the GET /api/square-config response.
type SquareConfig struct {
	ApplicationID string
	LocationID    string
	Environment   string
}

// Encode implements Encoder.
func (s SquareConfig) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("applicationId")
	e.Str(s.ApplicationID)
	e.FieldStart("locationId")
	e.Str(s.LocationID)
	e.FieldStart("environment")
	e.Str(s.Environment)
	e.ObjEnd()
}
