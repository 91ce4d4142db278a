package menu

import (
	"context"

	"github.com/xenking/molino-storefront/internal/domain/money"
)

// PlaceholderImage is served for items without a resolvable catalog image.
const PlaceholderImage = "/images/menu-placeholder.jpg"

// Vendor defaults for fields the catalog may leave blank.
const (
	DefaultVariationName = "Regular"
	DefaultItemName      = "Unnamed Item"
)

// Category groups menu items.
type Category struct {
	ID   string
	Name string
}

// Variation is an orderable version of an item. Its ID is the catalog object
// referenced by order line items.
type Variation struct {
	ID    string
	Name  string
	Price money.Money
}

// Item is a menu entry. Items always carry at least one variation.
type Item struct {
	ID           string
	Name         string
	Description  string
	ImageURL     string
	CategoryID   string
	CategoryName string
	Variations   []Variation
}

// Menu is a complete catalog snapshot. It is rebuilt on every read and must
// not be mutated by callers.
type Menu struct {
	Items      []Item
	Categories []Category
}

// Filter returns the items in categoryID. An empty id returns the whole menu.
func (m *Menu) Filter(categoryID string) *Menu {
	if categoryID == "" {
		return m
	}
	items := make([]Item, 0, len(m.Items))
	for _, it := range m.Items {
		if it.CategoryID == categoryID {
			items = append(items, it)
		}
	}
	return &Menu{Items: items, Categories: m.Categories}
}

// CatalogVariation is a variation as stored by the vendor. Price is nil when
// the vendor has none on record.
type CatalogVariation struct {
	ID    string
	Name  string
	Price *money.Money
}

// CatalogItem is an item as stored by the vendor.
type CatalogItem struct {
	ID          string
	Name        string
	Description string
	CategoryID  string
	ImageIDs    []string
	Variations  []CatalogVariation
}

// Catalog is the vendor-side view the Reader assembles a Menu from.
type Catalog interface {
	// ListCategories returns every category in the catalog.
	ListCategories(ctx context.Context) ([]Category, error)
	// SearchItems returns items enabled for the configured location.
	SearchItems(ctx context.Context) ([]CatalogItem, error)
	// ImageURLs resolves image object ids to URLs in one batch. Ids that are
	// not images or carry no URL are absent from the result.
	ImageURLs(ctx context.Context, ids []string) (map[string]string, error)
}

// Source produces menus.
type Source interface {
	FetchMenu(ctx context.Context) (*Menu, error)
}
