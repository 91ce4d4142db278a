// Package menu assembles the customer-facing menu from the vendor catalog.
package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/money"
)

// ErrUnavailable is matched by every catalog read failure other than missing
// configuration.
var ErrUnavailable = errors.New("catalog unavailable")

// UnavailableError wraps the vendor failure that aborted a menu read.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return ErrUnavailable.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

var _ Source = (*Reader)(nil)

// Reader builds a Menu from a Catalog. Every call re-fetches.
type Reader struct {
	catalog     Catalog
	placeholder string
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithPlaceholder overrides the image used for items without one.
func WithPlaceholder(url string) ReaderOption {
	return func(r *Reader) {
		if url != "" {
			r.placeholder = url
		}
	}
}

// NewReader returns a Reader over catalog.
func NewReader(catalog Catalog, opts ...ReaderOption) *Reader {
	r := &Reader{catalog: catalog, placeholder: PlaceholderImage}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchMenu lists categories, searches items for the location, resolves all
// item images in one batch and returns the assembled menu. Any failure aborts
// the read; a partial menu is never returned.
func (r *Reader) FetchMenu(ctx context.Context) (*Menu, error) {
	m, err := r.fetch(ctx)
	if err != nil {
		var cfgErr *failure.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, cfgErr
		}
		zctx.From(ctx).Error("Fetch menu from catalog", zap.Error(err))
		return nil, &UnavailableError{Err: err}
	}
	return m, nil
}

func (r *Reader) fetch(ctx context.Context) (*Menu, error) {
	categories, err := r.catalog.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	items, err := r.catalog.SearchItems(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "search items")
	}

	var imageIDs []string
	for _, it := range items {
		imageIDs = append(imageIDs, it.ImageIDs...)
	}
	urls := map[string]string{}
	if len(imageIDs) > 0 {
		urls, err = r.catalog.ImageURLs(ctx, imageIDs)
		if err != nil {
			return nil, errors.Wrap(err, "retrieve images")
		}
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		item, ok := r.convert(it, names, urls)
		if !ok {
			continue
		}
		out = append(out, item)
	}

	if categories == nil {
		categories = []Category{}
	}
	return &Menu{Items: out, Categories: categories}, nil
}

// convert maps a catalog item, reporting false when no variation survives.
func (r *Reader) convert(it CatalogItem, categories, urls map[string]string) (Item, bool) {
	variations := make([]Variation, 0, len(it.Variations))
	for _, v := range it.Variations {
		price := money.Zero(money.DefaultCurrency)
		if v.Price != nil {
			price = *v.Price
			if price.Currency == "" {
				price.Currency = money.DefaultCurrency
			}
		}
		if price.IsNegative() {
			continue
		}
		name := v.Name
		if name == "" {
			name = DefaultVariationName
		}
		variations = append(variations, Variation{ID: v.ID, Name: name, Price: price})
	}
	if len(variations) == 0 {
		return Item{}, false
	}

	image := r.placeholder
	if len(it.ImageIDs) > 0 {
		if u := urls[it.ImageIDs[0]]; u != "" {
			image = u
		}
	}
	name := it.Name
	if name == "" {
		name = DefaultItemName
	}

	return Item{
		ID:           it.ID,
		Name:         name,
		Description:  it.Description,
		ImageURL:     image,
		CategoryID:   it.CategoryID,
		CategoryName: categories[it.CategoryID],
		Variations:   variations,
	}, true
}
