package square

import (
	"context"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/menu"
)

// Unavailable stands in for a Client that could not be built. Every call
// returns Err, so the server starts and requests report the cause.
type Unavailable struct {
	Err error
}

var (
	_ menu.Catalog    = Unavailable{}
	_ checkout.Vendor = Unavailable{}
)

func (u Unavailable) ListCategories(context.Context) ([]menu.Category, error) {
	return nil, u.Err
}

func (u Unavailable) SearchItems(context.Context) ([]menu.CatalogItem, error) {
	return nil, u.Err
}

func (u Unavailable) ImageURLs(context.Context, []string) (map[string]string, error) {
	return nil, u.Err
}

func (u Unavailable) CreateOrder(context.Context, checkout.NewOrder) (*checkout.Order, error) {
	return nil, u.Err
}

func (u Unavailable) RetrieveOrder(context.Context, string) (*checkout.Order, error) {
	return nil, u.Err
}

func (u Unavailable) UpdateOrderState(context.Context, string, int64, string, string) (*checkout.Order, error) {
	return nil, u.Err
}

func (u Unavailable) CreatePayment(context.Context, checkout.NewPayment) (*checkout.Payment, error) {
	return nil, u.Err
}

func (u Unavailable) GetPayment(context.Context, string) (*checkout.Payment, error) {
	return nil, u.Err
}
