package square

import (
	"context"

	"github.com/go-faster/errors"
	sq "github.com/square/square-go-sdk"
	"github.com/square/square-go-sdk/core"

	"github.com/xenking/molino-storefront/internal/domain/menu"
)

// maxPages bounds cursor pagination.
const maxPages = 50

// ListCategories returns every CATEGORY object, following cursors.
func (c *Client) ListCategories(ctx context.Context) ([]menu.Category, error) {
	page, err := c.api.Catalog.List(ctx, &sq.ListCatalogRequest{Types: sq.String("CATEGORY")})
	if err != nil {
		return nil, errors.Wrap(vendorError(err), "list categories")
	}

	var out []menu.Category
	for range maxPages {
		for _, obj := range page.Results {
			cat := obj.GetCategory()
			if cat == nil || deref(cat.ID) == "" {
				continue
			}
			var name string
			if cat.CategoryData != nil {
				name = deref(cat.CategoryData.Name)
			}
			out = append(out, menu.Category{ID: *cat.ID, Name: name})
		}

		page, err = page.GetNextPage(ctx)
		if errors.Is(err, core.ErrNoPages) {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrap(vendorError(err), "list categories")
		}
	}
	return out, nil
}

// SearchItems returns items enabled at the client's location.
func (c *Client) SearchItems(ctx context.Context) ([]menu.CatalogItem, error) {
	req := &sq.SearchCatalogItemsRequest{EnabledLocationIDs: []string{c.location}}

	var out []menu.CatalogItem
	for range maxPages {
		resp, err := c.api.Catalog.SearchItems(ctx, req)
		if err != nil {
			return nil, errors.Wrap(vendorError(err), "search items")
		}
		for _, obj := range resp.Items {
			if it := obj.GetItem(); it != nil {
				out = append(out, itemFromSquare(it))
			}
		}
		if deref(resp.Cursor) == "" {
			return out, nil
		}
		req.Cursor = resp.Cursor
	}
	return out, nil
}

// ImageURLs batch-retrieves image objects by id.
func (c *Client) ImageURLs(ctx context.Context, ids []string) (map[string]string, error) {
	urls := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return urls, nil
	}

	resp, err := c.api.Catalog.BatchGet(ctx, &sq.BatchGetCatalogObjectsRequest{ObjectIDs: ids})
	if err != nil {
		return nil, errors.Wrap(vendorError(err), "batch retrieve images")
	}
	for _, obj := range resp.Objects {
		img := obj.GetImage()
		if img == nil || img.ImageData == nil {
			continue
		}
		if u := deref(img.ImageData.URL); u != "" {
			urls[img.ID] = u
		}
	}
	return urls, nil
}

func itemFromSquare(obj *sq.CatalogObjectItem) menu.CatalogItem {
	item := menu.CatalogItem{ID: obj.ID}
	data := obj.ItemData
	if data == nil {
		return item
	}
	item.Name = deref(data.Name)
	item.Description = deref(data.Description)
	item.CategoryID = deref(data.CategoryID)
	// Newer API versions list categories; the first one wins when
	// category_id is absent.
	if item.CategoryID == "" && len(data.Categories) > 0 && data.Categories[0] != nil {
		item.CategoryID = deref(data.Categories[0].ID)
	}
	item.ImageIDs = append(item.ImageIDs, data.ImageIDs...)

	for _, v := range data.Variations {
		iv := v.GetItemVariation()
		if iv == nil {
			continue
		}
		cv := menu.CatalogVariation{ID: iv.ID}
		if d := iv.ItemVariationData; d != nil {
			cv.Name = deref(d.Name)
			cv.Price = moneyFromSquare(d.PriceMoney)
		}
		item.Variations = append(item.Variations, cv)
	}
	return item
}
