package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/metinatakli/design-storefront/internal/domain"
)

func (c *Client) ListDesigns(ctx context.Context, filter domain.DesignFilter) (domain.DesignPage, error) {
	var page domain.DesignPage

	err := c.cachedGet(ctx, "/designs", filter.Query(), domain.CollectionCatalog, &page)
	if err != nil {
		return domain.DesignPage{}, err
	}

	return page, nil
}

// GetItem fetches the purchasable snapshot of a design, course or plan.
func (c *Client) GetItem(ctx context.Context, productType domain.ProductType, id string) (domain.PurchasableItem, error) {
	var path string
	switch productType {
	case domain.ProductTypeDesign:
		path = "/designs/" + url.PathEscape(id)
	case domain.ProductTypeCourse:
		path = "/courses/" + url.PathEscape(id)
	case domain.ProductTypeSubscription:
		path = "/subscriptions/plans/" + url.PathEscape(id)
	default:
		return domain.PurchasableItem{}, fmt.Errorf("unsupported product type %q", productType)
	}

	var item domain.PurchasableItem
	if err := c.cachedGet(ctx, path, nil, domain.CollectionCatalog, &item); err != nil {
		return domain.PurchasableItem{}, err
	}

	if item.Type == "" {
		item.Type = productType
	}

	return item, nil
}

func (c *Client) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	var purchases []domain.Purchase

	if err := c.cachedGet(ctx, "/purchases", nil, domain.CollectionPurchases, &purchases); err != nil {
		return nil, err
	}

	return purchases, nil
}

func (c *Client) ListDownloads(ctx context.Context) ([]domain.Download, error) {
	var downloads []domain.Download

	if err := c.cachedGet(ctx, "/downloads", nil, domain.CollectionDownloads, &downloads); err != nil {
		return nil, err
	}

	return downloads, nil
}
