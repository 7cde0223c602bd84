package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type DesignPage struct {
	Designs  []PurchasableItem `json:"designs"`
	Metadata Metadata          `json:"metadata"`
}

type Purchase struct {
	ID              string          `json:"id"`
	ProductType     ProductType     `json:"productType"`
	ProductID       string          `json:"productId"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Status          PaymentStatus   `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Download is an entitlement to fetch a purchased design asset.
type Download struct {
	ID        string     `json:"id"`
	DesignID  string     `json:"designId"`
	FileName  string     `json:"fileName"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type CatalogAPI interface {
	ListDesigns(ctx context.Context, filter DesignFilter) (DesignPage, error)
	GetItem(ctx context.Context, productType ProductType, id string) (PurchasableItem, error)
	ListPurchases(ctx context.Context) ([]Purchase, error)
	ListDownloads(ctx context.Context) ([]Download, error)
}

// StorefrontAPI is everything the checkout service consumes from the remote
// storefront API.
type StorefrontAPI interface {
	PaymentAPI
	CatalogAPI
	RefundPayment(ctx context.Context, req RefundRequest) (PaymentRecord, error)
}
