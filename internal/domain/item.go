package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency       = "USD"
	DefaultCurrencySymbol = "$"
)

type ProductType string

const (
	ProductTypeDesign       ProductType = "design"
	ProductTypeCourse       ProductType = "course"
	ProductTypeSubscription ProductType = "subscription"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeDesign, ProductTypeCourse, ProductTypeSubscription:
		return true
	}

	return false
}

func (t ProductType) String() string {
	return string(t)
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PurchasableItem is the snapshot of a design, course or subscription plan
// taken before checkout starts. It is never mutated afterwards.
type PurchasableItem struct {
	ID              string          `json:"id"`
	Type            ProductType     `json:"type"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	Currency        string          `json:"currency"`
	CurrencySymbol  string          `json:"currencySymbol"`
	PreviewImageURL *string         `json:"previewImageUrl,omitempty"`
	Category        *Category       `json:"category,omitempty"`
}

func (i PurchasableItem) CurrencyCode() string {
	if i.Currency == "" {
		return DefaultCurrency
	}

	return strings.ToUpper(i.Currency)
}

func (i PurchasableItem) Symbol() string {
	if i.CurrencySymbol == "" {
		return DefaultCurrencySymbol
	}

	return i.CurrencySymbol
}

// Price returns the amount that is actually charged.
func (i PurchasableItem) Price() decimal.Decimal {
	if i.FinalPrice.IsZero() {
		return i.BasePrice
	}

	return i.FinalPrice
}

func (i PurchasableItem) Discounted() bool {
	return !i.FinalPrice.IsZero() && i.FinalPrice.LessThan(i.BasePrice)
}

func (i PurchasableItem) DisplayPrice() string {
	return i.Symbol() + i.Price().StringFixed(2)
}
