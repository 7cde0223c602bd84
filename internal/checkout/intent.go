package checkout

import "github.com/metinatakli/design-storefront/internal/domain"

// Selection is what the page knows about the item being bought. More than one
// id may be present; Product decides which one is charged.
type Selection struct {
	PurchaseType domain.ProductType `json:"purchaseType"`
	PlanID       string             `json:"planId,omitempty"`
	DesignID     string             `json:"designId,omitempty"`
	CourseID     string             `json:"courseId,omitempty"`
}

// Product returns the product that is charged. Subscriptions always charge the
// plan; otherwise a design id wins over a course id. The id is empty when
// nothing usable was selected.
func (s Selection) Product() (domain.ProductType, string) {
	switch {
	case s.PurchaseType == domain.ProductTypeSubscription:
		return domain.ProductTypeSubscription, s.PlanID
	case s.DesignID != "":
		return domain.ProductTypeDesign, s.DesignID
	case s.CourseID != "":
		return domain.ProductTypeCourse, s.CourseID
	default:
		return s.PurchaseType, ""
	}
}

// Resolve builds the intent creation request for item.
func (s Selection) Resolve(item domain.PurchasableItem) (domain.CreateIntentRequest, error) {
	productType, productID := s.Product()
	if productID == "" {
		return domain.CreateIntentRequest{}, domain.ErrMissingProductID
	}

	return domain.CreateIntentRequest{
		ProductType: productType,
		ProductID:   productID,
		Currency:    item.CurrencyCode(),
	}, nil
}
