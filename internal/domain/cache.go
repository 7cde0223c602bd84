package domain

import "context"

// Collection names a group of cached remote API responses that is
// invalidated as a whole.
type Collection string

const (
	CollectionPurchases Collection = "purchases"
	CollectionDownloads Collection = "downloads"
	CollectionCatalog   Collection = "catalog"
)

func (c Collection) String() string {
	return string(c)
}

type CacheInvalidator interface {
	MarkStale(ctx context.Context, collections ...Collection) error
}

// PerGuest reports whether the collection holds data owned by a single guest.
func (c Collection) PerGuest() bool {
	return c == CollectionPurchases || c == CollectionDownloads
}
