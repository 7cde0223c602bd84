package domain

import (
	"net/url"
	"strconv"
)

// Pagination is the paging and sorting part of a listing query. Sort is a
// field name, prefixed with "-" for descending order.
type Pagination struct {
	Page     int
	PageSize int
	Term     string
	Sort     string
}

// DesignFilter narrows the design catalog listing.
type DesignFilter struct {
	Pagination
	CategoryID string
	Free       *bool
}

// Query encodes the filter the way the remote API expects it. Values are
// sorted by key so equal filters produce equal cache keys.
func (f DesignFilter) Query() url.Values {
	q := url.Values{}

	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	if f.Term != "" {
		q.Set("search", f.Term)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.CategoryID != "" {
		q.Set("category", f.CategoryID)
	}
	if f.Free != nil {
		q.Set("free", strconv.FormatBool(*f.Free))
	}

	return q
}
