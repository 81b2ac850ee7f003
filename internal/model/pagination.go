package model

import "math"

// MaxPage bounds the page number a client may request.
const MaxPage = 10000

// PageRequest is a 1-based page/limit pair. Values are normalized by the
// transport before they reach a service.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Normalize clamps the page into [1, MaxPage] and the limit into [1, max]
// with def as the limit fallback.
func (p PageRequest) Normalize(def, max int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

// PageMeta is returned alongside every paginated list. Total is only set
// where it is computable, e.g. full comment subtrees.
type PageMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   *int `json:"total,omitempty"`
	HasMore bool `json:"has_more"`
}

// TrimPage cuts a limit+1 fetch back to limit and reports whether more exist.
func TrimPage[T any](items []T, p PageRequest) ([]T, PageMeta) {
	meta := PageMeta{Page: p.Page, Limit: p.Limit}
	if len(items) > p.Limit {
		items = items[:p.Limit]
		meta.HasMore = true
	}
	if items == nil {
		items = []T{}
	}
	return items, meta
}
