package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	limit := defaultLimit
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Limit: limit, Offset: offset}
}

// Page slices an already ordered result set.
func Page[T any](items []T, p Pagination) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// PageMeta is returned next to paged list data.
type PageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func Meta(total int, p Pagination) PageMeta {
	return PageMeta{Total: total, Limit: p.Limit, Offset: p.Offset}
}
