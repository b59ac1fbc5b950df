package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 200
)

// PaginationParams holds parsed pagination query parameters.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Page is the list envelope returned by every collection endpoint.
type Page[T any] struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	Items    []T `json:"items"`
}

// ParsePagination extracts pagination parameters from the request.
// Defaults: page=1, page_size=50 (per_page is accepted as an alias). Maximum page_size is 200.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	p := PaginationParams{
		Page:     defaultPage,
		PageSize: defaultPageSize,
	}

	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}

	size := q.Get("page_size")
	if size == "" {
		size = q.Get("per_page")
	}
	if size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			p.PageSize = min(n, maxPageSize)
		}
	}

	return p
}

// Offset returns the index of the first item of the current page.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages calculates the total number of pages for a given total count.
func (p PaginationParams) TotalPages(total int) int {
	if p.PageSize <= 0 {
		return 0
	}
	pages := total / p.PageSize
	if total%p.PageSize > 0 {
		pages++
	}
	return pages
}

// Paginate slices items to the requested page. Pages past the end yield an
// empty item list with the unchanged total. The input slice is not modified.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	out := Page[T]{Page: page, PageSize: pageSize, Total: len(items), Items: []T{}}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return out
	}
	end := min(start+pageSize, len(items))
	out.Items = append(out.Items, items[start:end]...)
	return out
}
