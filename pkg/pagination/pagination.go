package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 20
	// MaxPageSize caps how many rows any list query can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Page is a single page of list results.
type Page[T any] struct {
	Data     []T   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// Normalize enforces page >= 1 and the default and maximum page sizes.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	p.PageSize = NormalizePageSize(p.PageSize)
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// NormalizePageSize applies the default and maximum page sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// FromQuery reads page and pageSize from query parameters, ignoring malformed values.
func FromQuery(q url.Values) Params {
	return Params{
		Page:     atoi(q.Get("page")),
		PageSize: atoi(q.Get("pageSize")),
	}.Normalize()
}

// NewPage wraps rows with the pagination metadata.
func NewPage[T any](rows []T, total int64, p Params) Page[T] {
	n := p.Normalize()
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Total: total, Page: n.Page, PageSize: n.PageSize}
}

func atoi(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
