// Package paging provides page-request/page-result types and the generic
// sweep-and-delete algorithm used for tenant-wide bulk removal.
package paging

import (
	"context"
	"errors"
	"fmt"
)

// SortOrder directions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// DefaultPageSize is used by callers that page through a result set
// without an explicit caller-supplied size.
const DefaultPageSize = 100

// Common errors
var (
	ErrInvalidPage     = errors.New("page must not be negative")
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// PageLink describes a bounded, ordered slice of a larger result set plus
// an optional case-insensitive name-prefix filter.
type PageLink struct {
	Page       int
	PageSize   int
	TextSearch string
	SortOrder  string
}

// NewPageLink returns a PageLink for the given page with ascending order.
func NewPageLink(page, pageSize int) PageLink {
	return PageLink{Page: page, PageSize: pageSize, SortOrder: SortAsc}
}

// Validate checks the page request bounds.
func (p PageLink) Validate() error {
	if p.Page < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, p.Page)
	}
	if p.PageSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, p.PageSize)
	}
	return nil
}

// Next returns the link for the following page of the same request.
func (p PageLink) Next() PageLink {
	p.Page++
	return p
}

// Offset returns the row offset this link maps to.
func (p PageLink) Offset() int { return p.Page * p.PageSize }

// PageData is one page of a larger result set.
type PageData[T any] struct {
	Data          []T
	TotalPages    int
	TotalElements int64
	HasNext       bool
}

// NewPageData derives paging metadata from the total match count.
func NewPageData[T any](data []T, link PageLink, totalElements int64) PageData[T] {
	totalPages := int((totalElements + int64(link.PageSize) - 1) / int64(link.PageSize))
	return PageData[T]{
		Data:          data,
		TotalPages:    totalPages,
		TotalElements: totalElements,
		HasNext:       link.Page+1 < totalPages,
	}
}

// FindFunc fetches one page of entities scoped by key.
type FindFunc[K, E any] func(ctx context.Context, key K, link PageLink) (PageData[E], error)

// RemoveFunc removes a single entity scoped by key.
type RemoveFunc[K, E any] func(ctx context.Context, key K, entity E) error

// RemoveAll deletes every entity matching the scope key. The full member
// set is collected first by walking pages with an advancing index, so
// removals never shift the pages still being read; deletion starts only
// once the walk has terminated. The first failed removal aborts the sweep
// and the underlying error is returned.
func RemoveAll[K, E any](ctx context.Context, key K, find FindFunc[K, E], remove RemoveFunc[K, E]) error {
	var members []E

	link := NewPageLink(0, DefaultPageSize)
	for {
		page, err := find(ctx, key, link)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", link.Page, err)
		}
		members = append(members, page.Data...)
		if !page.HasNext {
			break
		}
		link = link.Next()
	}

	for _, entity := range members {
		if err := remove(ctx, key, entity); err != nil {
			return err
		}
	}
	return nil
}
