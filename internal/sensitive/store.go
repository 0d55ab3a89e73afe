package sensitive

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// Store persists encrypted documents. Implementations must only ever see the
// encrypted form and must report absence by wrapping errors.ErrNotFound.
type Store[E any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (E, error)
	// FindPage returns one page of documents matching criteria and the total match count.
	FindPage(ctx context.Context, pageable Pageable, criteria Criteria) ([]E, int64, error)
	// Upsert inserts or replaces the document with the same id.
	Upsert(ctx context.Context, doc E) error
	// ReplaceIfUnchanged overwrites the stored document with doc only while the
	// stored copy still matches prev. It reports false, without error, when the
	// document was changed or deleted since prev was read.
	ReplaceIfUnchanged(ctx context.Context, prev, doc E) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
	// Stream yields every stored document. Iteration stops at the first error.
	Stream(ctx context.Context) iter.Seq2[E, error]
}

// Order sorts a page by one field.
type Order struct {
	Field string
	Desc  bool
}

// Pageable is a zero-based page request.
type Pageable struct {
	Page int
	Size int
	Sort []Order
}

// Offset returns the number of rows to skip.
func (p Pageable) Offset() int {
	return p.Page * p.Size
}

// Validate checks page bounds against maxSize.
func (p Pageable) Validate(maxSize int) error {
	if p.Page < 0 {
		return fmt.Errorf("%w: page must not be negative", ErrInvalidPageable)
	}
	if p.Size < 1 || p.Size > maxSize {
		return fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidPageable, maxSize)
	}
	return nil
}

// Operator compares a field with a filter value.
type Operator string

const (
	OpEq       Operator = "eq"       // Field equals value
	OpContains Operator = "contains" // Array field contains value
	OpGte      Operator = "gte"      // Field is greater than or equal to value
	OpLte      Operator = "lte"      // Field is less than or equal to value
)

// Filter restricts a query on one plaintext or hash field.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Criteria is a conjunction of filters.
type Criteria []Filter

// Fields maps each queryable field to the operators it supports.
type Fields map[string][]Operator

// Check rejects filters and sort orders on fields outside allowed. Stores call it
// before building a query so that ciphertext columns can never be matched.
func (f Fields) Check(criteria Criteria, sort []Order) error {
	for _, filter := range criteria {
		ops, ok := f[filter.Field]
		if !ok {
			return fmt.Errorf("%w: field %q is not queryable", ErrInvalidCriteria, filter.Field)
		}
		if !slices.Contains(ops, filter.Op) {
			return fmt.Errorf("%w: operator %q not supported on %q", ErrInvalidCriteria, filter.Op, filter.Field)
		}
		if filter.Value == nil {
			return fmt.Errorf("%w: nil value for %q", ErrInvalidCriteria, filter.Field)
		}
	}
	for _, o := range sort {
		if _, ok := f[o.Field]; !ok {
			return fmt.Errorf("%w: cannot sort by %q", ErrInvalidCriteria, o.Field)
		}
	}
	return nil
}

// Page is one page of decrypted documents.
type Page[D any] struct {
	Items []D
	Total int64
	Page  int
	Size  int
}

// TotalPages returns the number of pages for the total count.
func (p Page[D]) TotalPages() int {
	if p.Size == 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}
