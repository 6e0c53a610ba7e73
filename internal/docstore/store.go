// Package docstore is a small document-store abstraction over named
// collections. Backends convert time.Time values to their own timestamp
// representation on write and back on read, at any nesting depth.
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cheertaboi/coupon-studio/internal/models"
)

var (
	ErrNotFound         = fmt.Errorf("document %w", models.ErrNotFound)
	ErrPermissionDenied = errors.New("permission denied")
)

// Fields is a document body. Values are strings, bools, float64 numbers,
// time.Time, nil, []any, []string and nested Fields.
type Fields = map[string]any

type Document struct {
	ID   string
	Data Fields
}

type Op string

const (
	OpEqual   Op = "=="
	OpLess    Op = "<"
	OpGreater Op = ">"
)

// Filter compares a top-level field against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query is a conjunction of filters with optional ordering and limit.
// Without OrderBy, results are ordered by document id.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Store is implemented by every backend.
type Store interface {
	// Add inserts data under a generated id.
	Add(ctx context.Context, collection string, data Fields) (string, error)
	// Set writes data under id. With merge, top-level fields are merged
	// into an existing document; otherwise the document is replaced.
	Set(ctx context.Context, collection, id string, data Fields, merge bool) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update merges top-level fields into an existing document and fails
	// with ErrNotFound when it does not exist.
	Update(ctx context.Context, collection, id string, data Fields) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

func (q Query) validate() error {
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("docstore: filter without field")
		}
		switch f.Op {
		case OpEqual, OpLess, OpGreater:
		default:
			return fmt.Errorf("docstore: unsupported operator %q", f.Op)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("docstore: negative limit")
	}
	return nil
}
