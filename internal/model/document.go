package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Collection names a catalog document collection.
type Collection string

const (
	Products   Collection = "products"
	Categories Collection = "categories"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == Products || c == Categories
}

// Document is one stored catalog document (a product or a category).
// Body is kept as generic JSON because image fields written before
// normalization existed may hold any legacy shape.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	Body      map[string]any `json:"body"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MigrationReport is the outcome of one bulk migration run.
type MigrationReport struct {
	Collection Collection `json:"collection"`
	Examined   int        `json:"examined"`
	Updated    int        `json:"updated"`
	Failed     int        `json:"failed"`
}

// DocumentCursor streams documents one at a time so memory does not grow with the collection.
type DocumentCursor interface {
	// Next returns the next document, or false at the end of the stream.
	Next(ctx context.Context) (Document, bool, error)
	Close() error
}
