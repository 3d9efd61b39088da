package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/model"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// DefaultPageSize is the number of rows a Cursor loads per round trip.
const DefaultPageSize = 200

type Repository struct {
	db       *dbpg.DB
	pageSize int
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db, pageSize: DefaultPageSize}
}

// table maps a collection to its table. Only known collections reach SQL text.
func table(c model.Collection) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return string(c), nil
}

func (r *Repository) Create(ctx context.Context, c model.Collection, body map[string]any) (model.Document, error) {
	t, err := table(c)
	if err != nil {
		return model.Document{}, err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return model.Document{}, fmt.Errorf("create: failed to encode document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (doc)
		VALUES ($1::jsonb)
		RETURNING id, updated_at
	`, t)

	doc := model.Document{Body: body}
	err = r.db.Master.QueryRowContext(ctx, query, string(raw)).Scan(&doc.ID, &doc.UpdatedAt)
	if err != nil {
		return model.Document{}, fmt.Errorf("create: failed to insert %s document: %w", c, err)
	}

	return doc, nil
}

func (r *Repository) Get(ctx context.Context, c model.Collection, id uuid.UUID) (model.Document, error) {
	t, err := table(c)
	if err != nil {
		return model.Document{}, err
	}

	query := fmt.Sprintf(`
		SELECT doc, updated_at
		FROM %s
		WHERE id = $1
	`, t)

	var raw []byte
	doc := model.Document{ID: id}
	err = r.db.Master.QueryRowContext(ctx, query, id).Scan(&raw, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Document{}, ErrDocumentNotFound
		}

		return model.Document{}, fmt.Errorf("get: failed to get %s document: %w", c, err)
	}

	if err := json.Unmarshal(raw, &doc.Body); err != nil {
		return model.Document{}, fmt.Errorf("get: failed to decode %s document: %w", c, err)
	}

	return doc, nil
}

// Save overwrites the stored body of doc.
func (r *Repository) Save(ctx context.Context, c model.Collection, doc model.Document) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc.Body)
	if err != nil {
		return fmt.Errorf("save: failed to encode document: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET doc = $2::jsonb, updated_at = now()
		WHERE id = $1
	`, t)

	res, err := r.db.Master.ExecContext(ctx, query, doc.ID, string(raw))
	if err != nil {
		return fmt.Errorf("save: failed to update %s document: %w", c, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// Delete removes a document. Stored rendition objects are not touched.
func (r *Repository) Delete(ctx context.Context, c model.Collection, id uuid.UUID) error {
	t, err := table(c)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, t)

	res, err := r.db.Master.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: failed to delete %s document: %w", c, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

// Cursor streams the whole collection in id order, one page at a time.
//
// Pages are read with keyset pagination, so no connection or transaction stays open
// between pages and documents saved during iteration do not shift the cursor.
func (r *Repository) Cursor(ctx context.Context, c model.Collection) (model.DocumentCursor, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}

	return &Cursor{
		db:       r.db,
		table:    t,
		pageSize: r.pageSize,
	}, nil
}

// Cursor iterates over a collection in ascending id order.
type Cursor struct {
	db       *dbpg.DB
	table    string
	pageSize int

	page   []model.Document
	pos    int
	lastID uuid.UUID
	done   bool
}

// Next returns the next document, loading the following page when the current one is exhausted.
func (c *Cursor) Next(ctx context.Context) (model.Document, bool, error) {
	if c.pos >= len(c.page) {
		if c.done {
			return model.Document{}, false, nil
		}

		if err := c.fetch(ctx); err != nil {
			return model.Document{}, false, err
		}

		if len(c.page) == 0 {
			c.done = true
			return model.Document{}, false, nil
		}
	}

	doc := c.page[c.pos]
	c.pos++

	return doc, true, nil
}

// Close releases the buffered page.
func (c *Cursor) Close() error {
	c.page = nil
	c.done = true
	return nil
}

func (c *Cursor) fetch(ctx context.Context) error {
	query := fmt.Sprintf(`
		SELECT id, doc, updated_at
		FROM %s
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, c.table)

	rows, err := c.db.Master.QueryContext(ctx, query, c.lastID, c.pageSize)
	if err != nil {
		return fmt.Errorf("cursor: failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	page := make([]model.Document, 0, c.pageSize)
	for rows.Next() {
		var (
			doc model.Document
			raw []byte
		)

		if err := rows.Scan(&doc.ID, &raw, &doc.UpdatedAt); err != nil {
			return fmt.Errorf("cursor: failed to scan %s row: %w", c.table, err)
		}

		// A body that is not a JSON object stays nil and is skipped by callers.
		if err := json.Unmarshal(raw, &doc.Body); err != nil {
			zlog.Logger.Warn().
				Err(err).
				Str("table", c.table).
				Str("id", doc.ID.String()).
				Msg("skipping document with undecodable body")
			doc.Body = nil
		}

		page = append(page, doc)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("cursor: failed to read %s rows: %w", c.table, err)
	}

	c.page = page
	c.pos = 0
	if len(page) > 0 {
		c.lastID = page[len(page)-1].ID
	}
	if len(page) < c.pageSize {
		c.done = true
	}

	return nil
}
