package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/catalog-images/internal/model"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(&dbpg.DB{Master: db}), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products (doc)")).
		WithArgs(`{"name":"Sneaker"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at"}).AddRow(id.String(), now))

	doc, err := repo.Create(context.Background(), model.Products, map[string]any{"name": "Sneaker"})
	require.NoError(t, err)

	assert.Equal(t, id, doc.ID)
	assert.Equal(t, now, doc.UpdatedAt)
	assert.Equal(t, "Sneaker", doc.Body["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc, updated_at")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"doc", "updated_at"}).
			AddRow([]byte(`{"name":"Shoes","image":"https://cdn.example.com/c.jpg"}`), time.Now()))

	doc, err := repo.Get(context.Background(), model.Categories, id)
	require.NoError(t, err)

	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "https://cdn.example.com/c.jpg", doc.Body["image"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc, updated_at")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), model.Products, id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSave(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).
		WithArgs(id, `{"images":[]}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), model.Products, model.Document{ID: id, Body: map[string]any{"images": []any{}}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), model.Categories, model.Document{ID: uuid.New(), Body: map[string]any{}})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), model.Products, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), model.Categories, id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownCollection(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Get(context.Background(), model.Collection("orders; DROP TABLE products"), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = repo.Cursor(context.Background(), model.Collection("orders"))
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestCursorPagesInIDOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	repo.pageSize = 2

	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		uuid.MustParse("00000000-0000-0000-0000-000000000003"),
	}
	now := time.Now()
	query := regexp.QuoteMeta("SELECT id, doc, updated_at")

	mock.ExpectQuery(query).
		WithArgs(uuid.Nil, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "updated_at"}).
			AddRow(ids[0].String(), []byte(`{"n":1}`), now).
			AddRow(ids[1].String(), []byte(`{"n":2}`), now))
	mock.ExpectQuery(query).
		WithArgs(ids[1], 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc", "updated_at"}).
			AddRow(ids[2].String(), []byte(`[1,2,3]`), now))

	cur, err := repo.Cursor(context.Background(), model.Products)
	require.NoError(t, err)
	defer cur.Close()

	var got []model.Document
	for {
		doc, ok, err := cur.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, doc)
	}

	require.Len(t, got, 3)
	for i, doc := range got {
		assert.Equal(t, ids[i], doc.ID)
	}
	assert.Equal(t, float64(2), got[1].Body["n"])
	assert.Nil(t, got[2].Body, "non-object bodies are skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursorQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, doc, updated_at")).WillReturnError(boom)

	cur, err := repo.Cursor(context.Background(), model.Products)
	require.NoError(t, err)

	_, _, err = cur.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}
