package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/catalog-images/internal/asset"
	"github.com/aliskhannn/catalog-images/internal/model"
	catalogrepo "github.com/aliskhannn/catalog-images/internal/repository/catalog"
	catalogsvc "github.com/aliskhannn/catalog-images/internal/service/catalog"
)

// stubService normalizes through the real Normalizer so handlers see realistic documents.
type stubService struct {
	normalizer *asset.Normalizer
	err        error
	lastIndex  int
	deleted    []uuid.UUID
}

func (s *stubService) doc(body map[string]any) (model.Document, error) {
	if s.err != nil {
		return model.Document{}, s.err
	}
	return model.Document{ID: uuid.New(), Body: body}, nil
}

func (s *stubService) CreateProduct(_ context.Context, body map[string]any) (model.Document, error) {
	return s.doc(body)
}

func (s *stubService) ReplaceProduct(_ context.Context, _ uuid.UUID, body map[string]any) (model.Document, error) {
	return s.doc(body)
}

func (s *stubService) SetProductImages(_ context.Context, _ uuid.UUID, images any) (model.Document, error) {
	assets, err := s.normalizer.Many(images)
	if err != nil {
		return model.Document{}, err
	}
	return s.doc(map[string]any{"images": assets})
}

func (s *stubService) SetVariantImages(_ context.Context, _ uuid.UUID, index int, images any) (model.Document, error) {
	s.lastIndex = index
	return s.SetProductImages(context.Background(), uuid.Nil, images)
}

func (s *stubService) GetProduct(_ context.Context, _ uuid.UUID) (model.Document, error) {
	return s.doc(map[string]any{"name": "Sneaker"})
}

func (s *stubService) CreateCategory(_ context.Context, body map[string]any) (model.Document, error) {
	return s.doc(body)
}

func (s *stubService) ReplaceCategory(_ context.Context, _ uuid.UUID, body map[string]any) (model.Document, error) {
	return s.doc(body)
}

func (s *stubService) SetCategoryImage(_ context.Context, _ uuid.UUID, image any) (model.Document, error) {
	return s.doc(map[string]any{"image": image})
}

func (s *stubService) GetCategory(_ context.Context, _ uuid.UUID) (model.Document, error) {
	return s.doc(map[string]any{"name": "Shoes"})
}

func (s *stubService) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *stubService) DeleteCategory(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func newRouter(s *stubService) *ginext.Engine {
	h := NewHandler(s)

	r := ginext.New()
	r.POST("/products", h.CreateProduct)
	r.GET("/products/:id", h.GetProduct)
	r.PUT("/products/:id", h.ReplaceProduct)
	r.PUT("/products/:id/images", h.SetProductImages)
	r.PUT("/products/:id/variants/:index/images", h.SetVariantImages)
	r.DELETE("/products/:id", h.DeleteProduct)
	r.POST("/categories", h.CreateCategory)
	r.GET("/categories/:id", h.GetCategory)
	r.PUT("/categories/:id/image", h.SetCategoryImage)
	r.DELETE("/categories/:id", h.DeleteCategory)

	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newStub() *stubService {
	return &stubService{normalizer: asset.New(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	})}
}

func TestCreateProduct(t *testing.T) {
	rec := do(newRouter(newStub()), http.MethodPost, "/products", `{"name":"Sneaker"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(newRouter(newStub()), http.MethodPost, "/products", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetProductImagesAcceptsLegacyShapes(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		body string
		want int
		urls int
	}{
		{name: "array of urls", body: `{"images":["https://cdn.example.com/a.jpg","https://cdn.example.com/b.jpg"]}`, want: http.StatusOK, urls: 2},
		{name: "json encoded string", body: `{"images":"[\"https://cdn.example.com/a.jpg\"]"}`, want: http.StatusOK, urls: 1},
		{name: "single url", body: `{"images":"https://cdn.example.com/a.jpg"}`, want: http.StatusOK, urls: 1},
		{name: "number", body: `{"images":42}`, want: http.StatusBadRequest},
		{name: "missing", body: `{}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(newStub()), http.MethodPut, fmt.Sprintf("/products/%s/images", id), tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())

			if tt.want != http.StatusOK {
				return
			}

			var resp struct {
				Result struct {
					Body struct {
						Images []model.Asset `json:"images"`
					} `json:"body"`
				} `json:"result"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp.Result.Body.Images, tt.urls)
		})
	}
}

func TestSetVariantImagesParsesIndex(t *testing.T) {
	s := newStub()
	r := newRouter(s)
	id := uuid.New()

	rec := do(r, http.MethodPut, fmt.Sprintf("/products/%s/variants/2/images", id), `{"images":["https://cdn.example.com/v.jpg"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.lastIndex)

	rec = do(r, http.MethodPut, fmt.Sprintf("/products/%s/variants/x/images", id), `{"images":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: catalogrepo.ErrDocumentNotFound, want: http.StatusNotFound},
		{name: "variant not found", err: fmt.Errorf("%w: index 3", catalogsvc.ErrVariantNotFound), want: http.StatusNotFound},
		{name: "invalid images", err: asset.ErrInvalidImagesInput, want: http.StatusBadRequest},
		{name: "invalid document", err: catalogsvc.ErrInvalidDocument, want: http.StatusBadRequest},
		{name: "unexpected", err: errors.New("db down"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStub()
			s.err = tt.err

			rec := do(newRouter(s), http.MethodGet, "/categories/"+uuid.NewString(), "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestInvalidID(t *testing.T) {
	rec := do(newRouter(newStub()), http.MethodGet, "/products/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetCategoryImageNullRemoves(t *testing.T) {
	rec := do(newRouter(newStub()), http.MethodPut, "/categories/"+uuid.NewString()+"/image", `{"image":null}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete(t *testing.T) {
	s := newStub()
	r := newRouter(s)
	id := uuid.New()

	rec := do(r, http.MethodDelete, "/products/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodDelete, "/categories/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id, id}, s.deleted)

	s.err = catalogrepo.ErrDocumentNotFound
	rec = do(r, http.MethodDelete, "/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodDelete, "/categories/nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
