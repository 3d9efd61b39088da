package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/api/respond"
	"github.com/aliskhannn/catalog-images/internal/asset"
	"github.com/aliskhannn/catalog-images/internal/model"
	catalogrepo "github.com/aliskhannn/catalog-images/internal/repository/catalog"
	catalogsvc "github.com/aliskhannn/catalog-images/internal/service/catalog"
)

// service defines the catalog document operations used by the handler.
type service interface {
	CreateProduct(ctx context.Context, body map[string]any) (model.Document, error)
	ReplaceProduct(ctx context.Context, id uuid.UUID, body map[string]any) (model.Document, error)
	SetProductImages(ctx context.Context, id uuid.UUID, images any) (model.Document, error)
	SetVariantImages(ctx context.Context, id uuid.UUID, index int, images any) (model.Document, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Document, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, body map[string]any) (model.Document, error)
	ReplaceCategory(ctx context.Context, id uuid.UUID, body map[string]any) (model.Document, error)
	SetCategoryImage(ctx context.Context, id uuid.UUID, image any) (model.Document, error)
	GetCategory(ctx context.Context, id uuid.UUID) (model.Document, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Handler provides HTTP handlers for product and category documents.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// ImagesRequest replaces an image list. Images may be any accepted reference shape.
type ImagesRequest struct {
	Images json.RawMessage `json:"images"`
}

// ImageRequest replaces a single category image; null removes it.
type ImageRequest struct {
	Image any `json:"image"`
}

func (h *Handler) CreateProduct(c *ginext.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}

	doc, err := h.service.CreateProduct(c.Request.Context(), body)
	if err != nil {
		fail(c, "failed to create product", err)
		return
	}

	respond.Created(c, doc)
}

func (h *Handler) GetProduct(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, "failed to get product", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) ReplaceProduct(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	body, ok := bindBody(c)
	if !ok {
		return
	}

	doc, err := h.service.ReplaceProduct(c.Request.Context(), id, body)
	if err != nil {
		fail(c, "failed to replace product", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) SetProductImages(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	doc, err := h.service.SetProductImages(c.Request.Context(), id, req.Images)
	if err != nil {
		fail(c, "failed to set product images", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) SetVariantImages(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid variant index"))
		return
	}

	var req ImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	doc, err := h.service.SetVariantImages(c.Request.Context(), id, index, req.Images)
	if err != nil {
		fail(c, "failed to set variant images", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) CreateCategory(c *ginext.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}

	doc, err := h.service.CreateCategory(c.Request.Context(), body)
	if err != nil {
		fail(c, "failed to create category", err)
		return
	}

	respond.Created(c, doc)
}

func (h *Handler) GetCategory(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, "failed to get category", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) ReplaceCategory(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	body, ok := bindBody(c)
	if !ok {
		return
	}

	doc, err := h.service.ReplaceCategory(c.Request.Context(), id, body)
	if err != nil {
		fail(c, "failed to replace category", err)
		return
	}

	respond.OK(c, doc)
}

func (h *Handler) SetCategoryImage(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}

	doc, err := h.service.SetCategoryImage(c.Request.Context(), id, req.Image)
	if err != nil {
		fail(c, "failed to set category image", err)
		return
	}

	respond.OK(c, doc)
}

// DeleteProduct handles DELETE /products/:id.
func (h *Handler) DeleteProduct(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, "failed to delete product", err)
		return
	}

	respond.OK(c, "product deleted")
}

func (h *Handler) DeleteCategory(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, "failed to delete category", err)
		return
	}

	respond.OK(c, "category deleted")
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}
	return id, true
}

func bindBody(c *ginext.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil || body == nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("request body must be a JSON object"))
		return nil, false
	}
	return body, true
}

// fail maps service errors to HTTP statuses.
func fail(c *ginext.Context, msg string, err error) {
	switch {
	case errors.Is(err, asset.ErrInvalidImagesInput), errors.Is(err, catalogsvc.ErrInvalidDocument):
		respond.Fail(c, http.StatusBadRequest, err)
	case errors.Is(err, catalogrepo.ErrDocumentNotFound), errors.Is(err, catalogsvc.ErrVariantNotFound):
		respond.Fail(c, http.StatusNotFound, err)
	default:
		zlog.Logger.Err(err).Msg(msg)
		respond.Fail(c, http.StatusInternalServerError, errors.New(msg))
	}
}
