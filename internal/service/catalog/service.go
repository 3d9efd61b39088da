// Package catalog is the write and read path of product and category documents.
// Every write normalizes image fields first, so stored documents only ever hold
// canonical asset records.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/asset"
	"github.com/aliskhannn/catalog-images/internal/cache"
	"github.com/aliskhannn/catalog-images/internal/model"
)

var (
	ErrInvalidDocument = errors.New("invalid document")
	ErrVariantNotFound = errors.New("variant not found")
)

const (
	imagesField   = "images"
	variantsField = "variants"
	imageField    = "image"
)

type repository interface {
	Create(ctx context.Context, c model.Collection, body map[string]any) (model.Document, error)
	Get(ctx context.Context, c model.Collection, id uuid.UUID) (model.Document, error)
	Save(ctx context.Context, c model.Collection, doc model.Document) error
	Delete(ctx context.Context, c model.Collection, id uuid.UUID) error
}

type documentCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Del(ctx context.Context, keys ...string) error
}

type normalizer interface {
	Many(input any) ([]model.Asset, error)
	One(ref any) (*model.Asset, bool)
}

type Service struct {
	repo       repository
	cache      documentCache
	normalizer normalizer
}

// NewService creates a new Service. The cache may be nil.
func NewService(r repository, c documentCache, n normalizer) *Service {
	return &Service{repo: r, cache: c, normalizer: n}
}

func (s *Service) CreateProduct(ctx context.Context, body map[string]any) (model.Document, error) {
	if body == nil {
		return model.Document{}, ErrInvalidDocument
	}

	if err := s.normalizeProduct(body); err != nil {
		return model.Document{}, err
	}

	return s.repo.Create(ctx, model.Products, body)
}

func (s *Service) ReplaceProduct(ctx context.Context, id uuid.UUID, body map[string]any) (model.Document, error) {
	if body == nil {
		return model.Document{}, ErrInvalidDocument
	}

	if err := s.normalizeProduct(body); err != nil {
		return model.Document{}, err
	}

	return s.save(ctx, model.Products, model.Document{ID: id, Body: body})
}

// SetProductImages replaces the top-level image list of a product.
func (s *Service) SetProductImages(ctx context.Context, id uuid.UUID, images any) (model.Document, error) {
	assets, err := s.normalizer.Many(images)
	if err != nil {
		return model.Document{}, err
	}

	doc, err := s.repo.Get(ctx, model.Products, id)
	if err != nil {
		return model.Document{}, err
	}

	if doc.Body == nil {
		doc.Body = make(map[string]any)
	}
	doc.Body[imagesField] = assets

	return s.save(ctx, model.Products, doc)
}

// SetVariantImages replaces the image list of the variant at index.
func (s *Service) SetVariantImages(ctx context.Context, id uuid.UUID, index int, images any) (model.Document, error) {
	assets, err := s.normalizer.Many(images)
	if err != nil {
		return model.Document{}, err
	}

	doc, err := s.repo.Get(ctx, model.Products, id)
	if err != nil {
		return model.Document{}, err
	}

	variants, _ := doc.Body[variantsField].([]any)
	if index < 0 || index >= len(variants) {
		return model.Document{}, fmt.Errorf("%w: index %d", ErrVariantNotFound, index)
	}

	variant, ok := variants[index].(map[string]any)
	if !ok {
		return model.Document{}, fmt.Errorf("%w: index %d is not an object", ErrVariantNotFound, index)
	}
	variant[imagesField] = assets

	return s.save(ctx, model.Products, doc)
}

func (s *Service) CreateCategory(ctx context.Context, body map[string]any) (model.Document, error) {
	if body == nil {
		return model.Document{}, ErrInvalidDocument
	}

	if err := s.normalizeCategory(body); err != nil {
		return model.Document{}, err
	}

	return s.repo.Create(ctx, model.Categories, body)
}

func (s *Service) ReplaceCategory(ctx context.Context, id uuid.UUID, body map[string]any) (model.Document, error) {
	if body == nil {
		return model.Document{}, ErrInvalidDocument
	}

	if err := s.normalizeCategory(body); err != nil {
		return model.Document{}, err
	}

	return s.save(ctx, model.Categories, model.Document{ID: id, Body: body})
}

// SetCategoryImage replaces the category image. An empty reference removes it.
func (s *Service) SetCategoryImage(ctx context.Context, id uuid.UUID, image any) (model.Document, error) {
	doc, err := s.repo.Get(ctx, model.Categories, id)
	if err != nil {
		return model.Document{}, err
	}

	if doc.Body == nil {
		doc.Body = make(map[string]any)
	}
	doc.Body[imageField] = image

	if err := s.normalizeCategory(doc.Body); err != nil {
		return model.Document{}, err
	}

	return s.save(ctx, model.Categories, doc)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (model.Document, error) {
	return s.get(ctx, model.Products, id)
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (model.Document, error) {
	return s.get(ctx, model.Categories, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.Products, id)
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.Categories, id)
}

// delete removes the document together with its embedded asset records.
// Rendition objects stay in storage since other documents may share them.
func (s *Service) delete(ctx context.Context, c model.Collection, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, c, id); err != nil {
		return err
	}

	s.invalidate(ctx, c, id)

	return nil
}

// get is a cache-aside read. Cache failures are logged and fall through to the repository.
func (s *Service) get(ctx context.Context, c model.Collection, id uuid.UUID) (model.Document, error) {
	key := cache.Key(string(c), id.String())

	if s.cache != nil {
		var doc model.Document
		hit, err := s.cache.Get(ctx, key, &doc)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to read document from cache")
		}
		if hit {
			return doc, nil
		}
	}

	doc, err := s.repo.Get(ctx, c, id)
	if err != nil {
		return model.Document{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, doc); err != nil {
			zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to cache document")
		}
	}

	return doc, nil
}

func (s *Service) save(ctx context.Context, c model.Collection, doc model.Document) (model.Document, error) {
	if err := s.repo.Save(ctx, c, doc); err != nil {
		return model.Document{}, err
	}

	s.invalidate(ctx, c, doc.ID)

	return doc, nil
}

func (s *Service) invalidate(ctx context.Context, c model.Collection, id uuid.UUID) {
	if s.cache == nil {
		return
	}

	key := cache.Key(string(c), id.String())
	if err := s.cache.Del(ctx, key); err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate cached document")
	}
}

// normalizeProduct rewrites images and variants[].images in place.
func (s *Service) normalizeProduct(body map[string]any) error {
	if err := s.normalizeList(body); err != nil {
		return err
	}

	raw, ok := body[variantsField]
	if !ok || raw == nil {
		return nil
	}

	variants, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("%w: %s must be an array", ErrInvalidDocument, variantsField)
	}

	for i, v := range variants {
		variant, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidDocument, variantsField, i)
		}

		if err := s.normalizeList(variant); err != nil {
			return fmt.Errorf("%s[%d]: %w", variantsField, i, err)
		}
	}

	return nil
}

func (s *Service) normalizeList(container map[string]any) error {
	raw, ok := container[imagesField]
	if !ok || raw == nil {
		return nil
	}

	assets, err := s.normalizer.Many(raw)
	if err != nil {
		return err
	}

	container[imagesField] = assets
	return nil
}

// normalizeCategory rewrites the single category image in place.
func (s *Service) normalizeCategory(body map[string]any) error {
	raw, ok := body[imageField]
	if !ok {
		return nil
	}

	if isEmptyRef(raw) {
		delete(body, imageField)
		return nil
	}

	a, ok := s.normalizer.One(raw)
	if !ok {
		return fmt.Errorf("%w: %s holds no image reference", asset.ErrInvalidImagesInput, imageField)
	}

	body[imageField] = *a
	return nil
}

func isEmptyRef(v any) bool {
	switch ref := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(ref) == ""
	case map[string]any:
		return len(ref) == 0
	}
	return false
}
