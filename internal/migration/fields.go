package migration

import (
	"fmt"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// normalizer converts legacy image references into canonical assets.
type normalizer interface {
	Many(input any) ([]model.Asset, error)
	One(ref any) (*model.Asset, bool)
}

// Field migrates one legacy image-bearing field of a document body in place.
type Field struct {
	Name    string
	migrate func(body map[string]any, n normalizer) (bool, error)
}

// ImagesField migrates a top-level array of image references stored under key.
func ImagesField(key string) Field {
	return Field{
		Name: key,
		migrate: func(body map[string]any, n normalizer) (bool, error) {
			return migrateArray(body, key, n)
		},
	}
}

// NestedImagesField migrates the image array stored under key inside every element
// of the list stored under listKey (e.g. variants[].images).
func NestedImagesField(listKey, key string) Field {
	return Field{
		Name: listKey + "[]." + key,
		migrate: func(body map[string]any, n normalizer) (bool, error) {
			list, ok := body[listKey].([]any)
			if !ok {
				return false, nil
			}

			changed := false
			for i, item := range list {
				elem, ok := item.(map[string]any)
				if !ok {
					continue
				}

				c, err := migrateArray(elem, key, n)
				if err != nil {
					return false, fmt.Errorf("%s[%d]: %w", listKey, i, err)
				}
				changed = changed || c
			}

			return changed, nil
		},
	}
}

// SingleImageField migrates a field holding one bare image URL (category images).
func SingleImageField(key string) Field {
	return Field{
		Name: key,
		migrate: func(body map[string]any, n normalizer) (bool, error) {
			url, ok := body[key].(string)
			if !ok || url == "" {
				return false, nil
			}

			a, ok := n.One(url)
			if !ok {
				return false, nil
			}

			body[key] = *a
			return true, nil
		},
	}
}

// ProductFields are the legacy image fields of product documents.
func ProductFields() []Field {
	return []Field{ImagesField("images"), NestedImagesField("variants", "images")}
}

// CategoryFields are the legacy image fields of category documents.
func CategoryFields() []Field {
	return []Field{SingleImageField("image")}
}

// FieldsFor returns the standard field set of a collection.
func FieldsFor(c model.Collection) []Field {
	if c == model.Categories {
		return CategoryFields()
	}
	return ProductFields()
}

// migrateArray normalizes container[key] when it still holds legacy bare strings.
// Already structured arrays are left alone, which makes re-runs no-ops.
func migrateArray(container map[string]any, key string, n normalizer) (bool, error) {
	var legacy any

	switch v := container[key].(type) {
	case string:
		if v == "" {
			return false, nil
		}
		legacy = v
	case []any:
		if len(v) == 0 {
			return false, nil
		}
		if _, isString := v[0].(string); !isString {
			return false, nil
		}
		legacy = v
	default:
		return false, nil
	}

	assets, err := n.Many(legacy)
	if err != nil {
		return false, fmt.Errorf("normalize %s: %w", key, err)
	}

	container[key] = assets
	return true, nil
}
