// Package cas stores renditions under content-addressed keys, writing each key at most once.
package cas

import (
	"context"
	"errors"
	"fmt"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// ErrStorageFailure wraps errors returned by the object store.
var ErrStorageFailure = errors.New("object storage failure")

// objectStore defines the object storage collaborator (e.g., MinIO, S3).
type objectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URLFor(key string) string
}

// Gateway deduplicates writes to the object store by key.
//
// The existence check and the write are separate calls. Two concurrent uploads of the
// same content may both write the key; that is harmless because the key is derived from
// the content, so both writes carry identical bytes.
type Gateway struct {
	store objectStore
}

// NewGateway creates a new Gateway over store.
func NewGateway(store objectStore) *Gateway {
	return &Gateway{store: store}
}

// Key builds the content-addressed key "<fingerprint>-<tag>.<ext>".
func Key(fingerprint, tag, ext string) string {
	return fmt.Sprintf("%s-%s.%s", fingerprint, tag, ext)
}

// PutIfAbsent stores data under key unless an object already exists there.
func (g *Gateway) PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (model.StoredRendition, error) {
	exists, err := g.store.Exists(ctx, key)
	if err != nil {
		return model.StoredRendition{}, fmt.Errorf("%w: check %s: %v", ErrStorageFailure, key, err)
	}

	if exists {
		return model.StoredRendition{Filename: key, URL: g.store.URLFor(key), Reused: true}, nil
	}

	url, err := g.store.Put(ctx, key, data, contentType)
	if err != nil {
		return model.StoredRendition{}, fmt.Errorf("%w: put %s: %v", ErrStorageFailure, key, err)
	}

	return model.StoredRendition{Filename: key, URL: url, Reused: false}, nil
}
