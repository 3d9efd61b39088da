package file

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// defaultCacheControl lets CDNs and browsers keep immutable content-addressed objects for 60 days.
const defaultCacheControl = "public, max-age=5184000"

// Options configures the S3-compatible storage backend.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketName    string
	UseSSL        bool
	PublicBaseURL string // base of the public object URLs; defaults to <scheme>://<endpoint>/<bucket>
	CacheControl  string
}

// Storage provides an S3-compatible object storage backend using MinIO.
// Objects are addressed by opaque keys chosen by the caller.
type Storage struct {
	client       *minio.Client
	bucketName   string
	baseURL      string
	cacheControl string
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, opts Options) (*Storage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, opts.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return newStorage(client, opts), nil
}

func newStorage(client *minio.Client, opts Options) *Storage {
	baseURL := opts.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.BucketName)
	}

	cacheControl := opts.CacheControl
	if cacheControl == "" {
		cacheControl = defaultCacheControl
	}

	return &Storage{
		client:       client,
		bucketName:   opts.BucketName,
		baseURL:      strings.TrimRight(baseURL, "/"),
		cacheControl: cacheControl,
	}
}

// Exists reports whether an object with the given key is stored.
// It only reads object metadata.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat object: %w", err)
}

// Put uploads data under key and returns its public URL.
func (s *Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: s.cacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return s.URLFor(key), nil
}

// URLFor returns the public URL of key without contacting the store.
func (s *Storage) URLFor(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
