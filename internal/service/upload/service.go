package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/catalog-images/internal/fingerprint"
	"github.com/aliskhannn/catalog-images/internal/metrics"
	"github.com/aliskhannn/catalog-images/internal/model"
	"github.com/aliskhannn/catalog-images/internal/storage/cas"
)

var (
	// ErrUnsupportedImageType is recorded for files outside the allowed image types.
	ErrUnsupportedImageType = errors.New("unsupported image type")

	// ErrNoFiles is returned for an empty batch.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrBatchTimeout is returned when the caller's deadline expires before the batch completes.
	ErrBatchTimeout = errors.New("upload batch timed out")
)

var allowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// sniffer resolves the effective content type of uploaded bytes.
type sniffer interface {
	Effective(data []byte, declared string) string
}

// deriver produces renditions of a source image.
type deriver interface {
	Derive(ctx context.Context, src []byte, spec model.RenditionSpec) ([]byte, error)
	Ext() string
	ContentType() string
}

// gateway stores renditions under content-addressed keys.
type gateway interface {
	PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (model.StoredRendition, error)
}

// publisher emits upload events to a message broker (e.g., Kafka).
type publisher interface {
	Produce(ctx context.Context, event model.AssetUploadedEvent) error
}

// Service turns uploaded image files into stored, deduplicated renditions.
type Service struct {
	sniffer   sniffer
	deriver   deriver
	gateway   gateway
	publisher publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a new Service. The publisher and metrics may be nil.
func NewService(s sniffer, d deriver, g gateway, p publisher, m *metrics.Metrics) *Service {
	return &Service{
		sniffer:   s,
		deriver:   d,
		gateway:   g,
		publisher: p,
		metrics:   m,
		now:       time.Now,
	}
}

// HandleBatch processes every file independently and concurrently.
//
// A failing file never aborts its siblings; it is reported as a failed FileResult.
// The only batch-level errors are an empty batch and the expiry or cancellation of ctx.
func (s *Service) HandleBatch(ctx context.Context, files []model.UploadFile, opts model.UploadOptions) (model.BatchResult, error) {
	if len(files) == 0 {
		return model.BatchResult{}, ErrNoFiles
	}

	start := s.now()
	specs := renditionSpecs(opts)
	results := make([]model.FileResult, len(files))

	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			results[i] = s.handleFile(ctx, f, specs, opts.Custom())
			return nil
		})
	}

	// Decoding and resizing do not observe ctx, so wait for the deadline separately.
	// Workers still running after it fire finish in the background; results is not read then.
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.metrics.ObserveBatch(s.now().Sub(start))

	if err := ctx.Err(); err != nil {
		return model.BatchResult{}, batchError(err)
	}

	return model.BatchResult{Status: batchStatus(results), Results: results}, nil
}

func batchError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrBatchTimeout, err)
	}
	return fmt.Errorf("upload batch aborted: %w", err)
}

func renditionSpecs(opts model.UploadOptions) []model.RenditionSpec {
	if opts.Custom() {
		return []model.RenditionSpec{model.CustomSpec(opts.MaxWidth, opts.MaxHeight)}
	}
	return []model.RenditionSpec{model.DetailSpec, model.ThumbSpec}
}

func (s *Service) handleFile(ctx context.Context, f model.UploadFile, specs []model.RenditionSpec, custom bool) model.FileResult {
	contentType := s.sniffer.Effective(f.Data, f.DeclaredType)
	if !isAllowedType(contentType) {
		return s.fail(f, fmt.Errorf("%w: %s", ErrUnsupportedImageType, contentType))
	}

	// Fingerprint the original bytes so identical sources share keys across uploads.
	fp := fingerprint.Sum(f.Data)

	stored := make([]model.StoredRendition, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			out, err := s.deriver.Derive(gctx, f.Data, spec)
			if err != nil {
				return fmt.Errorf("derive %s: %w", spec.Tag, err)
			}

			key := cas.Key(fp, spec.Tag, s.deriver.Ext())
			r, err := s.gateway.PutIfAbsent(gctx, key, out, s.deriver.ContentType())
			if err != nil {
				return fmt.Errorf("store %s: %w", spec.Tag, err)
			}

			stored[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return s.fail(f, err)
	}

	result := model.FileResult{OK: true, OriginalName: f.OriginalName}
	if custom {
		result.Custom = &stored[0]
	} else {
		result.Detail = &stored[0]
		result.Thumb = &stored[1]
	}

	allReused := true
	for i, r := range stored {
		s.metrics.ObserveRendition(specs[i].Tag, r.Reused)
		allReused = allReused && r.Reused
	}
	s.metrics.IncFile(true)

	s.publish(ctx, model.AssetUploadedEvent{
		Fingerprint:  fp,
		OriginalName: f.OriginalName,
		ContentType:  contentType,
		Renditions:   renditionURLs(specs, stored),
		Reused:       allReused,
		UploadedAt:   s.now(),
	})

	return result
}

func (s *Service) fail(f model.UploadFile, err error) model.FileResult {
	zlog.Logger.Error().Err(err).Str("file", f.OriginalName).Msg("file upload failed")
	s.metrics.IncFile(false)

	return model.FileResult{OK: false, OriginalName: f.OriginalName, Error: err.Error()}
}

// publish is best-effort: a broker outage must not fail an upload whose objects are stored.
func (s *Service) publish(ctx context.Context, event model.AssetUploadedEvent) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Produce(ctx, event); err != nil {
		zlog.Logger.Warn().Err(err).Str("fingerprint", event.Fingerprint).Msg("failed to publish upload event")
	}
}

func renditionURLs(specs []model.RenditionSpec, stored []model.StoredRendition) map[string]string {
	urls := make(map[string]string, len(specs))
	for i, spec := range specs {
		urls[spec.Tag] = stored[i].URL
	}
	return urls
}

func isAllowedType(contentType string) bool {
	for _, allowed := range allowedTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func batchStatus(results []model.FileResult) model.BatchStatus {
	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	switch {
	case failed == 0:
		return model.BatchSuccess
	case failed == len(results):
		return model.BatchFailed
	default:
		return model.BatchPartial
	}
}
