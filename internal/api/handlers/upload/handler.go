package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/api/respond"
	"github.com/aliskhannn/catalog-images/internal/model"
	uploadsvc "github.com/aliskhannn/catalog-images/internal/service/upload"
)

// formField is the multipart field carrying the uploaded files.
const formField = "images"

// maxMemory bounds the part of a multipart form kept in memory; the rest spills to disk.
const maxMemory = 32 << 20

var (
	ErrInvalidDimension = errors.New("width and height must be positive integers")
	ErrFileTooLarge     = errors.New("file too large")
)

// service defines the upload orchestrator used by the handler.
type service interface {
	HandleBatch(ctx context.Context, files []model.UploadFile, opts model.UploadOptions) (model.BatchResult, error)
}

// Handler serves the image upload endpoint.
type Handler struct {
	service     service
	maxFileSize int64
	timeout     time.Duration
}

// NewHandler creates a new Handler.
// - maxFileSize: per-file limit in bytes
// - timeout: deadline for processing a whole batch
func NewHandler(s service, maxFileSize int64, timeout time.Duration) *Handler {
	return &Handler{service: s, maxFileSize: maxFileSize, timeout: timeout}
}

// Upload handles POST /api/v1/uploads.
//
// Every file under the "images" field is processed independently. The response status
// reflects the batch: 200 when all files succeeded, 207 when some did and 400 when none did.
func (h *Handler) Upload(c *ginext.Context) {
	opts, err := parseOptions(c.Query("width"), c.Query("height"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse multipart form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	var headers []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		headers = c.Request.MultipartForm.File[formField]
	}

	files, err := h.readFiles(headers)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			respond.Fail(c, http.StatusRequestEntityTooLarge, err)
			return
		}

		zlog.Logger.Err(err).Msg("failed to read uploaded files")
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.service.HandleBatch(ctx, files, opts)
	if err != nil {
		switch {
		case errors.Is(err, uploadsvc.ErrNoFiles):
			respond.Fail(c, http.StatusBadRequest, err)
		case errors.Is(err, uploadsvc.ErrBatchTimeout):
			zlog.Logger.Warn().Err(err).Int("files", len(files)).Msg("upload batch timed out")
			respond.Fail(c, http.StatusGatewayTimeout, uploadsvc.ErrBatchTimeout)
		default:
			zlog.Logger.Err(err).Msg("upload batch failed")
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("upload failed"))
		}
		return
	}

	switch res.Status {
	case model.BatchPartial:
		respond.MultiStatus(c, res)
	default:
		respond.JSON(c, StatusFor(res.Status), res)
	}
}

// StatusFor maps a batch outcome to its HTTP status code.
func StatusFor(s model.BatchStatus) int {
	switch s {
	case model.BatchSuccess:
		return http.StatusOK
	case model.BatchPartial:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) readFiles(headers []*multipart.FileHeader) ([]model.UploadFile, error) {
	files := make([]model.UploadFile, 0, len(headers))

	for _, fh := range headers {
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, fh.Filename, h.maxFileSize)
		}

		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}

		files = append(files, model.UploadFile{
			OriginalName: fh.Filename,
			DeclaredType: fh.Header.Get("Content-Type"),
			Data:         data,
		})
	}

	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// parseOptions reads the optional width and height query parameters.
// Missing values are zero, which keeps the default rendition policy.
func parseOptions(width, height string) (model.UploadOptions, error) {
	w, err := parseDimension(width)
	if err != nil {
		return model.UploadOptions{}, err
	}

	h, err := parseDimension(height)
	if err != nil {
		return model.UploadOptions{}, err
	}

	return model.UploadOptions{MaxWidth: w, MaxHeight: h}, nil
}

func parseDimension(v string) (int, error) {
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDimension, v)
	}

	return n, nil
}
