package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoding for imaging.Decode

	"github.com/aliskhannn/catalog-images/internal/model"
)

// ErrUnsupportedImageFormat is returned when source bytes cannot be decoded as an image.
var ErrUnsupportedImageFormat = errors.New("unsupported image format")

// Encoder writes a derived rendition in the catalog's output codec.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	Ext() string         // file extension without the dot, e.g. "webp"
	ContentType() string // MIME type stored with the object
}

// Processor derives fixed-size renditions from uploaded source images.
type Processor struct {
	encoder Encoder
}

// New creates a new Processor that re-encodes renditions with enc.
func New(enc Encoder) *Processor {
	return &Processor{encoder: enc}
}

// Ext returns the file extension of the produced renditions.
func (p *Processor) Ext() string {
	return p.encoder.Ext()
}

// ContentType returns the MIME type of the produced renditions.
func (p *Processor) ContentType() string {
	return p.encoder.ContentType()
}

// Derive scales src down to fit inside the spec's box, preserving aspect ratio and
// never upscaling, and re-encodes it.
func (p *Processor) Derive(ctx context.Context, src []byte, spec model.RenditionSpec) ([]byte, error) {
	if spec.MaxWidth <= 0 || spec.MaxHeight <= 0 {
		return nil, fmt.Errorf("invalid rendition %q: %dx%d", spec.Tag, spec.MaxWidth, spec.MaxHeight)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Decode into an image object, applying EXIF orientation.
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImageFormat, err)
	}

	// Fit inside the box; Fit returns a copy when the source is already smaller.
	fitted := imaging.Fit(img, spec.MaxWidth, spec.MaxHeight, imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	if err := p.encoder.Encode(buf, fitted); err != nil {
		return nil, fmt.Errorf("failed to encode %s rendition: %w", spec.Tag, err)
	}

	return buf.Bytes(), nil
}

// JPEGEncoder encodes renditions as JPEG. It builds without cgo, so tests use it;
// the API always serves WebP renditions.
type JPEGEncoder struct {
	Quality int
}

// Encode writes img as JPEG at the configured quality.
func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(e.Quality))
}

func (JPEGEncoder) Ext() string         { return "jpg" }
func (JPEGEncoder) ContentType() string { return "image/jpeg" }
