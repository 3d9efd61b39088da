// Package webp provides the lossy WebP encoder used for catalog renditions.
package webp

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// DefaultQuality is the catalog's rendition quality.
const DefaultQuality = 80

// Encoder encodes renditions as lossy WebP.
type Encoder struct {
	Quality float32
}

// NewEncoder returns an Encoder with the given quality, or DefaultQuality when q <= 0.
func NewEncoder(q int) Encoder {
	if q <= 0 {
		q = DefaultQuality
	}
	return Encoder{Quality: float32(q)}
}

// Encode writes img as lossy WebP.
func (e Encoder) Encode(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Quality: e.Quality})
}

func (Encoder) Ext() string         { return "webp" }
func (Encoder) ContentType() string { return "image/webp" }
