//go:build cgo

package webp

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xwebp "golang.org/x/image/webp"

	"github.com/aliskhannn/catalog-images/internal/fingerprint"
	"github.com/aliskhannn/catalog-images/internal/model"
	"github.com/aliskhannn/catalog-images/internal/processor"
	"github.com/aliskhannn/catalog-images/internal/storage/cas"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestNewEncoderDefaults(t *testing.T) {
	assert.Equal(t, float32(80), NewEncoder(0).Quality)
	assert.Equal(t, float32(80), NewEncoder(-3).Quality)
	assert.Equal(t, float32(65), NewEncoder(65).Quality)

	e := NewEncoder(0)
	assert.Equal(t, "webp", e.Ext())
	assert.Equal(t, "image/webp", e.ContentType())
}

func TestEncodeRoundTrip(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, NewEncoder(0).Encode(buf, gradient(64, 48)))

	got, err := xwebp.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), got.Bounds())

	// Lossy VP8 streams are tagged "VP8 " after the RIFF header; lossless ones use "VP8L".
	require.Greater(t, buf.Len(), 16)
	assert.Equal(t, "RIFF", string(buf.Bytes()[0:4]))
	assert.Equal(t, "WEBP", string(buf.Bytes()[8:12]))
	assert.NotEqual(t, "VP8L", string(buf.Bytes()[12:16]))
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("VP8 ")), "expected a lossy VP8 chunk")
}

func TestDeriveProducesWebPRendition(t *testing.T) {
	src := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(src, gradient(200, 100)))

	e := NewEncoder(0)
	out, err := processor.New(e).Derive(context.Background(), src.Bytes(), model.ThumbSpec)
	require.NoError(t, err)

	cfg, err := xwebp.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width, "smaller sources are not enlarged")
	assert.Equal(t, 100, cfg.Height)

	fp := fingerprint.Sum(src.Bytes())
	assert.Equal(t, fp+"-detail.webp", cas.Key(fp, model.DetailSpec.Tag, e.Ext()))
	assert.Equal(t, fp+"-thumb.webp", cas.Key(fp, model.ThumbSpec.Tag, e.Ext()))
}
