package model

import (
	"fmt"
	"time"
)

// Asset is the canonical representation of one catalog image.
// It is embedded in the owning product or category document and has no identity of its own.
type Asset struct {
	Filename   string     `json:"filename"`
	Detail     *Rendition `json:"detail,omitempty"` // large rendition
	Thumb      *Rendition `json:"thumb,omitempty"`  // small rendition
	Alt        string     `json:"alt"`
	IsPrimary  bool       `json:"isPrimary"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// Rendition references one stored derivative of an image.
type Rendition struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// RenditionSpec describes the bounding box a rendition is fitted into.
type RenditionSpec struct {
	Tag       string
	MaxWidth  int
	MaxHeight int
}

var (
	// DetailSpec is the large rendition shown on product pages.
	DetailSpec = RenditionSpec{Tag: "detail", MaxWidth: 1200, MaxHeight: 1200}

	// ThumbSpec is the small rendition used in listings.
	ThumbSpec = RenditionSpec{Tag: "thumb", MaxWidth: 400, MaxHeight: 400}
)

// CustomSpec returns the single rendition requested through explicit width and height.
func CustomSpec(width, height int) RenditionSpec {
	return RenditionSpec{
		Tag:       fmt.Sprintf("%dx%d", width, height),
		MaxWidth:  width,
		MaxHeight: height,
	}
}
