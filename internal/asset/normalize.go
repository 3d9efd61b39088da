// Package asset turns image references of any historical shape into canonical asset records.
//
// Everything here is pure: no I/O, and the only source of time is the clock passed to New,
// so the same code runs on the request path and inside the bulk migration.
package asset

import (
	"strings"
	"time"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// Normalizer converts legacy image references into canonical assets.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer that stamps missing upload times with now().
// A nil clock falls back to time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// One normalizes a single image reference.
//
// Supported shapes are a bare URL string, a map decoded from JSON and an already
// canonical model.Asset. It returns false for empty references and for shapes that
// carry no image (numbers, booleans); callers drop those.
func (n *Normalizer) One(ref any) (*model.Asset, bool) {
	switch v := ref.(type) {
	case nil:
		return nil, false
	case string:
		return n.fromURL(v)
	case model.Asset:
		return n.fromAsset(v)
	case *model.Asset:
		if v == nil {
			return nil, false
		}
		return n.fromAsset(*v)
	case map[string]any:
		return n.fromObject(v)
	default:
		return nil, false
	}
}

// fromURL builds a legacy record: both renditions point at the same URL.
func (n *Normalizer) fromURL(url string) (*model.Asset, bool) {
	if strings.TrimSpace(url) == "" {
		return nil, false
	}

	filename := LastPathSegment(url)

	return &model.Asset{
		Filename:   filename,
		Detail:     &model.Rendition{Filename: filename, URL: url},
		Thumb:      &model.Rendition{Filename: filename, URL: url},
		UploadedAt: n.now(),
	}, true
}

func (n *Normalizer) fromObject(obj map[string]any) (*model.Asset, bool) {
	if len(obj) == 0 {
		return nil, false
	}

	a := model.Asset{
		Filename:   stringField(obj, "filename"),
		Detail:     renditionField(obj["detail"]),
		Thumb:      renditionField(obj["thumb"]),
		Alt:        stringField(obj, "alt"),
		IsPrimary:  boolField(obj, "isPrimary"),
		UploadedAt: timeField(obj, "uploadedAt"),
	}

	return n.fromAsset(a)
}

// fromAsset fills defaults without overwriting anything explicitly set.
// The input is never mutated; rendition pointers are copied.
func (n *Normalizer) fromAsset(a model.Asset) (*model.Asset, bool) {
	if a.Detail == nil && a.Thumb == nil && a.Filename == "" {
		return nil, false
	}

	a.Detail = completeRendition(a.Detail)
	a.Thumb = completeRendition(a.Thumb)

	if a.Filename == "" {
		switch {
		case a.Detail != nil && a.Detail.Filename != "":
			a.Filename = a.Detail.Filename
		case a.Thumb != nil && a.Thumb.Filename != "":
			a.Filename = a.Thumb.Filename
		}
	}

	if a.UploadedAt.IsZero() {
		a.UploadedAt = n.now()
	}

	return &a, true
}

func completeRendition(r *model.Rendition) *model.Rendition {
	if r == nil {
		return nil
	}

	out := *r
	if out.Filename == "" && out.URL != "" {
		out.Filename = LastPathSegment(out.URL)
	}

	return &out
}

// renditionField accepts either a bare URL or a {filename, url} object.
func renditionField(v any) *model.Rendition {
	switch r := v.(type) {
	case string:
		if strings.TrimSpace(r) == "" {
			return nil
		}
		return &model.Rendition{Filename: LastPathSegment(r), URL: r}
	case map[string]any:
		out := model.Rendition{
			Filename: stringField(r, "filename"),
			URL:      stringField(r, "url"),
		}
		if out.Filename == "" && out.URL == "" {
			return nil
		}
		return &out
	case model.Rendition:
		return &r
	case *model.Rendition:
		return r
	default:
		return nil
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func boolField(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func timeField(obj map[string]any, key string) time.Time {
	switch v := obj[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// LastPathSegment returns the final path segment of a URL, ignoring any query or fragment.
// Strings without a slash are returned unchanged.
func LastPathSegment(ref string) string {
	s := ref
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")

	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}

	if s == "" {
		return ref
	}

	return s
}
