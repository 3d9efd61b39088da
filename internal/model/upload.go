package model

import "time"

// UploadFile is one raw file received by the upload endpoint.
type UploadFile struct {
	OriginalName string
	DeclaredType string // MIME type sent by the client
	Data         []byte
}

// UploadOptions overrides the default two-rendition policy.
// When both dimensions are positive a single custom rendition is produced instead.
type UploadOptions struct {
	MaxWidth  int
	MaxHeight int
}

// Custom reports whether a single custom-sized rendition was requested.
func (o UploadOptions) Custom() bool {
	return o.MaxWidth > 0 && o.MaxHeight > 0
}

// StoredRendition is the outcome of storing one rendition.
type StoredRendition struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Reused   bool   `json:"reused"`
}

// FileResult is the per-file outcome of an upload batch.
type FileResult struct {
	OK           bool             `json:"ok"`
	OriginalName string           `json:"originalName"`
	Detail       *StoredRendition `json:"detail,omitempty"`
	Thumb        *StoredRendition `json:"thumb,omitempty"`
	Custom       *StoredRendition `json:"custom,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// BatchStatus summarizes an upload batch.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchPartial BatchStatus = "partial"
	BatchFailed  BatchStatus = "failed"
)

// BatchResult holds per-file results in the order the files were received.
type BatchResult struct {
	Status  BatchStatus  `json:"status"`
	Results []FileResult `json:"results"`
}

// AssetUploadedEvent is published after a file's renditions were stored.
type AssetUploadedEvent struct {
	Fingerprint  string            `json:"fingerprint"`
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Renditions   map[string]string `json:"renditions"` // tag -> url
	Reused       bool              `json:"reused"`     // every rendition already existed
	UploadedAt   time.Time         `json:"uploaded_at"`
}
