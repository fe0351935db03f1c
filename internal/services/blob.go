package services

import "context"

// UploadOptions describe the server-side transformation requested from the
// blob provider. The core validates size and format before calling Upload
// and does not rely on the provider for validation.
type UploadOptions struct {
	Folder    string
	MaxDim    int
	CropMode  string // "limit" or "fill"
	Quality   string // e.g. "auto:good"
	Thumbnail bool   // also derive a face-aware square thumbnail
}

// BlobInfo is the result of a stored image: a stable URL, an optional
// derived thumbnail URL, and an opaque handle for later deletion.
type BlobInfo struct {
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	PublicID  string `json:"public_id"`
	SizeBytes int    `json:"size_bytes,omitempty"`
}

// BlobStore is the image storage and transformation provider.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, opts UploadOptions) (*BlobInfo, error)
	Delete(ctx context.Context, publicID string) error
}

// Image validation bounds shared by selfie and profile photo uploads.
const (
	MaxImageBytes = 1_000_000
	MinImageBytes = 1_000
)

// DetectImageFormat sniffs the leading bytes for a JPEG (FF D8 FF) or PNG
// (89 50 4E 47) signature. Returns "" for anything else.
func DetectImageFormat(data []byte) string {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg"
	}
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "png"
	}
	return ""
}
