package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalImageService is the disk-backed BlobStore used when Cloudinary is not
// configured. Files land in uploadDir and are served at /uploads/; the
// filename doubles as the deletion handle. No transformation is applied, so
// the thumbnail URL is the primary URL.
type LocalImageService struct {
	uploadDir string
}

func NewLocalImageService(uploadDir string) (*LocalImageService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, err
	}
	return &LocalImageService{uploadDir: uploadDir}, nil
}

func (s *LocalImageService) Upload(ctx context.Context, data []byte, opts UploadOptions) (*BlobInfo, error) {
	ext := ".jpg"
	if DetectImageFormat(data) == "png" {
		ext = ".png"
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	u := "/uploads/" + name
	info := &BlobInfo{
		URL:       u,
		PublicID:  name,
		SizeBytes: len(data),
	}
	if opts.Thumbnail {
		info.ThumbURL = u
	}
	return info, nil
}

func (s *LocalImageService) Delete(ctx context.Context, publicID string) error {
	// publicID is a bare filename; refuse anything that escapes uploadDir.
	if filepath.Base(publicID) != publicID {
		return fmt.Errorf("invalid image handle %q", publicID)
	}
	if err := os.Remove(filepath.Join(s.uploadDir, publicID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
