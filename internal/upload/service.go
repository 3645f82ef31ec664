// Package upload provides media storage for tour steps: multipart uploads
// saved to local disk with thumbnail generation, plus optional pre-signed
// URLs for direct-to-bucket uploads.
package upload

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for thumbnailing
	"image/jpeg"
	_ "image/png"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"

	"github.com/arcadehq/arcade/internal/validate"
)

// DefaultMaxSizeMB is the per-file upload cap when none is configured.
const DefaultMaxSizeMB = 50

// thumbnailMaxDim is the bounding box for generated thumbnails.
const thumbnailMaxDim = 300

// Validation errors
var (
	ErrNoFile          = errors.New("no file provided")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed")
)

// StoredFile describes a saved upload.
type StoredFile struct {
	FileURL      string `json:"fileUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
}

// LocalStore saves uploads to a directory on local disk. Files are served
// back under the /uploads/ path by a static file handler.
type LocalStore struct {
	dir          string
	maxSizeBytes int64
}

// NewLocalStore creates the upload directory if needed and returns a store.
func NewLocalStore(dir string, maxSizeMB int) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &LocalStore{
		dir:          dir,
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// MaxSizeBytes returns the per-file size cap.
func (s *LocalStore) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// SaveMultipart validates and persists one multipart file. Image uploads
// additionally get a JPEG thumbnail saved alongside the original.
func (s *LocalStore) SaveMultipart(fh *multipart.FileHeader) (*StoredFile, error) {
	if fh == nil {
		return nil, ErrNoFile
	}
	if fh.Size <= 0 {
		return nil, ErrNoFile
	}
	if fh.Size > s.maxSizeBytes {
		return nil, ErrFileTooLarge
	}

	ext, err := validate.Extension(fh.Filename)
	if err != nil {
		return nil, ErrUnsupportedType
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uniqueFilename(ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.maxSizeBytes+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > s.maxSizeBytes {
		os.Remove(path)
		return nil, ErrFileTooLarge
	}

	stored := &StoredFile{
		FileURL:      "/uploads/" + name,
		Filename:     name,
		OriginalName: fh.Filename,
		Size:         written,
	}

	if isImageExt(ext) {
		if thumbName, err := s.writeThumbnail(path, name); err == nil {
			stored.ThumbnailURL = "/uploads/" + thumbName
		}
		// Thumbnail failure is not fatal, the original is already saved
	}

	return stored, nil
}

// writeThumbnail decodes the saved image and writes a bounded JPEG thumbnail
// next to it.
func (s *LocalStore) writeThumbnail(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", err
	}

	thumb := resize.Thumbnail(thumbnailMaxDim, thumbnailMaxDim, img, resize.Lanczos3)

	thumbName := "thumb-" + strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	out, err := os.Create(filepath.Join(s.dir, thumbName))
	if err != nil {
		return "", err
	}

	err = jpeg.Encode(out, thumb, &jpeg.Options{Quality: 80})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, thumbName))
		return "", err
	}
	return thumbName, nil
}

// uniqueFilename builds a collision-resistant name in the form
// file-<timestamp>-<random><ext>.
func uniqueFilename(ext string) string {
	return fmt.Sprintf("file-%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpeg", ".jpg", ".png", ".gif":
		return true
	}
	return false
}
