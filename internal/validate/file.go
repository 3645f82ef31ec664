package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// File validation errors
var (
	ErrInvalidMIMEType  = errors.New("invalid MIME type")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrFileTooLarge     = errors.New("file too large")
)

// Common MIME type categories
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
	MIMEImageGIF  = "image/gif"
	MIMEVideoMP4  = "video/mp4"
	MIMEVideoWebM = "video/webm"
	MIMEVideoMOV  = "video/quicktime"
)

// AllowedImageTypes defines allowed image MIME types.
var AllowedImageTypes = []string{
	MIMEImageJPEG,
	MIMEImagePNG,
	MIMEImageGIF,
}

// AllowedVideoTypes defines allowed video MIME types.
var AllowedVideoTypes = []string{
	MIMEVideoMP4,
	MIMEVideoWebM,
	MIMEVideoMOV,
}

// AllowedMediaTypes defines all MIME types accepted for tour media.
var AllowedMediaTypes = append(append([]string{}, AllowedImageTypes...), AllowedVideoTypes...)

// allowedExtensions are the file extensions accepted for tour media.
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".mp4":  true,
	".webm": true,
	".mov":  true,
}

// FileConstraints defines validation constraints for file uploads.
type FileConstraints struct {
	AllowedTypes []string // Allowed MIME types
	MaxSizeBytes int64    // Maximum file size in bytes
}

// MIMEType validates a MIME type against allowed types.
// Returns the normalized MIME type (lowercased) and an error if invalid.
func MIMEType(mimeType string, allowedTypes []string) (string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if mimeType == "" {
		return "", ErrEmpty
	}

	for _, allowed := range allowedTypes {
		if mimeType == strings.ToLower(allowed) {
			return mimeType, nil
		}
	}

	return "", fmt.Errorf("%w: %q not in allowed types", ErrInvalidMIMEType, mimeType)
}

// Extension validates a filename's extension against the media allowlist.
// Returns the lowercased extension including the leading dot.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
	}
	return ext, nil
}

// FileSize validates a file size against constraints.
func FileSize(sizeBytes int64, constraints FileConstraints) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}

	if constraints.MaxSizeBytes > 0 && sizeBytes > constraints.MaxSizeBytes {
		return fmt.Errorf("%w: got %d bytes, maximum is %d", ErrFileTooLarge, sizeBytes, constraints.MaxSizeBytes)
	}

	return nil
}

// File validates both MIME type and file size.
func File(mimeType string, sizeBytes int64, constraints FileConstraints) (string, error) {
	validatedType, err := MIMEType(mimeType, constraints.AllowedTypes)
	if err != nil {
		return "", err
	}

	if err := FileSize(sizeBytes, constraints); err != nil {
		return "", err
	}

	return validatedType, nil
}

// MediaFile validates a tour media upload (image or video), max 50MB.
func MediaFile(mimeType string, sizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedMediaTypes,
		MaxSizeBytes: 50 * 1024 * 1024, // 50MB
	})
}

// IsImageType reports whether the MIME type is an allowed image type.
func IsImageType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, allowed := range AllowedImageTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}
