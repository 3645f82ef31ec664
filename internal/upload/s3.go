package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// AllowedMIMETypes maps allowed MIME types to their file extensions for
// direct-to-bucket uploads.
var AllowedMIMETypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

// SignedURLRequest represents a request for a signed upload URL.
type SignedURLRequest struct {
	ContentType string // MIME type of the file
	SizeBytes   int64  // Size of the file in bytes
}

// SignedURLResponse represents the response containing the signed URL and metadata.
type SignedURLResponse struct {
	URL       string    `json:"url"`        // Pre-signed PUT URL
	Key       string    `json:"key"`        // Object key in the bucket
	ExpiresAt time.Time `json:"expires_at"` // URL expiration time
}

// Signer generates pre-signed PUT URLs so large media can bypass the API
// server and upload straight to the bucket.
type Signer struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	maxSizeBytes  int64
	urlExpiry     time.Duration
	timeNow       func() time.Time // For testability
}

// SignerConfig holds configuration for the signer.
type SignerConfig struct {
	BucketName       string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	MaxSizeMB        int
	URLExpiryMinutes int // Default: 5 minutes
}

// NewSigner creates a new signer with the given configuration.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.URLExpiryMinutes <= 0 {
		cfg.URLExpiryMinutes = 5
	}

	s3Client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return &Signer{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		maxSizeBytes:  int64(cfg.MaxSizeMB) * 1024 * 1024,
		urlExpiry:     time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		timeNow:       time.Now,
	}, nil
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	if _, ok := AllowedMIMETypes[contentType]; !ok {
		return ErrUnsupportedType
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *Signer) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}
	if sizeBytes > s.maxSizeBytes {
		return ErrFileTooLarge
	}
	return nil
}

// GenerateObjectKey creates a unique object key for the upload.
// Pattern: uploads/uuid.ext
func GenerateObjectKey(contentType string) (string, error) {
	ext, ok := AllowedMIMETypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext), nil
}

// GenerateSignedURL generates a pre-signed PUT URL for direct upload.
func (s *Signer) GenerateSignedURL(ctx context.Context, req SignedURLRequest) (*SignedURLResponse, error) {
	if err := ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}
	if err := s.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, err
	}

	key, err := GenerateObjectKey(req.ContentType)
	if err != nil {
		return nil, err
	}

	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, putObjectInput, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	return &SignedURLResponse{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}
