package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcadehq/arcade/internal/metrics"
	"github.com/arcadehq/arcade/internal/middleware"
	"github.com/arcadehq/arcade/internal/upload"
)

// maxUploadFiles caps the file count per multi-upload request.
const maxUploadFiles = 10

// UploadResponse represents a saved single upload.
type UploadResponse struct {
	Message string `json:"message"`
	*upload.StoredFile
}

// UploadHandlers holds dependencies for media upload HTTP handlers.
type UploadHandlers struct {
	store   *upload.LocalStore
	signer  *upload.Signer
	metrics *metrics.Metrics
}

// NewUploadHandlers creates a new UploadHandlers instance.
// signer and metrics may be nil.
func NewUploadHandlers(store *upload.LocalStore, signer *upload.Signer, m *metrics.Metrics) *UploadHandlers {
	return &UploadHandlers{store: store, signer: signer, metrics: m}
}

// UploadSingle handles POST /upload/single - accepts one multipart file in
// the "file" field and stores it on disk.
func (h *UploadHandlers) UploadSingle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.store.MaxSizeBytes()+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "No file uploaded")
		return
	}
	file.Close()

	stored, err := h.store.SaveMultipart(header)
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	h.countUpload("ok")
	WriteJSON(w, r.Context(), http.StatusOK, UploadResponse{
		Message:    "File uploaded successfully",
		StoredFile: stored,
	})
}

// UploadMultiple handles POST /upload/multiple - accepts up to 10 multipart
// files in the "files" field.
func (h *UploadHandlers) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	limit := h.store.MaxSizeBytes()*maxUploadFiles + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart request")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "No files uploaded")
		return
	}
	if len(headers) > maxUploadFiles {
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Too many files in one request")
		return
	}

	files := make([]*upload.StoredFile, 0, len(headers))
	for _, header := range headers {
		stored, err := h.store.SaveMultipart(header)
		if err != nil {
			h.writeUploadError(w, r, err)
			return
		}
		files = append(files, stored)
	}

	h.countUpload("ok")
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"message": "Files uploaded successfully",
		"files":   files,
	})
}

// SignUploadRequest represents the request body for a pre-signed upload URL.
type SignUploadRequest struct {
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// SignUpload handles POST /upload/sign - returns a pre-signed PUT URL for
// direct-to-bucket upload. Returns 404 when object storage is not configured.
func (h *UploadHandlers) SignUpload(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Direct upload is not configured")
		return
	}

	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	signed, err := h.signer.GenerateSignedURL(r.Context(), upload.SignedURLRequest{
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		h.writeUploadError(w, r, err)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, signed)
}

// writeUploadError maps upload package errors to API error responses.
func (h *UploadHandlers) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUploadTooLarge)
		WriteError(w, ctx, http.StatusRequestEntityTooLarge, ErrCodeUploadTooLarge, "File exceeds the maximum allowed size")
	case errors.Is(err, upload.ErrUnsupportedType):
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
		WriteError(w, ctx, http.StatusUnsupportedMediaType, ErrCodeUnsupportedType, "File type is not allowed")
	case errors.Is(err, upload.ErrNoFile):
		h.countUpload("rejected")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "No file uploaded")
	default:
		h.countUpload("error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store upload")
	}
}

func (h *UploadHandlers) countUpload(outcome string) {
	if h.metrics != nil {
		h.metrics.IncUploads(outcome)
	}
}
