package transport

import (
	"io"
	"net/http"

	"retail-pos/internal/middleware"
	"retail-pos/internal/upload"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadHandler forwards standalone image uploads to the media host.
type UploadHandler struct {
	uploader upload.Uploader
	logger   *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploader upload.Uploader, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		logger:   logger,
	}
}

// RegisterRoutes registers the upload route, admin-only.
func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Post("/api/upload", h.Upload)
	})
}

// Upload accepts a multipart {file} and responds with {url}.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	url, err := h.uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Error("Upload to media host failed", zap.Error(err), zap.String("filename", header.Filename))
		middleware.RespondWithError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}
