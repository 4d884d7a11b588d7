// Package upload forwards product images to the external media host and
// hands back the hosted URL. The host owns storage and delivery; this
// package only does the intake.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"retail-pos/internal/config"

	"go.uber.org/zap"
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrInvalidBase64 = errors.New("invalid base64 image payload")
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
	UploadBase64(ctx context.Context, payload string) (string, error)
}

// MediaHostUploader talks to the configured media host over HTTP.
// Credentials are injected at construction; nothing is read from globals.
type MediaHostUploader struct {
	cfg    config.UploadConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a MediaHostUploader.
func New(cfg config.UploadConfig, logger *zap.Logger) *MediaHostUploader {
	return &MediaHostUploader{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends raw image bytes to the media host as a multipart form and
// returns the hosted URL.
func (u *MediaHostUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoFile
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload payload: %w", err)
	}
	if err := writer.WriteField("folder", u.cfg.Folder); err != nil {
		return "", fmt.Errorf("failed to write upload folder: %w", err)
	}
	if err := writer.WriteField("api_key", u.cfg.APIKey); err != nil {
		return "", fmt.Errorf("failed to write upload credentials: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.BaseURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(u.cfg.APIKey, u.cfg.APISecret)

	u.logger.Debug("Uploading image to media host",
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media host unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read media host response: %w", err)
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode media host response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("media host rejected upload: %s", msg)
	}

	url := decoded.SecureURL
	if url == "" {
		url = decoded.URL
	}
	if url == "" {
		return "", errors.New("media host returned no URL")
	}

	u.logger.Info("Image uploaded", zap.String("url", url))
	return url, nil
}

// UploadBase64 accepts a base64 payload, optionally wrapped in a data URI
// like "data:image/png;base64,....", decodes it and uploads the bytes.
func (u *MediaHostUploader) UploadBase64(ctx context.Context, payload string) (string, error) {
	contentType := "image/png"
	encoded := payload

	if strings.HasPrefix(payload, "data:") {
		header, rest, found := strings.Cut(payload, ",")
		if !found {
			return "", ErrInvalidBase64
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = rest
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}

	return u.Upload(ctx, "upload", contentType, data)
}
