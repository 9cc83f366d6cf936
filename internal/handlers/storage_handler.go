package handlers

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ObjectStore is the upload bucket.
type ObjectStore interface {
	BucketName() string
	SignedUploadURL(ctx context.Context, object, contentType string) (*firebase.SignedUpload, error)
	Put(ctx context.Context, object, contentType string, data io.Reader) (string, error)
}

var errStorageDisabled = echo.NewHTTPError(http.StatusServiceUnavailable, "Storage is not configured")

// StorageHandler issues direct-upload URLs
type StorageHandler struct {
	store ObjectStore
	log   *zap.Logger
}

// NewStorageHandler creates a new StorageHandler. A nil store disables uploads.
func NewStorageHandler(store ObjectStore, log *zap.Logger) *StorageHandler {
	return &StorageHandler{store: store, log: log}
}

// RegisterStorageRoutes registers storage routes
func (h *StorageHandler) RegisterStorageRoutes(private *echo.Group) {
	private.POST("/storage/signed-upload", h.SignedUpload)
}

// cleanObjectPath rejects paths that escape the bucket root.
func cleanObjectPath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "..") {
		return "", false
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	return clean, clean != "" && clean != "."
}

// SignedUpload returns a V4 signed PUT URL for path in the configured bucket.
func (h *StorageHandler) SignedUpload(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	if h.store == nil {
		return errStorageDisabled
	}
	var req models.SignedUploadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Bucket != "" && req.Bucket != h.store.BucketName() {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown bucket")
	}
	object, ok := cleanObjectPath(req.Path)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid path")
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	signed, err := h.store.SignedUploadURL(c.Request().Context(), object, contentType)
	if err != nil {
		h.log.Error("sign upload failed", zap.String("path", object), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Could not sign upload")
	}
	return respond(c, http.StatusOK, signed)
}
