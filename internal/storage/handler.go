package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UploadURLTTL      = 15 * time.Minute
	MaxFilenameLength = 255
	picturePrefix     = "pictures/"
)

var allowedPictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PictureUploadRequest is the body of POST /uploads/picture-url
type PictureUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// PictureUploadResponse carries the presigned PUT URL for the client
type PictureUploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Handler serves upload URL requests. A nil Service answers 503.
type Handler struct {
	storage Service
	now     func() time.Time
}

// NewHandler creates a new uploads handler
func NewHandler(storage Service) *Handler {
	return &Handler{storage: storage, now: time.Now}
}

// RegisterRoutes mounts the upload endpoints behind auth
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/uploads/picture-url", auth, h.PictureUploadURL)
}

// ValidateFilename rejects empty, overlong, path-like and extensionless names
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidUpload)
	}
	if len(filename) > MaxFilenameLength {
		return fmt.Errorf("%w: filename too long (max %d characters)", ErrInvalidUpload, MaxFilenameLength)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("%w: filename contains invalid characters", ErrInvalidUpload)
	}
	if filepath.Ext(filename) == "" {
		return fmt.Errorf("%w: filename must have an extension", ErrInvalidUpload)
	}
	return nil
}

// ValidatePictureType accepts image content types only
func ValidatePictureType(contentType string) error {
	if !allowedPictureTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("%w: content type %q is not an allowed image type", ErrInvalidUpload, contentType)
	}
	return nil
}

// PictureKey returns a fresh object key that keeps the file extension
func PictureKey(filename string) string {
	return picturePrefix + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// PictureUploadURL handles POST /uploads/picture-url
func (h *Handler) PictureUploadURL(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Uploads are not available."})
		return
	}

	var req PictureUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body: " + err.Error()})
		return
	}

	if err := ValidateFilename(req.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := ValidatePictureType(req.ContentType); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	key := PictureKey(req.Filename)
	expiresAt := h.now().Add(UploadURLTTL).UTC()

	url, err := h.storage.PresignUpload(c.Request.Context(), key, strings.ToLower(req.ContentType), UploadURLTTL)
	if err != nil {
		if errors.Is(err, ErrInvalidUpload) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		slog.Error("Failed to presign upload",
			"key", key,
			"error", err.Error(),
			"request_id", c.GetString("request_id"),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate upload URL."})
		return
	}

	c.JSON(http.StatusOK, PictureUploadResponse{
		UploadURL: url,
		Key:       key,
		ExpiresAt: expiresAt,
	})
}
