package samples

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"biolens-backend/internal/shared/server/middleware"
	"biolens-backend/internal/shared/server/respond"
)

// Handler serves sample endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a sample handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload handles POST /api/v1/samples (multipart form, field "file").
func (h *Handler) Upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "missing_file", "A file field is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image exceeds the 10MB limit", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "Could not read uploaded file", nil)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_file", "Could not read uploaded file", nil)
		return
	}

	sample, err := h.svc.Upload(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "Image exceeds the 10MB limit", nil)
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "Only JPEG and PNG images are accepted", nil)
		case errors.Is(err, ErrInvalidImage):
			respond.Error(c, http.StatusBadRequest, "invalid_image", "File is not a decodable image", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to store sample", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, sample)
}

// Presign handles POST /api/v1/samples/presign.
func (h *Handler) Presign(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	var body struct {
		FileName    string `json:"fileName"`
		ContentType string `json:"contentType"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.FileName == "" || body.ContentType == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "fileName and contentType are required", nil)
		return
	}

	url, storageKey, err := h.svc.PresignUpload(c.Request.Context(), userID, body.FileName, body.ContentType)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "Only JPEG and PNG images are accepted", nil)
			return
		}
		respond.Error(c, http.StatusNotImplemented, "presign_unavailable", "Direct upload is not available", nil)
		return
	}

	respond.OK(c, gin.H{"url": url, "storageKey": storageKey})
}

// List handles GET /api/v1/samples.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to list samples", nil)
		return
	}
	if list == nil {
		list = []*Sample{}
	}
	respond.OK(c, gin.H{"samples": list})
}

// Current handles GET /api/v1/samples/current.
func (h *Handler) Current(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	sample, err := h.svc.Latest(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "No samples uploaded yet", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch sample", nil)
		return
	}
	respond.OK(c, sample)
}

// Image handles GET /api/v1/samples/:id/image, streaming the stored bytes.
func (h *Handler) Image(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	rc, mimeType, err := h.svc.OpenImage(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Sample not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to open sample", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", mimeType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
