package samples

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/google/uuid"

	"biolens-backend/internal/imaging"
	"biolens-backend/internal/shared/storage/object"
	"biolens-backend/internal/shared/telemetry"
)

// MaxUploadBytes bounds a sample image upload.
const MaxUploadBytes = 10 << 20

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Service handles sample upload and retrieval.
type Service struct {
	repo  Repo
	store object.ObjectStore
}

// NewService creates a sample service.
func NewService(repo Repo, store object.ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// Upload validates, stores, and records a sample image. The raw bytes
// are stored as-is; a small thumbnail is generated alongside.
func (s *Service) Upload(ctx context.Context, userID, fileName string, data []byte) (*Sample, error) {
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	mimeType := "image/" + format
	if !allowedMimeTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	storageKey, size, _, err := s.store.Save(ctx, userID, fileName, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store sample: %w", err)
	}

	thumbnailKey := s.saveThumbnail(ctx, storageKey, data)

	sample := &Sample{
		ID:           uuid.NewString(),
		UserID:       userID,
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    size,
		Width:        cfg.Width,
		Height:       cfg.Height,
		StorageKey:   storageKey,
		ThumbnailKey: thumbnailKey,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, fmt.Errorf("record sample: %w", err)
	}

	telemetry.Info("sample.uploaded", map[string]any{
		"sample_id": sample.ID,
		"user_id":   userID,
		"mime_type": mimeType,
		"bytes":     size,
		"width":     cfg.Width,
		"height":    cfg.Height,
	})
	return sample, nil
}

// saveThumbnail is best-effort; a failed thumbnail never fails the upload.
func (s *Service) saveThumbnail(ctx context.Context, storageKey string, data []byte) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	thumb, err := imaging.Thumbnail(img)
	if err != nil {
		return ""
	}
	thumbKey := storageKey + ".thumb.jpg"
	if _, err := s.store.SaveWithKey(ctx, thumbKey, "image/jpeg", bytes.NewReader(thumb)); err != nil {
		telemetry.Warn("sample.thumbnail_failed", map[string]any{"error": err.Error()})
		return ""
	}
	return thumbKey
}

// Get returns a sample owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*Sample, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List returns the user's samples, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Sample, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Latest returns the user's most recent sample.
func (s *Service) Latest(ctx context.Context, userID string) (*Sample, error) {
	return s.repo.Latest(ctx, userID)
}

// OpenImage streams the stored sample bytes.
func (s *Service) OpenImage(ctx context.Context, userID, id string) (io.ReadCloser, string, error) {
	sample, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.store.Open(ctx, sample.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("open stored sample: %w", err)
	}
	return rc, sample.MimeType, nil
}

// ReadImageBytes loads the full stored sample into memory for the pipeline.
func (s *Service) ReadImageBytes(ctx context.Context, userID, id string) ([]byte, error) {
	rc, _, err := s.OpenImage(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read stored sample: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// PresignUpload returns a direct-upload URL when the store supports it.
func (s *Service) PresignUpload(ctx context.Context, userID, fileName, contentType string) (string, string, error) {
	presigner, ok := s.store.(object.Presigner)
	if !ok {
		return "", "", fmt.Errorf("direct upload not supported by this store")
	}
	if !allowedMimeTypes[contentType] {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return presigner.PresignPut(ctx, userID, fileName, contentType)
}
