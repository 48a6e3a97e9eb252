package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/enums"
)

// Repository exposes intake file persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an intake repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an intake file record.
func (r *Repository) Create(ctx context.Context, file *models.IntakeFile) (*models.IntakeFile, error) {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// FindByID retrieves an intake file by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.IntakeFile, error) {
	var f models.IntakeFile
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByGCSKey retrieves an intake file by its storage key.
func (r *Repository) FindByGCSKey(ctx context.Context, gcsKey string) (*models.IntakeFile, error) {
	var f models.IntakeFile
	if err := r.db.WithContext(ctx).First(&f, "gcs_key = ?", gcsKey).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FindBySession returns a session's intake files in registration order.
func (r *Repository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]models.IntakeFile, error) {
	var files []models.IntakeFile
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// CountPending reports how many of the session's files have not settled yet.
func (r *Repository) CountPending(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.IntakeFile{}).
		Where("session_id = ? AND status = ?", sessionID, enums.IntakeStatusPending).
		Count(&count).Error
	return count, err
}

// MarkUploaded flips a pending file to uploaded.
func (r *Repository) MarkUploaded(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.IntakeFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.IntakeStatusUploaded,
			"uploaded_at": uploadedAt,
		}).Error
}

// MarkFailed records a failed upload with its reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.IntakeFile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         enums.IntakeStatusFailed,
			"failure_reason": reason,
		}).Error
}

// AttachPreview appends a preview key unless one already exists. The
// first generated thumbnail wins; later ones extend the preview list.
func (r *Repository) AttachPreview(ctx context.Context, id uuid.UUID, previewKey string) (bool, error) {
	var f models.IntakeFile
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return false, err
	}
	first := len(f.PreviewKeys) == 0
	updated := append(pq.StringArray{}, f.PreviewKeys...)
	updated = append(updated, previewKey)
	err := r.db.WithContext(ctx).
		Model(&models.IntakeFile{}).
		Where("id = ?", id).
		Update("preview_keys", updated).Error
	if err != nil {
		return false, err
	}
	return first, nil
}

// ListCreatedBefore returns intake files registered before the cutoff.
func (r *Repository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.IntakeFile, error) {
	var files []models.IntakeFile
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Delete removes an intake file record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.IntakeFile{}).Error
}
