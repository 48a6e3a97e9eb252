package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/brightstock/imagery-backend/pkg/enums"
)

// IntakeFile tracks one uploaded asset through the intake pipeline,
// from signed-URL issuance to preview settlement.
type IntakeFile struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID     uuid.UUID          `gorm:"column:session_id;type:uuid;not null;index"`
	ProviderID    uuid.UUID          `gorm:"column:provider_id;type:uuid;not null;index"`
	FileName      string             `gorm:"column:file_name;not null"`
	MimeType      string             `gorm:"column:mime_type;not null"`
	SizeBytes     int64              `gorm:"column:size_bytes;not null"`
	Width         *int               `gorm:"column:width"`
	Height        *int               `gorm:"column:height"`
	GCSKey        string             `gorm:"column:gcs_key;not null;unique"`
	PreviewKeys   pq.StringArray     `gorm:"column:preview_keys;type:text[]"`
	Status        enums.IntakeStatus `gorm:"column:status;not null"`
	FailureReason *string            `gorm:"column:failure_reason"`
	UploadedAt    *time.Time         `gorm:"column:uploaded_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (IntakeFile) TableName() string {
	return "intake_files"
}
