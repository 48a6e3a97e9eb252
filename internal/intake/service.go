// Package intake moves provider files from registration to settled
// uploads: signed PUT URLs against the intake bucket, persisted status
// rows, thumbnail previews, and completion tracking per session.
package intake

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

type gcsClient interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

type intakeRepository interface {
	Create(ctx context.Context, file *models.IntakeFile) (*models.IntakeFile, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.IntakeFile, error)
	FindByGCSKey(ctx context.Context, gcsKey string) (*models.IntakeFile, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]models.IntakeFile, error)
	CountPending(ctx context.Context, sessionID uuid.UUID) (int64, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	AttachPreview(ctx context.Context, id uuid.UUID, previewKey string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RegisterInput models the payload required to add a file to a session.
type RegisterInput struct {
	SessionID  uuid.UUID
	ProviderID uuid.UUID
	FileName   string
	MimeType   string
	SizeBytes  int64
	Width      *int
	Height     *int
	// Head holds the file's leading bytes for content sniffing when the
	// client does not declare a mime type.
	Head []byte
}

// File is the pipeline's view of one registered intake file.
type File struct {
	ID            uuid.UUID          `json:"id"`
	SessionID     uuid.UUID          `json:"session_id"`
	FileName      string             `json:"file_name"`
	MimeType      string             `json:"mime_type"`
	SizeBytes     int64              `json:"size_bytes"`
	Width         *int               `json:"width,omitempty"`
	Height        *int               `json:"height,omitempty"`
	GCSKey        string             `json:"gcs_key"`
	UploadURL     string             `json:"upload_url,omitempty"`
	PreviewURL    string             `json:"preview_url,omitempty"`
	Status        enums.IntakeStatus `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time          `json:"expires_at,omitempty"`
}

// Service exposes the intake pipeline operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*File, error)
	Remove(ctx context.Context, sessionID, fileID uuid.UUID) error
	AttachThumbnail(ctx context.Context, fileID uuid.UUID, previewKey string) error
	SettleUpload(ctx context.Context, gcsKey string, succeeded bool, reason string) error
	Files(ctx context.Context, sessionID uuid.UUID) ([]File, error)
}

// ServiceParams groups dependencies for the intake service.
type ServiceParams struct {
	Repo   intakeRepository
	GCS    gcsClient
	Bucket config.GCSConfig
	Intake config.IntakeConfig
	Sink   Sink
	Logger *logger.Logger
}

type service struct {
	repo        intakeRepository
	gcs         gcsClient
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
	maxBytes    int64
	sink        Sink
	logger      *logger.Logger
	now         func() time.Time
}

// NewService constructs an intake service backed by the provided
// repository and GCS signer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intake repository is required")
	}
	if params.GCS == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gcs client is required")
	}
	if params.Bucket.BucketName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gcs bucket is required")
	}
	if params.Bucket.UploadURLExpiry <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload url expiry must be positive")
	}
	return &service{
		repo:        params.Repo,
		gcs:         params.GCS,
		bucket:      params.Bucket.BucketName,
		uploadTTL:   params.Bucket.UploadURLExpiry,
		downloadTTL: params.Bucket.DownloadURLExpiry,
		maxBytes:    int64(params.Intake.MaxUploadMB) * 1024 * 1024,
		sink:        params.Sink,
		logger:      params.Logger,
		now:         time.Now,
	}, nil
}

// Register validates the file, persists a pending row, and mints a
// signed upload URL for the client to PUT against.
func (s *service) Register(ctx context.Context, input RegisterInput) (*File, error) {
	if input.SessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if s.maxBytes > 0 && input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("size_bytes must not exceed %d bytes", s.maxBytes))
	}

	mimeType, err := resolveMimeType(input.MimeType, input.Head)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New()
	gcsKey := buildGCSKey(input.SessionID, fileID, fileName)

	row := &models.IntakeFile{
		ID:         fileID,
		SessionID:  input.SessionID,
		ProviderID: input.ProviderID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  input.SizeBytes,
		Width:      input.Width,
		Height:     input.Height,
		GCSKey:     gcsKey,
		Status:     enums.IntakeStatusPending,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist intake file")
	}

	signedURL, err := s.gcs.SignedURL(s.bucket, gcsKey, mimeType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, fileID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	file := &File{
		ID:        fileID,
		SessionID: input.SessionID,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: input.SizeBytes,
		Width:     input.Width,
		Height:    input.Height,
		GCSKey:    gcsKey,
		UploadURL: signedURL,
		Status:    enums.IntakeStatusPending,
		ExpiresAt: s.now().Add(s.uploadTTL),
	}
	s.emit(Event{Kind: EventFileAdded, SessionID: input.SessionID, FileID: fileID, File: file})
	return file, nil
}

// Remove drops a registered file from its session. The stored object is
// deleted best-effort; a stale object in the bucket is harmless.
func (s *service) Remove(ctx context.Context, sessionID, fileID uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "intake file not found")
	}
	if row.SessionID != sessionID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "intake file not found in session")
	}
	if err := s.repo.Delete(ctx, fileID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete intake file")
	}
	if err := s.gcs.DeleteObject(ctx, s.bucket, row.GCSKey); err != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithField(ctx, "gcs_key", row.GCSKey), "intake object cleanup failed")
	}
	s.emit(Event{Kind: EventFileRemoved, SessionID: sessionID, FileID: fileID})
	return nil
}

// AttachThumbnail records a generated preview. Only the first preview
// per file announces a thumbnail to the session.
func (s *service) AttachThumbnail(ctx context.Context, fileID uuid.UUID, previewKey string) error {
	if strings.TrimSpace(previewKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "preview key is required")
	}
	row, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "intake file not found")
	}
	first, err := s.repo.AttachPreview(ctx, fileID, previewKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach preview")
	}
	if !first {
		return nil
	}
	previewURL, err := s.gcs.SignedReadURL(s.bucket, previewKey, s.downloadTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign preview url")
	}
	s.emit(Event{
		Kind:       EventThumbnailGenerated,
		SessionID:  row.SessionID,
		FileID:     fileID,
		PreviewURL: previewURL,
	})
	return nil
}

// SettleUpload records the outcome of an upload identified by its
// storage key. Settling an already-settled file is a no-op. When the
// session's last pending file settles, a complete event follows.
func (s *service) SettleUpload(ctx context.Context, gcsKey string, succeeded bool, reason string) error {
	row, err := s.repo.FindByGCSKey(ctx, gcsKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "intake file not found for key")
	}
	if row.Status != enums.IntakeStatusPending {
		return nil
	}

	if succeeded {
		err = s.repo.MarkUploaded(ctx, row.ID, s.now())
	} else {
		err = s.repo.MarkFailed(ctx, row.ID, reason)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle intake file")
	}

	s.emit(Event{
		Kind:      EventUploadResult,
		SessionID: row.SessionID,
		FileID:    row.ID,
		Succeeded: succeeded,
		Reason:    reason,
	})

	pending, err := s.repo.CountPending(ctx, row.SessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending intake files")
	}
	if pending == 0 {
		s.emit(Event{Kind: EventComplete, SessionID: row.SessionID})
	}
	return nil
}

// Files returns the session's registered files with fresh preview URLs.
func (s *service) Files(ctx context.Context, sessionID uuid.UUID) ([]File, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	rows, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list intake files")
	}

	files := make([]File, 0, len(rows))
	for _, row := range rows {
		file := File{
			ID:        row.ID,
			SessionID: row.SessionID,
			FileName:  row.FileName,
			MimeType:  row.MimeType,
			SizeBytes: row.SizeBytes,
			Width:     row.Width,
			Height:    row.Height,
			GCSKey:    row.GCSKey,
			Status:    row.Status,
		}
		if row.FailureReason != nil {
			file.FailureReason = *row.FailureReason
		}
		if len(row.PreviewKeys) > 0 {
			if url, signErr := s.gcs.SignedReadURL(s.bucket, row.PreviewKeys[0], s.downloadTTL); signErr == nil {
				file.PreviewURL = url
			}
		}
		files = append(files, file)
	}
	return files, nil
}

func (s *service) emit(evt Event) {
	if s.sink == nil {
		return
	}
	s.sink(evt)
}

// resolveMimeType trusts a declared type when the library knows it and
// otherwise sniffs the file's leading bytes. Only imagery content is
// accepted.
func resolveMimeType(declared string, head []byte) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if mimeType == "" {
		if len(head) == 0 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "mime_type or file head is required")
		}
		mimeType = mimetype.Detect(head).String()
		if idx := strings.IndexByte(mimeType, ';'); idx > 0 {
			mimeType = mimeType[:idx]
		}
	} else if mimetype.Lookup(mimeType) == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "mime_type is not recognized")
	}
	if !strings.HasPrefix(mimeType, "image/") && !strings.HasPrefix(mimeType, "video/") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "only image and video uploads are supported")
	}
	return mimeType, nil
}

func buildGCSKey(sessionID, fileID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = fileID.String()
	}
	return fmt.Sprintf("intake/%s/%s/%s", sessionID, fileID, cleanName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
