package intake

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/enums"
)

func setupIntakeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS intake_files (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  provider_id TEXT NOT NULL,
  file_name TEXT NOT NULL,
  mime_type TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  width INTEGER,
  height INTEGER,
  gcs_key TEXT NOT NULL UNIQUE,
  preview_keys TEXT,
  status TEXT NOT NULL,
  failure_reason TEXT,
  uploaded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func pendingFile(sessionID uuid.UUID, name string) *models.IntakeFile {
	id := uuid.New()
	return &models.IntakeFile{
		ID:         id,
		SessionID:  sessionID,
		ProviderID: uuid.New(),
		FileName:   name,
		MimeType:   "image/jpeg",
		SizeBytes:  1024,
		GCSKey:     fmt.Sprintf("intake/%s/%s/%s", sessionID, id, name),
		Status:     enums.IntakeStatusPending,
	}
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	repo := NewRepository(setupIntakeTestDB(t))
	ctx := context.Background()
	sessionID := uuid.New()

	file := pendingFile(sessionID, "sunset.jpg")
	_, err := repo.Create(ctx, file)
	require.NoError(t, err)

	byID, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.GCSKey, byID.GCSKey)

	byKey, err := repo.FindByGCSKey(ctx, file.GCSKey)
	require.NoError(t, err)
	assert.Equal(t, file.ID, byKey.ID)
}

func TestRepositorySettlementAndPendingCount(t *testing.T) {
	repo := NewRepository(setupIntakeTestDB(t))
	ctx := context.Background()
	sessionID := uuid.New()

	first := pendingFile(sessionID, "a.jpg")
	second := pendingFile(sessionID, "b.jpg")
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	pending, err := repo.CountPending(ctx, sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pending)

	require.NoError(t, repo.MarkUploaded(ctx, first.ID, time.Now()))
	require.NoError(t, repo.MarkFailed(ctx, second.ID, "checksum mismatch"))

	pending, err = repo.CountPending(ctx, sessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending)

	settled, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IntakeStatusFailed, settled.Status)
	require.NotNil(t, settled.FailureReason)
	assert.Equal(t, "checksum mismatch", *settled.FailureReason)
}

func TestRepositoryAttachPreviewFirstWins(t *testing.T) {
	repo := NewRepository(setupIntakeTestDB(t))
	ctx := context.Background()

	file := pendingFile(uuid.New(), "a.jpg")
	_, err := repo.Create(ctx, file)
	require.NoError(t, err)

	first, err := repo.AttachPreview(ctx, file.ID, "previews/a-small.jpg")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.AttachPreview(ctx, file.ID, "previews/a-large.jpg")
	require.NoError(t, err)
	assert.False(t, second)

	found, err := repo.FindByID(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, found.PreviewKeys, 2)
	assert.Equal(t, "previews/a-small.jpg", found.PreviewKeys[0])
}

func TestRepositoryFindBySessionOrdersByRegistration(t *testing.T) {
	db := setupIntakeTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	sessionID := uuid.New()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		file := pendingFile(sessionID, fmt.Sprintf("file-%d.jpg", i))
		file.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		file.UpdatedAt = file.CreatedAt
		require.NoError(t, db.Create(file).Error)
	}

	files, err := repo.FindBySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "file-0.jpg", files[0].FileName)
	assert.Equal(t, "file-2.jpg", files[2].FileName)
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(setupIntakeTestDB(t))
	ctx := context.Background()

	file := pendingFile(uuid.New(), "a.jpg")
	_, err := repo.Create(ctx, file)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, file.ID))

	_, err = repo.FindByID(ctx, file.ID)
	require.Error(t, err)
}
