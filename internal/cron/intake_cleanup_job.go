package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/brightstock/imagery-backend/pkg/db/models"
	"github.com/brightstock/imagery-backend/pkg/logger"

	"github.com/google/uuid"
)

const intakeRetentionHours = 48

type intakeCleanupRepo interface {
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.IntakeFile, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gcsClient interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

// IntakeCleanupJobParams configures the stale intake file cleanup.
type IntakeCleanupJobParams struct {
	Logger         *logger.Logger
	Repo           intakeCleanupRepo
	GCS            gcsClient
	GCSBucket      string
	RetentionHours int
}

// NewIntakeCleanupJob constructs the job that removes intake files whose
// batch session is long gone, along with their stored objects.
func NewIntakeCleanupJob(params IntakeCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("intake repository required")
	}
	retention := params.RetentionHours
	if retention <= 0 {
		retention = intakeRetentionHours
	}
	return &intakeCleanupJob{
		logg:           params.Logger,
		repo:           params.Repo,
		gcs:            params.GCS,
		bucket:         params.GCSBucket,
		retentionHours: retention,
		now:            time.Now,
	}, nil
}

type intakeCleanupJob struct {
	logg           *logger.Logger
	repo           intakeCleanupRepo
	gcs            gcsClient
	bucket         string
	retentionHours int
	now            func() time.Time
}

func (j *intakeCleanupJob) Name() string { return "intake-cleanup" }

func (j *intakeCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retentionHours) * time.Hour)
	rows, err := j.repo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale intake files: %w", err)
	}

	var (
		deleted int
		errs    error
	)
	for _, row := range rows {
		if err := j.deleteFile(ctx, row); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"retention_hours": j.retentionHours,
		"candidates":      len(rows),
		"deleted":         deleted,
	})
	j.logg.Info(logCtx, "intake cleanup complete")
	return errs
}

func (j *intakeCleanupJob) deleteFile(ctx context.Context, row models.IntakeFile) error {
	if j.gcs != nil {
		objects := append([]string{row.GCSKey}, row.PreviewKeys...)
		for _, object := range objects {
			if object == "" {
				continue
			}
			if err := j.gcs.DeleteObject(ctx, j.bucket, object); err != nil {
				return fmt.Errorf("delete gcs object %s: %w", object, err)
			}
		}
	}
	if err := j.repo.Delete(ctx, row.ID); err != nil {
		return fmt.Errorf("delete intake row: %w", err)
	}
	return nil
}
