package cron

import (
	"context"
	"fmt"

	"github.com/brightstock/imagery-backend/pkg/logger"
)

type sessionSweeper interface {
	SweepExpired() int
	Len() int
}

// SessionSweepJobParams configures the batch session sweep.
type SessionSweepJobParams struct {
	Logger   *logger.Logger
	Registry sessionSweeper
}

// NewSessionSweepJob constructs the job that drops expired batch sessions.
func NewSessionSweepJob(params SessionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	return &sessionSweepJob{
		logg:     params.Logger,
		registry: params.Registry,
	}, nil
}

type sessionSweepJob struct {
	logg     *logger.Logger
	registry sessionSweeper
}

func (j *sessionSweepJob) Name() string { return "session-sweep" }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	removed := j.registry.SweepExpired()
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"removed":   removed,
		"remaining": j.registry.Len(),
	})
	j.logg.Info(logCtx, "session sweep complete")
	return nil
}
