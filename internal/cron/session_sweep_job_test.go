package cron

import (
	"context"
	"testing"

	"github.com/brightstock/imagery-backend/pkg/logger"
)

type fakeSweeper struct {
	removed int
	left    int
	sweeps  int
}

func (f *fakeSweeper) SweepExpired() int {
	f.sweeps++
	return f.removed
}

func (f *fakeSweeper) Len() int { return f.left }

func TestSessionSweepRunsRegistrySweep(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{removed: 3, left: 2}
	job, err := NewSessionSweepJob(SessionSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Registry: sweeper,
	})
	if err != nil {
		t.Fatalf("NewSessionSweepJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.sweeps)
	}
}

func TestSessionSweepRequiresRegistry(t *testing.T) {
	t.Parallel()

	_, err := NewSessionSweepJob(SessionSweepJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
