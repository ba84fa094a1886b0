package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mruizcampos/unimarket-backend/pkg/logger"
)

// Codes past their TTL can never verify again (the validator checks age on
// every attempt), so the sweep is pure table hygiene.
const defaultCodeRetention = 7 * 24 * time.Hour

// HandoffSweepJobParams configure the confirmation code sweep.
type HandoffSweepJobParams struct {
	Logger     *logger.Logger
	Repository codeSweepRepo
	Retention  time.Duration
}

type codeSweepRepo interface {
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewHandoffSweepJob builds the job that purges stale confirmation codes.
func NewHandoffSweepJob(params HandoffSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("handoff repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultCodeRetention
	}
	return &handoffSweepJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type handoffSweepJob struct {
	logg      *logger.Logger
	repo      codeSweepRepo
	retention time.Duration
	now       func() time.Time
}

func (j *handoffSweepJob) Name() string { return "handoff-code-sweep" }

func (j *handoffSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteIssuedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("handoff code sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "handoff code sweep complete")
	return nil
}
