package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mruizcampos/unimarket-backend/pkg/logger"
)

type fakeCodeSweepRepo struct {
	lastCutoff  time.Time
	deletedRows int64
	err         error
	called      int
}

func (f *fakeCodeSweepRepo) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deletedRows, nil
}

func newHandoffSweepJob(t *testing.T, repo *fakeCodeSweepRepo) *handoffSweepJob {
	t.Helper()
	jobIface, err := NewHandoffSweepJob(HandoffSweepJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewHandoffSweepJob: %v", err)
	}
	job, ok := jobIface.(*handoffSweepJob)
	if !ok {
		t.Fatalf("expected handoffSweepJob, got %T", jobIface)
	}
	return job
}

func TestHandoffSweepJobDeletesStaleCodes(t *testing.T) {
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	repo := &fakeCodeSweepRepo{deletedRows: 7}
	job := newHandoffSweepJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.UTC().Add(-defaultCodeRetention)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestHandoffSweepJobPropagatesErrors(t *testing.T) {
	repo := &fakeCodeSweepRepo{err: errors.New("boom")}
	job := newHandoffSweepJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
