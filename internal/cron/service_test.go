package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/mruizcampos/unimarket-backend/pkg/logger"
)

type fakeLock struct {
	acquired  bool
	acquires  int
	releases  int
	available bool
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	if !f.available {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	f.acquired = false
	return nil
}

type fakeJob struct {
	name string
	runs int
	err  error
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs++
	return f.err
}

func newCronService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRunCycleExecutesJobsUnderLock(t *testing.T) {
	lock := &fakeLock{available: true}
	first := &fakeJob{name: "first"}
	second := &fakeJob{name: "second", err: errors.New("boom")}
	third := &fakeJob{name: "third"}
	svc := newCronService(t, lock, first, second, third)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}

	// A failing job must not stop the ones after it.
	if first.runs != 1 || second.runs != 1 || third.runs != 1 {
		t.Fatalf("expected each job to run once: %d %d %d", first.runs, second.runs, third.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock must be released after the cycle, releases=%d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	lock := &fakeLock{available: false}
	job := &fakeJob{name: "only"}
	svc := newCronService(t, lock, job)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
	if lock.releases != 0 {
		t.Fatalf("nothing to release when acquire failed")
	}
}
