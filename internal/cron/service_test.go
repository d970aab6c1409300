package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/onauc-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	mu   sync.Mutex
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	return t.err
}

func (t *testJob) runCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Jobs:     []Job{success, nil, failure},
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(service.jobs) != 2 {
		t.Fatalf("expected nil job to be dropped, got %d jobs", len(service.jobs))
	}
	if success.runCount() != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runCount())
	}
	if failure.runCount() != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runCount())
	}
}

func TestServiceRunExecutesImmediatelyThenStops(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "listing-settlement"}
	service, err := NewService(ServiceParams{
		Name:     "settlement",
		Logger:   logg,
		Jobs:     []Job{job},
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if job.runCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job did not run at startup")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := job.runCount(); got != 1 {
		t.Fatalf("expected one startup run, got %d", got)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "listing-settlement"}
	service, err := NewService(ServiceParams{
		Logger: logg,
		Jobs:   []Job{job},
		Lock:   &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runCount() != 0 {
		t.Fatalf("job ran without the lock")
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatal("expected error without lock")
	}
}

func TestServiceSkipsCycleWhileOtherInstanceHoldsRedisLock(t *testing.T) {
	store := newMemoryRedis()
	other, err := NewRedisLock(LockParams{Client: store, Key: "onauc:lock:settlement", Schedule: "settlement", Instance: "worker-a"})
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	ctx := context.Background()
	if ok, err := other.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	mine, err := NewRedisLock(LockParams{Client: store, Key: "onauc:lock:settlement", Schedule: "settlement", Instance: "worker-b"})
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	job := &testJob{name: "listing-settlement"}
	service, err := NewService(ServiceParams{
		Name:   "settlement",
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Jobs:   []Job{job},
		Lock:   mine,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runCount() != 0 {
		t.Fatal("job ran while worker-a held the lock")
	}
	holder, err := mine.Holder(ctx)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	if holder.Instance != "worker-a" {
		t.Fatalf("expected worker-a to keep the lock, got %+v", holder)
	}
}
