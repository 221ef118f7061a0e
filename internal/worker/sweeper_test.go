package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireStale(context.Context) (int, error) {
	e.calls.Add(1)
	return 1, e.err
}

type countingCleaner struct{ calls atomic.Int32 }

func (c *countingCleaner) CleanupExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, nil
}

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	if _, err := NewSweeper("every minute please", &countingExpirer{}, nil); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestRunOnceCallsBothJobs(t *testing.T) {
	e, c := &countingExpirer{}, &countingCleaner{}
	s, err := NewSweeper("@every 1m", e, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.RunOnce(context.Background())
	if e.calls.Load() != 1 || c.calls.Load() != 1 {
		t.Fatalf("expected one call each, got %d and %d", e.calls.Load(), c.calls.Load())
	}
}

func TestRunOnceContinuesAfterExpiryError(t *testing.T) {
	e, c := &countingExpirer{err: errors.New("db down")}, &countingCleaner{}
	s, _ := NewSweeper("@every 1m", e, c)
	s.RunOnce(context.Background())
	if c.calls.Load() != 1 {
		t.Fatal("expected cleanup to run even when expiry fails")
	}
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	e := &countingExpirer{}
	s, err := NewSweeper("@every 1s", e, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for e.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	if e.calls.Load() == 0 {
		t.Fatal("expected the scheduled sweep to run")
	}
}
