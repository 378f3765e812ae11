package housekeeping

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireLapsed(context.Context) (int64, error) {
	e.calls.Add(1)
	return 1, e.err
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) Cleanup() { c.calls.Add(1) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTick(t *testing.T) {
	exp := &countingExpirer{}
	c1, c2 := &countingCleaner{}, &countingCleaner{}
	s := NewScheduler(exp, time.Hour, discard, c1, c2)

	s.Tick(context.Background())

	if exp.calls.Load() != 1 {
		t.Errorf("expirer calls = %d, want 1", exp.calls.Load())
	}
	if c1.calls.Load() != 1 || c2.calls.Load() != 1 {
		t.Errorf("cleaner calls = %d/%d, want 1/1", c1.calls.Load(), c2.calls.Load())
	}
}

func TestTickContinuesAfterExpirerError(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db locked")}
	c := &countingCleaner{}
	NewScheduler(exp, time.Hour, discard, c).Tick(context.Background())

	if c.calls.Load() != 1 {
		t.Error("cleaners should run even when the sweep fails")
	}
}

func TestStartStop(t *testing.T) {
	exp := &countingExpirer{}
	s := NewScheduler(exp, 10*time.Millisecond, discard)

	s.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for exp.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if exp.calls.Load() < 2 {
		t.Fatalf("expirer calls = %d, want at least 2", exp.calls.Load())
	}
	after := exp.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if exp.calls.Load() != after {
		t.Error("scheduler kept running after Stop")
	}
}

func TestStopWithoutStart(t *testing.T) {
	// Should not block or panic
	NewScheduler(&countingExpirer{}, time.Hour, discard).Stop()
}
