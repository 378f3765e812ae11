// Package housekeeping runs periodic maintenance: the invitation expiry
// sweep and rate limiter cleanup.
package housekeeping

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Expirer marks lapsed pending invitations as expired.
type Expirer interface {
	ExpireLapsed(ctx context.Context) (int64, error)
}

// Cleaner drops stale in-memory state.
type Cleaner interface {
	Cleanup()
}

type Scheduler struct {
	mu       sync.RWMutex
	expirer  Expirer
	cleaners []Cleaner
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(expirer Expirer, interval time.Duration, logger *slog.Logger, cleaners ...Cleaner) *Scheduler {
	return &Scheduler{
		expirer:  expirer,
		cleaners: cleaners,
		interval: interval,
		logger:   logger,
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) Tick(ctx context.Context) {
	n, err := s.expirer.ExpireLapsed(ctx)
	if err != nil {
		s.logger.Error("expire invitations", "error", err)
	} else if n > 0 {
		s.logger.Info("expired invitations", "count", n)
	}
	for _, c := range s.cleaners {
		c.Cleanup()
	}
}
