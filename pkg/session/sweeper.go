package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/springjools/ombibot/internal/logging"
)

// Schedule yields the next sweep time after a reference time.
type Schedule interface {
	Next(after time.Time) (time.Time, error)
}

// Every sweeps at a fixed interval.
type Every time.Duration

// Next returns after + the interval.
func (e Every) Next(after time.Time) (time.Time, error) {
	if e <= 0 {
		return time.Time{}, fmt.Errorf("sweep interval must be positive, got %s", time.Duration(e))
	}
	return after.Add(time.Duration(e)), nil
}

// Cron sweeps on a cron expression ("*/5 * * * *").
type Cron string

// Next returns the next tick of the expression strictly after the reference time.
func (c Cron) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(string(c), after, false)
}

// ParseSchedule prefers a cron expression when given, else a fixed interval.
func ParseSchedule(interval time.Duration, cronExpr string) (Schedule, error) {
	cronExpr = strings.TrimSpace(cronExpr)
	if cronExpr != "" {
		if !gronx.New().IsValid(cronExpr) {
			return nil, fmt.Errorf("invalid sweep schedule %q", cronExpr)
		}
		return Cron(cronExpr), nil
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	return Every(interval), nil
}

// Sweeper periodically evicts idle sessions, independently of event dispatch.
type Sweeper struct {
	manager  *Manager
	schedule Schedule
	logger   *slog.Logger
}

// NewSweeper creates a sweeper for manager.
func NewSweeper(manager *Manager, schedule Schedule, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{manager: manager, schedule: schedule, logger: logger}
}

// Run sweeps on schedule until ctx is done. It returns nil on cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		now := s.manager.now()
		next, err := s.schedule.Next(now)
		if err != nil {
			return fmt.Errorf("failed to compute next sweep: %w", err)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		n, err := s.manager.Sweep(ctx, s.manager.now())
		if err != nil && ctx.Err() == nil {
			s.logger.Error("Session sweep failed", "err", err)
			continue
		}
		if n > 0 {
			s.logger.Info("Evicted idle sessions", "count", n)
		}
	}
}
