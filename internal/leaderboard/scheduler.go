package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler rebuilds every leaderboard on a fixed interval.
type Scheduler struct {
	s *gocron.Scheduler
}

func NewScheduler(svc *Service, interval time.Duration) (*Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)

	_, err := s.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		if err := svc.RebuildAll(ctx); err != nil {
			slog.ErrorContext(ctx, "leaderboard: scheduled rebuild failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule leaderboard rebuild: %w", err)
	}

	return &Scheduler{s: s}, nil
}

func (s *Scheduler) Start() {
	s.s.StartAsync()
}

func (s *Scheduler) Stop() {
	s.s.Stop()
}
