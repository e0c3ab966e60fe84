package payout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers settlement sweeps on a cron schedule. The sweep itself
// is idempotent, so an overlapping or repeated run is harmless.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
}

func NewScheduler(svc *Service, spec string) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{cron: c, svc: svc}

	if _, err := c.AddFunc(spec, func() {
		slog.Info("settlement sweep starting")
		svc.RunDue(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("registering settlement schedule: %w", err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
