// internal/circulation/sweeper.go
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs SweepOverdue on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	service Service
	logger  *zap.Logger
	timeout time.Duration
}

// NewSweeper parses schedule (standard five field cron syntax or a
// descriptor such as "@hourly") and registers the sweep job.
func NewSweeper(service Service, schedule string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:    cron.New(),
		service: service,
		logger:  logger.Named("overdue-sweeper"),
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("overdue sweeper started")
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("overdue sweep still running at shutdown")
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.service.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("overdue sweep promoted loans", zap.Int64("count", n))
	}
}
