package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often the sweeper looks for overdue requests.
const DefaultSweepInterval = time.Minute

// Sweeper periodically times out overdue pending requests.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	log      *zap.Logger
}

// NewSweeper creates a Sweeper for engine.
func NewSweeper(engine *Engine, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{engine: engine, interval: interval, log: logger.Named("sweeper")}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Store failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("timeout sweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("timeout sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	n, err := s.engine.SweepOnce(ctx, s.engine.now())
	if err != nil {
		s.log.Warn("sweep incomplete, retrying next tick", zap.Int("timed_out", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("sweep timed out requests", zap.Int("timed_out", n))
	}
}
