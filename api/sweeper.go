package api

import (
	"context"
	"time"

	"github.com/warp/docuhearth/engine"
)

// Sweeper periodically expires idle/terminal transactions (§9 D.2, §5's
// "idle-timeout policy"), generalized from scheduler.go's
// ReconciliationScheduler: a ticker-driven background goroutine with a
// configurable check interval, started and stopped around the owning
// process's lifetime, generalized here from reconciling year-end balances
// to sweeping expired transactions.
type Sweeper struct {
	Engine      *engine.Engine
	Interval    time.Duration
	IdleTimeout time.Duration
	Retention   time.Duration
}

// NewSweeper builds a Sweeper using the engine's default idle-timeout and
// terminal-retention policy.
func NewSweeper(e *engine.Engine) *Sweeper {
	return &Sweeper{
		Engine:      e,
		Interval:    15 * time.Second,
		IdleTimeout: engine.DefaultIdleTimeout,
		Retention:   engine.DefaultTerminalRetention,
	}
}

// Run ticks every s.Interval until ctx is cancelled, sweeping expired
// transactions on each tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Engine.Sweep(s.IdleTimeout, s.Retention)
		}
	}
}
