package sessions

import (
	"context"
	"time"

	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
	"github.com/moodlens/moodlens/backend/session-service/pkg/metrics"
)

// Sweeper periodically removes expired sessions. It only keeps storage tidy;
// Store.Get enforces expiry on its own.
type Sweeper struct {
	store    *Store
	interval time.Duration
}

func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Infof("[SWEEP] session sweeper started (interval=%s)", w.interval)
	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("[SWEEP] session sweeper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns how many records were removed.
func (w *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := w.store.Sweep(ctx)
	if err != nil {
		logger.Errorf("[SWEEP] error sweeping expired sessions: %v", err)
	}
	if n > 0 {
		metrics.SessionSweepRemoved.Add(float64(n))
		logger.Infof("[SWEEP] removed %d expired sessions", n)
	}
	return n
}
