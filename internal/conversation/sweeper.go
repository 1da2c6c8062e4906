package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper persists and
// compacts the store.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically runs the retention sweep and persists the store, so
// stale entries are evicted even when no one is talking to the bot.
type Sweeper struct {
	store    *Store
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates a sweeper with the default interval.
func NewSweeper(store *Store) *Sweeper {
	return NewSweeperWithInterval(store, DefaultSweepInterval)
}

// NewSweeperWithInterval creates a sweeper with a custom interval.
func NewSweeperWithInterval(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
	}
}

// Start begins the periodic sweep.
func (sw *Sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return nil // Already running
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	sw.cancel = cancel
	sw.done = make(chan struct{})
	sw.running = true

	go sw.run(sweepCtx)

	return nil
}

// Stop gracefully stops the sweeper.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return
	}

	cancel := sw.cancel
	done := sw.done
	sw.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// IsRunning returns whether the sweeper is currently running.
func (sw *Sweeper) IsRunning() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.running
}

func (sw *Sweeper) run(ctx context.Context) {
	defer func() {
		sw.mu.Lock()
		sw.running = false
		if sw.done != nil {
			close(sw.done)
		}
		sw.mu.Unlock()
	}()

	logger := slog.Default().With(
		slog.String("component", "conversation.sweeper"),
	)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.sweepOnce(ctx, logger)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Sweeper stopping")
			return

		case <-ticker.C:
			sw.sweepOnce(ctx, logger)
		}
	}
}

func (sw *Sweeper) sweepOnce(ctx context.Context, logger *slog.Logger) {
	start := time.Now()
	byAge, bySize := sw.store.Sweep(time.Now())

	if byAge > 0 || bySize > 0 {
		logger.InfoContext(ctx, "Evicted stale histories",
			slog.Int("by_age", byAge),
			slog.Int("by_size", bySize),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if err := sw.store.Save(); err != nil {
		// The in-memory copy stays authoritative until the next save.
		logger.ErrorContext(ctx, "Failed to persist histories",
			slog.Any("error", err),
		)
	}

	logger.DebugContext(ctx, "Store stats after sweep",
		slog.Int("users", sw.store.Users()),
	)
}
