package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snake-arena/backend/internal/config"
)

// GameReaperStore is the slice of the live-state store the reaper needs
type GameReaperStore interface {
	StaleGames(ctx context.Context, cutoff time.Time) ([]string, error)
	RemoveGame(ctx context.Context, id string) error
}

// GameReaper periodically removes active games whose runner stopped writing
// without sending a game-over, so spectator streams terminate and the active
// list does not accumulate dead sessions.
type GameReaper struct {
	store   GameReaperStore
	config  *config.ReaperConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewGameReaper creates a new reaper
func NewGameReaper(store GameReaperStore, cfg *config.ReaperConfig, logger *slog.Logger) *GameReaper {
	return &GameReaper{
		store:  store,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background reap loop
func (r *GameReaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info("game reaper started", "interval", r.config.Interval, "game_ttl", r.config.GameTTL)

	go r.run(ctx)
	return nil
}

// Stop stops the background reap loop
func (r *GameReaper) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info("game reaper stopped")
	return nil
}

// run is the main worker loop
func (r *GameReaper) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.ReapOnce(ctx)
		}
	}
}

// ReapOnce runs a single reap cycle
func (r *GameReaper) ReapOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.config.GameTTL)
	ids, err := r.store.StaleGames(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to find stale games", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	reaped := 0
	for _, id := range ids {
		if err := r.store.RemoveGame(ctx, id); err != nil {
			r.logger.Error("failed to reap game", "game_id", id, "error", err)
			continue
		}
		reaped++
	}
	r.logger.Info("reap cycle completed", "stale", len(ids), "reaped", reaped)
}

// IsRunning returns whether the reaper is currently running
func (r *GameReaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
