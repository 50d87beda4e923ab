package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/snake-arena/backend/internal/domain"
)

// GameStore is the slice of the live-state store the session tracker needs
type GameStore interface {
	GetGame(ctx context.Context, id string) (domain.ActiveGame, error)
	ListActiveGames(ctx context.Context) ([]domain.ActiveGame, error)
}

// Spectate exposes point-in-time and streaming views of active games. It
// holds no game state of its own: every read goes through the store, so
// external writes are reflected on the next poll.
type Spectate struct {
	store        GameStore
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewSpectate creates a new session tracker. pollInterval controls the
// heartbeat period of subscription streams.
func NewSpectate(store GameStore, pollInterval time.Duration, logger *slog.Logger) *Spectate {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Spectate{
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Snapshot returns the current stored snapshot for a game id
func (s *Spectate) Snapshot(ctx context.Context, id string) (domain.ActiveGame, error) {
	return s.store.GetGame(ctx, id)
}

// ListActive returns all tracked snapshots
func (s *Spectate) ListActive(ctx context.Context) ([]domain.ActiveGame, error) {
	return s.store.ListActiveGames(ctx)
}

// Subscribe opens a heartbeat stream of full snapshots for one game. The
// game's existence is checked once before the stream opens; an unknown id
// fails with ErrGameNotFound and no channel. The returned channel emits the
// current snapshot immediately and then once per poll interval, whether or
// not the snapshot changed. It closes, without an error event, when the game
// disappears from the store, a poll fails, or ctx is cancelled.
//
// The channel holds at most one pending event: a slow consumer sees the
// newest snapshot, never a backlog, since every tick supersedes the last.
func (s *Spectate) Subscribe(ctx context.Context, id string) (<-chan domain.ActiveGame, error) {
	first, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.ActiveGame, 1)
	go s.stream(ctx, id, first, events)
	return events, nil
}

func (s *Spectate) stream(ctx context.Context, id string, first domain.ActiveGame, events chan domain.ActiveGame) {
	defer close(events)

	s.emit(events, first)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		// Cancellation is checked at the tick boundary, before the poll.
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		game, err := s.store.GetGame(ctx, id)
		if err != nil {
			if !domain.IsNotFound(err) && ctx.Err() == nil {
				s.logger.Warn("spectate poll failed, ending stream", "game_id", id, "error", err)
			}
			return
		}
		s.emit(events, game)
	}
}

// emit replaces any pending event with the newer snapshot
func (s *Spectate) emit(events chan domain.ActiveGame, game domain.ActiveGame) {
	for {
		select {
		case events <- game:
			return
		default:
			select {
			case <-events:
			default:
			}
		}
	}
}
