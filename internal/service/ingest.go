package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/snake-arena/backend/internal/domain"
)

// GameWriter is the write side of the live-state store. Only the ingest
// path holds it; the session tracker stays read-only.
type GameWriter interface {
	UpdateGame(ctx context.Context, game domain.ActiveGame) error
	RemoveGame(ctx context.Context, id string) error
}

// Ingest applies game events published by external game runners. Snapshot
// events are opaque full-state overwrites; game-over events retire the
// session and land its final score on the leaderboard.
type Ingest struct {
	games  GameWriter
	scores ScoreStore
	logger *slog.Logger
}

// NewIngest creates a new game event applier
func NewIngest(games GameWriter, scores ScoreStore, logger *slog.Logger) *Ingest {
	return &Ingest{
		games:  games,
		scores: scores,
		logger: logger,
	}
}

// ApplySnapshot overwrites the stored snapshot for the event's game
func (i *Ingest) ApplySnapshot(ctx context.Context, game domain.ActiveGame) error {
	if err := i.games.UpdateGame(ctx, game); err != nil {
		return fmt.Errorf("applying snapshot: %w", err)
	}
	return nil
}

// FinishGame records the session's final score and removes the snapshot, so
// spectator streams observe termination on their next poll.
func (i *Ingest) FinishGame(ctx context.Context, game domain.ActiveGame) error {
	entry := domain.LeaderboardEntry{
		ID:       uuid.New().String(),
		Username: game.Username,
		Score:    game.Score,
		GameMode: game.GameMode,
		Date:     time.Now().UTC(),
	}
	if err := i.scores.AppendScore(ctx, entry); err != nil {
		return fmt.Errorf("recording final score: %w", err)
	}

	if err := i.games.RemoveGame(ctx, game.ID); err != nil {
		// The score landed; losing the removal only delays stream shutdown
		// until the reaper gets there.
		i.logger.Warn("failed to remove finished game", "game_id", game.ID, "error", err)
	}
	return nil
}
