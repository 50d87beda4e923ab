package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/snake-arena/backend/internal/config"
	"github.com/snake-arena/backend/internal/domain"
)

// ScoreStore is the slice of the repository the ranking engine needs
type ScoreStore interface {
	AppendScore(ctx context.Context, entry domain.LeaderboardEntry) error
	QueryLeaderboard(ctx context.Context, mode *domain.GameMode, limit int) ([]domain.LeaderboardEntry, error)
}

// Notifier receives the fresh top slice after a submission lands. The
// websocket hub implements it; a nil notifier disables push updates.
type Notifier interface {
	BroadcastLeaderboard(mode domain.GameMode, entries []domain.LeaderboardEntry)
}

// Leaderboard turns the append-only entry collection into display-ready,
// ranked views. Rank is a view-time artifact: it is assigned on every read
// as the 1-based position within the returned slice and never persisted.
type Leaderboard struct {
	store    ScoreStore
	notifier Notifier
	config   *config.LeaderboardConfig
	logger   *slog.Logger
}

// NewLeaderboard creates a new ranking engine
func NewLeaderboard(store ScoreStore, cfg *config.LeaderboardConfig, logger *slog.Logger) *Leaderboard {
	return &Leaderboard{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// SetNotifier attaches a push notifier for post-submit broadcasts
func (l *Leaderboard) SetNotifier(n Notifier) {
	l.notifier = n
}

// Top returns the ordered, optionally mode-filtered leaderboard view.
// A non-positive limit falls back to the default page size.
func (l *Leaderboard) Top(ctx context.Context, mode *domain.GameMode, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	if limit > l.config.MaxLimit {
		limit = l.config.MaxLimit
	}

	entries, err := l.store.QueryLeaderboard(ctx, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}

// Submit records a scored attempt for the given user and returns the stored
// entry. The returned rank is always 0: a full re-rank against the table is
// deliberately not performed on the write path, so rank on the submit
// response carries no meaning. Clients read the leaderboard for ranks.
func (l *Leaderboard) Submit(ctx context.Context, user domain.User, sub domain.ScoreSubmission) (domain.LeaderboardEntry, error) {
	if err := sub.Validate(); err != nil {
		return domain.LeaderboardEntry{}, err
	}

	entry := domain.LeaderboardEntry{
		ID:       uuid.New().String(),
		Rank:     0,
		Username: user.Username,
		Score:    sub.Score,
		GameMode: sub.GameMode,
		Date:     time.Now().UTC(),
	}
	if err := l.store.AppendScore(ctx, entry); err != nil {
		return domain.LeaderboardEntry{}, err
	}

	l.broadcast(ctx, sub.GameMode)
	return entry, nil
}

// broadcast pushes the fresh top slice to subscribers. Failures are logged
// and never fail the submission.
func (l *Leaderboard) broadcast(ctx context.Context, mode domain.GameMode) {
	if l.notifier == nil {
		return
	}
	top, err := l.Top(ctx, &mode, 0)
	if err != nil {
		l.logger.Warn("failed to load top slice for broadcast", "game_mode", mode, "error", err)
		return
	}
	l.notifier.BroadcastLeaderboard(mode, top)
}
