package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snake-arena/backend/internal/config"
	"github.com/snake-arena/backend/internal/domain"
)

// GameStore provides Redis-based storage for live game snapshots. Snapshots
// are full-state JSON values; every write replaces the previous one entirely,
// and readers always observe the latest write.
type GameStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewGameStore creates a new Redis game store
func NewGameStore(cfg *config.RedisConfig, logger *slog.Logger) (*GameStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &GameStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *GameStore) Close() error {
	return s.client.Close()
}

const (
	activeIndexKey = "games:active"
	lastSeenKey    = "games:lastseen"
)

// gameKey returns the Redis key for a game snapshot
func (s *GameStore) gameKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// CreateGame persists a new game snapshot. The id is pre-generated by the
// game runner and assumed unique.
func (s *GameStore) CreateGame(ctx context.Context, game domain.ActiveGame) error {
	if err := game.Validate(); err != nil {
		return err
	}
	return s.write(ctx, game)
}

// UpdateGame overwrites a game snapshot in full. Snapshot contents are opaque
// writes from the external game runner; no delta or merge logic applies.
func (s *GameStore) UpdateGame(ctx context.Context, game domain.ActiveGame) error {
	if err := game.Validate(); err != nil {
		return err
	}
	return s.write(ctx, game)
}

func (s *GameStore) write(ctx context.Context, game domain.ActiveGame) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.gameKey(game.ID), data, 0)
	pipe.SAdd(ctx, activeIndexKey, game.ID)
	pipe.ZAdd(ctx, lastSeenKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: game.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// GetGame returns the current snapshot for a game id
func (s *GameStore) GetGame(ctx context.Context, id string) (domain.ActiveGame, error) {
	data, err := s.client.Get(ctx, s.gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ActiveGame{}, domain.ErrGameNotFound
		}
		return domain.ActiveGame{}, fmt.Errorf("getting game: %w", err)
	}

	var game domain.ActiveGame
	if err := json.Unmarshal(data, &game); err != nil {
		return domain.ActiveGame{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return game, nil
}

// ListActiveGames returns all tracked snapshots in unspecified order.
// Index entries whose snapshot has vanished are dropped from the index.
func (s *GameStore) ListActiveGames(ctx context.Context) ([]domain.ActiveGame, error) {
	ids, err := s.client.SMembers(ctx, activeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing active games: %w", err)
	}
	if len(ids) == 0 {
		return []domain.ActiveGame{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.gameKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching snapshots: %w", err)
	}

	games := make([]domain.ActiveGame, 0, len(values))
	for i, v := range values {
		if v == nil {
			// Stale index entry; self-heal.
			s.client.SRem(ctx, activeIndexKey, ids[i])
			s.client.ZRem(ctx, lastSeenKey, ids[i])
			continue
		}
		var game domain.ActiveGame
		if err := json.Unmarshal([]byte(v.(string)), &game); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "game_id", ids[i], "error", err)
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

// RemoveGame deletes a game snapshot and its index entries
func (s *GameStore) RemoveGame(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.gameKey(id))
	pipe.SRem(ctx, activeIndexKey, id)
	pipe.ZRem(ctx, lastSeenKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing game: %w", err)
	}
	return nil
}

// StaleGames returns ids of games that have not been written since the cutoff
func (s *GameStore) StaleGames(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, lastSeenKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("finding stale games: %w", err)
	}
	return ids, nil
}
