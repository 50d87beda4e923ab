package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snake-arena/backend/internal/config"
	"github.com/snake-arena/backend/internal/domain"
)

// Repository provides PostgreSQL-based access to users and leaderboard entries
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(128) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			CONSTRAINT users_username_key UNIQUE (username),
			CONSTRAINT users_email_key UNIQUE (email)
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			score BIGINT NOT NULL CHECK (score >= 0),
			game_mode VARCHAR(20) NOT NULL,
			date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard_entries(score DESC, date ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_mode ON leaderboard_entries(game_mode, score DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CreateUser persists a new user together with its credential hash. Duplicate
// email or username surfaces as the matching conflict error; existing records
// are never overwritten.
func (r *Repository) CreateUser(ctx context.Context, user domain.User, credentialHash string) (domain.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		strings.ToLower(strings.TrimSpace(user.Email)),
		credentialHash,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return domain.User{}, domain.ErrEmailTaken
			case "users_username_key":
				return domain.User{}, domain.ErrUsernameTaken
			}
		}
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// UserByEmail fetches a user by normalized email
func (r *Repository) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `
		SELECT id, username, email, created_at
		FROM users
		WHERE email = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// UserByUsername fetches a user by username
func (r *Repository) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	query := `
		SELECT id, username, email, created_at
		FROM users
		WHERE username = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// CredentialHash returns the stored password hash for an email
func (r *Repository) CredentialHash(ctx context.Context, email string) (string, error) {
	query := `SELECT password_hash FROM users WHERE email = $1`
	var hash string
	err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrUserNotFound
		}
		return "", fmt.Errorf("getting credential hash: %w", err)
	}
	return hash, nil
}

// AppendScore persists an immutable leaderboard entry. Entries carry no
// uniqueness constraint: the same player may land on the board many times.
func (r *Repository) AppendScore(ctx context.Context, entry domain.LeaderboardEntry) error {
	query := `
		INSERT INTO leaderboard_entries (id, username, score, game_mode, date)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Username,
		entry.Score,
		string(entry.GameMode),
		entry.Date,
	)
	if err != nil {
		return fmt.Errorf("appending score: %w", err)
	}
	return nil
}

// QueryLeaderboard returns at most limit entries ordered by score descending.
// Equal scores break toward the earlier submission, with id as the final
// disambiguator so the ordering is fully deterministic.
func (r *Repository) QueryLeaderboard(ctx context.Context, mode *domain.GameMode, limit int) ([]domain.LeaderboardEntry, error) {
	query := `
		SELECT id, username, score, game_mode, date
		FROM leaderboard_entries
	`
	args := []any{}
	if mode != nil {
		query += ` WHERE game_mode = $1`
		args = append(args, string(*mode))
	}
	query += fmt.Sprintf(` ORDER BY score DESC, date ASC, id ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		err := rows.Scan(&e.ID, &e.Username, &e.Score, &e.GameMode, &e.Date)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
