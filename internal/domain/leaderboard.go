package domain

import (
	"fmt"
	"time"
)

// GameMode represents the snake ruleset an entry was scored under
type GameMode string

const (
	GameModeWalls       GameMode = "walls"
	GameModePassThrough GameMode = "pass-through"
)

// ParseGameMode validates a game mode string from the wire
func ParseGameMode(s string) (GameMode, error) {
	switch GameMode(s) {
	case GameModeWalls, GameModePassThrough:
		return GameMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGameMode, s)
}

// LeaderboardEntry represents one scored attempt. Entries are append-only.
// Rank is never persisted: it is assigned per read as the 1-based position
// within the returned, filtered, limited result set.
type LeaderboardEntry struct {
	ID       string    `json:"id"`
	Rank     int       `json:"rank"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	GameMode GameMode  `json:"gameMode"`
	Date     time.Time `json:"date"`
}

// ScoreSubmission is the request body for submitting a score
type ScoreSubmission struct {
	Score    int      `json:"score"`
	GameMode GameMode `json:"gameMode"`
}

// Validate checks the submission against the scoring rules
func (s ScoreSubmission) Validate() error {
	if s.Score < 0 {
		return ErrInvalidScore
	}
	if _, err := ParseGameMode(string(s.GameMode)); err != nil {
		return err
	}
	return nil
}
