package domain

import (
	"fmt"
	"time"
)

// Direction is the snake's current heading
type Direction string

const (
	DirectionUp    Direction = "UP"
	DirectionDown  Direction = "DOWN"
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

// GameStatus represents the lifecycle state of a session
type GameStatus string

const (
	GameStatusIdle     GameStatus = "idle"
	GameStatusPlaying  GameStatus = "playing"
	GameStatusPaused   GameStatus = "paused"
	GameStatusGameOver GameStatus = "game-over"
)

// Position is a grid coordinate
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ActiveGame is a complete snapshot of one in-progress session. The server
// never advances it; external game runners overwrite the whole snapshot and
// readers always observe the latest write.
type ActiveGame struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Score     int        `json:"score"`
	GameMode  GameMode   `json:"gameMode"`
	Snake     []Position `json:"snake"`
	Food      Position   `json:"food"`
	Direction Direction  `json:"direction"`
	Status    GameStatus `json:"status"`
	StartedAt time.Time  `json:"startedAt"`
}

// Head returns the snake's head position. Valid snapshots are head-first.
func (g ActiveGame) Head() Position {
	return g.Snake[0]
}

// Validate checks the snapshot invariants before it is stored
func (g ActiveGame) Validate() error {
	if g.ID == "" || g.Username == "" {
		return fmt.Errorf("%w: missing id or username", ErrInvalidSnapshot)
	}
	if len(g.Snake) == 0 {
		return fmt.Errorf("%w: snake must be non-empty", ErrInvalidSnapshot)
	}
	if g.Score < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidSnapshot)
	}
	if _, err := ParseGameMode(string(g.GameMode)); err != nil {
		return err
	}
	switch g.Direction {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidSnapshot, g.Direction)
	}
	switch g.Status {
	case GameStatusIdle, GameStatusPlaying, GameStatusPaused, GameStatusGameOver, "":
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSnapshot, g.Status)
	}
	return nil
}
