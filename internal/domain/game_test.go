package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGame() ActiveGame {
	return ActiveGame{
		ID:        "game1",
		Username:  "NeonViper",
		Score:     340,
		GameMode:  GameModeWalls,
		Snake:     []Position{{X: 10, Y: 10}, {X: 9, Y: 10}, {X: 8, Y: 10}},
		Food:      Position{X: 15, Y: 12},
		Direction: DirectionRight,
		Status:    GameStatusPlaying,
		StartedAt: time.Now().UTC(),
	}
}

func TestActiveGameValidate(t *testing.T) {
	require.NoError(t, validGame().Validate())

	empty := validGame()
	empty.Snake = nil
	assert.ErrorIs(t, empty.Validate(), ErrInvalidSnapshot)

	noID := validGame()
	noID.ID = ""
	assert.ErrorIs(t, noID.Validate(), ErrInvalidSnapshot)

	negative := validGame()
	negative.Score = -1
	assert.ErrorIs(t, negative.Validate(), ErrInvalidSnapshot)

	badMode := validGame()
	badMode.GameMode = "maze"
	assert.ErrorIs(t, badMode.Validate(), ErrInvalidGameMode)

	badDirection := validGame()
	badDirection.Direction = "SIDEWAYS"
	assert.ErrorIs(t, badDirection.Validate(), ErrInvalidSnapshot)
}

func TestActiveGameHead(t *testing.T) {
	game := validGame()
	assert.Equal(t, Position{X: 10, Y: 10}, game.Head())
}

func TestParseGameMode(t *testing.T) {
	mode, err := ParseGameMode("walls")
	require.NoError(t, err)
	assert.Equal(t, GameModeWalls, mode)

	mode, err = ParseGameMode("pass-through")
	require.NoError(t, err)
	assert.Equal(t, GameModePassThrough, mode)

	_, err = ParseGameMode("WALLS")
	assert.ErrorIs(t, err, ErrInvalidGameMode)

	_, err = ParseGameMode("")
	assert.ErrorIs(t, err, ErrInvalidGameMode)
}

func TestScoreSubmissionValidate(t *testing.T) {
	require.NoError(t, ScoreSubmission{Score: 0, GameMode: GameModeWalls}.Validate())
	assert.ErrorIs(t, ScoreSubmission{Score: -5, GameMode: GameModeWalls}.Validate(), ErrInvalidScore)
	assert.ErrorIs(t, ScoreSubmission{Score: 10, GameMode: "maze"}.Validate(), ErrInvalidGameMode)
}
