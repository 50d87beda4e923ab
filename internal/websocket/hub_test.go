package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snake-arena/backend/internal/domain"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub) *Client {
	return &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 8),
	}
}

func assertNothingDelivered(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitForConnections(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.GetTotalConnections() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, have %d", n, hub.GetTotalConnections())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastLeaderboardReachesModeSubscribers(t *testing.T) {
	hub := newTestHub(t)

	walls := newTestClient(hub)
	passThrough := newTestClient(hub)
	hub.Register(walls)
	hub.Register(passThrough)
	waitForConnections(t, hub, 2)

	hub.Subscribe(walls, string(domain.GameModeWalls))
	hub.Subscribe(passThrough, string(domain.GameModePassThrough))

	entries := []domain.LeaderboardEntry{{Rank: 1, Username: "NeonViper", Score: 500, GameMode: domain.GameModeWalls}}

	deadline := time.Now().Add(time.Second)
	for {
		// Subscription requests land asynchronously; keep broadcasting
		// until the walls subscriber sees one.
		hub.BroadcastLeaderboard(domain.GameModeWalls, entries)
		select {
		case data := <-walls.send:
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, MessageTypeLeaderboardUpdate, msg.Type)
			assert.Equal(t, string(domain.GameModeWalls), msg.GameMode)
			assertNothingDelivered(t, passThrough)
			return
		case <-time.After(10 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("walls subscriber never received an update")
			}
		}
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := newTestHub(t)

	client := newTestClient(hub)
	hub.Register(client)
	waitForConnections(t, hub, 1)

	hub.Unregister(client)
	waitForConnections(t, hub, 0)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestLeaderboardUpdatePayload(t *testing.T) {
	msg := &Message{
		Type:     MessageTypeLeaderboardUpdate,
		GameMode: string(domain.GameModePassThrough),
		Data: LeaderboardUpdate{
			GameMode: string(domain.GameModePassThrough),
			Entries:  []domain.LeaderboardEntry{{Rank: 1, Username: "u1", Score: 10}},
		},
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"gameMode":"pass-through"`)
	assert.Contains(t, string(data), `"entries"`)
}
