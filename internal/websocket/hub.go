package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/snake-arena/backend/internal/domain"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string    `json:"type"`
	GameMode  string    `json:"gameMode,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardUpdate carries the fresh top slice for one game mode
type LeaderboardUpdate struct {
	GameMode string                    `json:"gameMode"`
	Entries  []domain.LeaderboardEntry `json:"entries"`
}

// Hub maintains the set of connected spectator clients and fans leaderboard
// updates out to the clients subscribed to each game mode.
type Hub struct {
	// Subscribed clients by game mode
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client   *Client
	gameMode string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("websocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for mode, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, mode)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.gameMode]; !ok {
				h.clients[req.gameMode] = make(map[*Client]bool)
			}
			h.clients[req.gameMode][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "game_mode", req.gameMode)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.gameMode]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.gameMode)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the clients subscribed to its mode, or
// to every client when the message carries no mode.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	targets := h.allClients
	if message.GameMode != "" {
		targets = h.clients[message.GameMode]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastLeaderboard pushes a fresh top slice to the mode's subscribers.
// It implements the ranking engine's Notifier.
func (h *Hub) BroadcastLeaderboard(mode domain.GameMode, entries []domain.LeaderboardEntry) {
	message := &Message{
		Type:     MessageTypeLeaderboardUpdate,
		GameMode: string(mode),
		Data: LeaderboardUpdate{
			GameMode: string(mode),
			Entries:  entries,
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a game-mode subscription
func (h *Hub) Subscribe(client *Client, gameMode string) {
	h.subscribe <- &subscriptionRequest{client: client, gameMode: gameMode}
}

// Unsubscribe removes a client from a game-mode subscription
func (h *Hub) Unsubscribe(client *Client, gameMode string) {
	h.unsubscribe <- &subscriptionRequest{client: client, gameMode: gameMode}
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
