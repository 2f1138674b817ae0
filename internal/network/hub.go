// Package network is the realtime surface of Kids Mode. Every connected
// screen shares one session: actions go to the engine, replies go back to the
// sender, and progression events fan out to everybody.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/engine"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/events"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/metrics"
)

// Game is the engine surface the hub drives.
type Game interface {
	SessionID() string
	StartAdventure(ctx context.Context) error
	SelectMystery(ctx context.Context, id int) error
	SubmitGuess(ctx context.Context, guess mystery.Answer) (engine.Judgement, error)
	SolveAnother(ctx context.Context) (engine.Advance, error)
	Navigate(ctx context.Context, to engine.Step) error
	MainMenu(ctx context.Context) error
	Redeem(ctx context.Context, kind reward.Kind) (engine.Redemption, error)
	UseHint(ctx context.Context) (string, error)
	View() engine.View
}

// HubConfig tunes buffers and the per-client action rate.
type HubConfig struct {
	SendBuffer        int
	BroadcastBuffer   int
	MinActionInterval time.Duration
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	game     Game
	eventLog *events.EventLog
	cfg      HubConfig
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewHub initializes a new WebSocket Hub around game.
func NewHub(game Game, eventLog *events.EventLog, cfg HubConfig, log *logger.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 256
	}
	return &Hub{
		broadcast:  make(chan []byte, cfg.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		game:       game,
		eventLog:   eventLog,
		cfg:        cfg,
		logger:     log,
		metrics:    metrics.Get(),
	}
}

// Run handles client connections and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.trySend(message) {
					h.logger.Warn("Dropping slow WebSocket client")
					h.metrics.RecordWSError()
					h.metrics.RecordWSConnection(-1)
					client.closeSend()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes msg and queues it for every client.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize broadcast", "type", msg.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	case <-ctx.Done():
	}
}

// StartEventPoller polls the event log and pushes new events, followed by a
// fresh state view, to every client.
func (h *Hub) StartEventPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := h.eventLog.Len()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fresh := h.eventLog.Since(last)
				if len(fresh) == 0 {
					continue
				}
				last += len(fresh)
				for _, e := range fresh {
					h.Broadcast(ctx, Message{Type: MsgEvent, Data: e})
				}
				h.Broadcast(ctx, Message{Type: MsgState, Data: h.game.View()})
			}
		}
	}()
}
