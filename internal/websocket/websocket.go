package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/services"
)

// Message types pushed to connected clients
const (
	MsgVotingStatus     = "voting_status"
	MsgCountdown        = "countdown"
	MsgStandingsUpdated = "standings_updated"
	MsgVotesUpdated     = "votes_updated"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	broadcastQueue = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Scoreboard screens connect from any origin
	},
}

// VotingControl is the slice of the settings service the hub needs for
// status snapshots and timer expiry.
type VotingControl interface {
	GetVoteSettings(ctx context.Context, eventID *int) (*models.VoteSetting, error)
	CloseVoting(ctx context.Context, eventID *int) error
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	settings   VotingControl
	now        func() time.Time
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

var _ services.Broadcaster = (*Hub)(nil)

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger, settings VotingControl) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		settings:   settings,
		now:        time.Now,
	}
}

// SetClock overrides the time source used by the countdown
func (h *Hub) SetClock(now func() time.Time) {
	h.now = now
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) globalStatus(ctx context.Context) (models.WSMessage, error) {
	setting, err := h.settings.GetVoteSettings(ctx, nil)
	if err != nil {
		return models.WSMessage{}, err
	}
	closeTime := ""
	if setting.VotingEnd != nil {
		closeTime = setting.VotingEnd.UTC().Format(time.RFC3339)
	}
	return statusMessage(nil, services.IsOpen(setting, h.now()), closeTime), nil
}

func statusMessage(eventID *int, open bool, closeTime string) models.WSMessage {
	return models.WSMessage{
		Type: MsgVotingStatus,
		Payload: map[string]interface{}{
			"event_id":   eventID,
			"open":       open,
			"close_time": closeTime,
		},
	}
}

// BroadcastMessage queues a message for all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// BroadcastVotingStatus implements services.Broadcaster
func (h *Hub) BroadcastVotingStatus(eventID *int, open bool, closeTime string) {
	msg := statusMessage(eventID, open, closeTime)
	h.BroadcastMessage(msg.Type, msg.Payload)
}

// BroadcastStandingsUpdated implements services.Broadcaster
func (h *Hub) BroadcastStandingsUpdated(eventID int) {
	h.BroadcastMessage(MsgStandingsUpdated, map[string]interface{}{"event_id": eventID})
}

// BroadcastVotesUpdated implements services.Broadcaster
func (h *Hub) BroadcastVotesUpdated(eventID int) {
	h.BroadcastMessage(MsgVotesUpdated, map[string]interface{}{"event_id": eventID})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		// Screens are receive-only; inbound frames are logged and dropped
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}

	// New screens get the meet-wide voting status before any broadcast
	if msg, err := h.globalStatus(r.Context()); err != nil {
		h.log.Warn("Failed to load voting status for new client", "error", err)
	} else {
		client.send <- msg
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// StartVotingCountdown ticks once a second until ctx is cancelled
func (h *Hub) StartVotingCountdown(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Voting countdown stopped")
			return
		case <-ticker.C:
			h.checkAndUpdateCountdown(ctx)
		}
	}
}

// checkAndUpdateCountdown broadcasts the seconds left on the meet-wide timer
// and closes voting once the window end has passed.
func (h *Hub) checkAndUpdateCountdown(ctx context.Context) {
	setting, err := h.settings.GetVoteSettings(ctx, nil)
	if err != nil {
		h.log.Debug("Countdown could not load vote settings", "error", err)
		return
	}
	if !setting.VotingEnabled || setting.VotingEnd == nil {
		return
	}

	now := h.now()
	end := *setting.VotingEnd
	if now.After(end) {
		// CloseVoting broadcasts the closed status through this hub
		if err := h.settings.CloseVoting(ctx, nil); err != nil {
			h.log.Error("Failed to close expired voting window", "error", err)
			return
		}
		h.log.Info("Voting automatically closed by timer", "voting_end", end.UTC().Format(time.RFC3339))
		return
	}

	h.BroadcastMessage(MsgCountdown, map[string]interface{}{
		"seconds_remaining": int(end.Sub(now).Seconds()),
		"close_time":        end.UTC().Format(time.RFC3339),
	})
}
