package hub

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Inbound control frame types.
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
	FramePing  = "ping"
)

// ControlFrame is a message sent by a subscriber over its socket.
type ControlFrame struct {
	Type         string `json:"type"`
	TournamentID int    `json:"tournament_id,omitempty"`
}

// Client bridges one websocket connection to the hub. The hub owns the send
// queue; the client only drains it.
type Client struct {
	ID     string
	UserID int

	hub        *Hub
	conn       *websocket.Conn
	send       <-chan []byte
	logger     *slog.Logger
	lastPing   atomic.Int64
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewClient(h *Hub, conn *websocket.Conn, id string, userID int, send <-chan []byte, logger *slog.Logger) *Client {
	pingPeriod, pongWait := h.KeepAlive()
	return &Client{
		ID:         id,
		UserID:     userID,
		hub:        h,
		conn:       conn,
		send:       send,
		logger:     logger.With("component", "ws_client", "connection_id", id),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// ReadPump handles inbound frames until the connection fails, then removes the
// subscriber from the hub.
func (c *Client) ReadPump() {
	defer func() {
		if err := c.hub.Disconnect(c.ID); err != nil && !errors.Is(err, ErrSubscriberNotFound) && !errors.Is(err, ErrClosed) {
			c.logger.Warn("disconnect subscriber", slog.Any("error", err))
		}
		c.conn.Close()
		c.logger.Debug("read pump closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		var rtt time.Duration
		if sent := c.lastPing.Load(); sent > 0 {
			rtt = time.Since(time.Unix(0, sent))
		}
		return c.touch(rtt)
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", slog.Any("error", err))
			}
			return
		}
		if _, err := c.hub.RecordMessage(c.ID); err != nil {
			// Evicted or hub closed; the queue is already gone.
			return
		}
		c.handleFrame(message)
	}
}

func (c *Client) touch(rtt time.Duration) error {
	if err := c.hub.Touch(c.ID, rtt); err != nil && !errors.Is(err, ErrSubscriberNotFound) {
		return err
	}
	return nil
}

func (c *Client) handleFrame(raw []byte) {
	var frame ControlFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.reply("error", map[string]string{"error": "malformed frame"})
		return
	}

	switch frame.Type {
	case FrameJoin:
		if _, err := c.hub.Join(c.ID, frame.TournamentID, c.UserID); err != nil {
			c.reply("error", map[string]any{"error": err.Error(), "tournament_id": frame.TournamentID})
			return
		}
		c.reply("joined", map[string]int{"tournament_id": frame.TournamentID})
	case FrameLeave:
		if err := c.hub.Leave(c.ID, frame.TournamentID); err != nil {
			c.reply("error", map[string]any{"error": err.Error(), "tournament_id": frame.TournamentID})
			return
		}
		c.reply("left", map[string]int{"tournament_id": frame.TournamentID})
	case FramePing:
		c.reply("pong", nil)
	default:
		c.reply("error", map[string]string{"error": "unknown frame type " + frame.Type})
	}
}

func (c *Client) reply(event string, payload any) {
	if err := c.hub.Notify(c.ID, event, payload); err != nil {
		c.logger.Debug("reply not queued", slog.String("event", event), slog.Any("error", err))
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
// It exits when the hub closes the queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Debug("write pump closed")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.lastPing.Store(time.Now().UnixNano())
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", slog.Any("error", err))
				return
			}
		}
	}
}
