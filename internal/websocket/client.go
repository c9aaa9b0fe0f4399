package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xelth-com/orderbot/internal/conversation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Ten cookies fit comfortably.
	maxMessageSize = 64 * 1024
)

// SessionPrefix namespaces web-chat sessions in the conversation store
const SessionPrefix = "web:"

// ErrOffline is returned when a reply targets a subject with no connection
var ErrOffline = errors.New("web chat client is offline")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens authenticate the session; any origin may embed the chat
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler consumes chat inputs. *conversation.Service satisfies it.
type Handler interface {
	Handle(ctx context.Context, session string, in conversation.Input, r conversation.Replier) error
}

// InboundFrame is a message from the browser
type InboundFrame struct {
	Type string `json:"type"` // "text", "start", "check" or "continue"
	Text string `json:"text,omitempty"`
}

// OutboundFrame is a message to the browser
type OutboundFrame struct {
	Type     string `json:"type"` // "message" or "error"
	Text     string `json:"text"`
	Continue bool   `json:"continue"`
	Check    bool   `json:"check,omitempty"`
}

// Input maps a frame to a conversation input
func (f InboundFrame) Input() (conversation.Input, bool) {
	switch f.Type {
	case "start":
		return conversation.Input{Kind: conversation.InputStart}, true
	case "check":
		return conversation.Input{Kind: conversation.InputCheck}, true
	case "continue":
		return conversation.Input{Kind: conversation.InputContinue}, true
	case "text", "":
		return conversation.Text(f.Text), true
	default:
		return conversation.Input{}, false
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub     *Hub
	handler Handler

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Token subject; one connection per subject
	Subject string
}

// replier routes conversation replies through the hub so that lookups finishing
// after a reconnect reach the new connection
type replier struct {
	hub     *Hub
	subject string
}

func (r replier) Send(_ context.Context, msg conversation.Message) error {
	frame := OutboundFrame{
		Type:     "message",
		Text:     msg.Text,
		Continue: msg.Keyboard == conversation.KeyboardContinue,
		Check:    msg.Keyboard == conversation.KeyboardMain,
	}
	if !r.hub.SendTo(r.subject, frame) {
		return ErrOffline
	}
	return nil
}

// readPump pumps frames from the websocket connection to the conversation.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	r := replier{hub: c.hub, subject: c.Subject}
	session := SessionPrefix + c.Subject

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WS error", zap.String("subject", c.Subject), zap.Error(err))
			}
			break
		}

		var frame InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.hub.SendTo(c.Subject, OutboundFrame{Type: "error", Text: "invalid frame"})
			continue
		}
		in, ok := frame.Input()
		if !ok {
			c.hub.SendTo(c.Subject, OutboundFrame{Type: "error", Text: "unknown frame type"})
			continue
		}

		if err := c.handler.Handle(context.Background(), session, in, r); err != nil {
			c.hub.logger.Warn("Failed to deliver web chat reply", zap.String("subject", c.Subject), zap.Error(err))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// ServeWs upgrades an authenticated request and attaches it to the hub.
func ServeWs(hub *Hub, handler Handler, subject string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("WS upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: hub, handler: handler, conn: conn, send: make(chan []byte, 256), Subject: subject}
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
