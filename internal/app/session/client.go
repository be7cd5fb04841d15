/*
Package session contains the protocol state machine that connects transport events
to room state, presence, and execution, and decides broadcast fan-out.

This file defines the Client struct, representing one active WebSocket connection.
It manages the connection's communication loops (ReadPump and WritePump) and forwards
parsed events into the Gateway's dispatch loop in the order the client sent them.
*/
package session

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"coderoom/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 1 << 20

	// capacity of the per-client outbound queue.
	sendBuffer = 256
)

// Client represents one live connection: the source of all events for its id.
// Its room membership transitions unjoined -> joined exactly once and ends when
// the connection drops.
type Client struct {
	// id is the unique connection identifier, reused as the room-membership key.
	id string

	// name is the display name supplied at join time.
	name string

	// roomID is the room this connection joined; empty while unjoined.
	// Read and written only by the Gateway's dispatch loop.
	roomID string

	// gateway owns dispatch for this client's events.
	gateway *Gateway

	// conn is the underlying WebSocket connection. Nil in loop-level tests that
	// drive the gateway directly.
	conn *websocket.Conn

	// send is the buffered queue of outbound frames for this connection.
	send chan []byte

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for the given connection id.
func NewClient(gateway *Gateway, conn *websocket.Conn, connectionID string) *Client {
	clientLogger := logx.Logger().With().
		Str("client_id", connectionID).
		Logger()

	return &Client{
		id:      connectionID,
		gateway: gateway,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		logger:  clientLogger,
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// inboundEnvelope is the wire shape of every client-to-server frame.
type inboundEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReadPump reads frames from the WebSocket connection and forwards them to the
// Gateway in arrival order, preserving per-connection FIFO. It handles
// heartbeats (Pong) and triggers disconnect cleanup when the connection drops.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		var envelope inboundEnvelope
		if err := json.Unmarshal(messageBytes, &envelope); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
			continue
		}

		c.gateway.dispatch(event{client: c, msgType: envelope.Type, payload: envelope.Payload})
	}
}

// cleanupOnDisconnect notifies the Gateway that the connection is gone and
// closes the underlying socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.gateway.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes frames from the send channel to the WebSocket connection and
// maintains the heartbeat with periodic Ping messages.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one queued frame to the WebSocket.
// Returns false when the WritePump loop should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a heartbeat Ping.
// Returns false when the WritePump loop should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue puts a marshaled frame on the client's send queue, dropping it with a
// warning if the queue is full.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
	}
}
