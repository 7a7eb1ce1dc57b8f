package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hersh/blockfall/internal/protocol"
	"github.com/hersh/blockfall/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// conn is one websocket peer. It implements session.Outbox.
type conn struct {
	id     string
	ws     *websocket.Conn
	sendCh chan []byte

	mu     sync.Mutex
	closed bool
}

func newConn(id string, ws *websocket.Conn) *conn {
	return &conn{
		id:     id,
		ws:     ws,
		sendCh: make(chan []byte, sendBuffer),
	}
}

// Send marshals an envelope and queues it. A peer that falls a full
// buffer behind is disconnected; nothing is dropped.
func (c *conn) Send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("marshal error for session %s: %v", c.id, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.sendCh <- data:
	default:
		log.Printf("send channel full for session %s, closing connection", c.id)
		c.closed = true
		close(c.sendCh)
	}
}

// close stops the write pump after it flushes what is queued.
func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}

// writePump sends messages from sendCh to the websocket.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages and hands them to the session until the
// peer disconnects or the session ends.
func (c *conn) readPump(ctx context.Context, s *session.Session) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error for %s: %v", c.id, err)
			}
			return
		}

		env, err := protocol.Decode(message)
		if err != nil {
			log.Printf("unmarshal error from %s: %v", c.id, err)
			continue
		}

		if err := dispatch(ctx, s, env); err != nil {
			if errors.Is(err, session.ErrSessionClosed) || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("session %s: %v", c.id, err)
		}
	}
}

// dispatch routes one decoded client message to the session.
func dispatch(ctx context.Context, s *session.Session, env protocol.RawEnvelope) error {
	switch env.Type {
	case protocol.MsgIntent:
		var payload protocol.IntentPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		return s.Submit(ctx, payload.Intent)

	case protocol.MsgFlashDone:
		var payload protocol.FlashDonePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return err
		}
		return s.FlashDone(ctx, payload.BatchID)
	}
	return errUnknownMessage(env.Type)
}

type errUnknownMessage protocol.MessageType

func (e errUnknownMessage) Error() string {
	return "unknown message type: " + string(e)
}
