package netclient

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hersh/blockfall/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384
)

// ServerMsg is a tea.Msg that wraps an incoming server message.
type ServerMsg struct {
	Type protocol.MessageType
	Raw  json.RawMessage
}

// ConnectedMsg is sent when the server assigns the session id.
type ConnectedMsg struct {
	SessionID string
}

// DisconnectedMsg is sent when the WebSocket connection is lost.
type DisconnectedMsg struct {
	Err error
}

// Sender is the part of Client the TUI needs. It lets the model run
// against a fake in tests.
type Sender interface {
	SendIntent(intent protocol.Intent)
	SendFlashDone(batchID int)
	Close()
}

// Client manages the WebSocket connection to the session server.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	sendCh  chan []byte
	program *tea.Program
	done    chan struct{}
	closed  bool
	started bool
}

// New creates a Client connected to the given server URL.
func New(serverURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		done:   make(chan struct{}),
	}

	return c, nil
}

// SetProgram sets the bubbletea program so the client can send messages to it.
func (c *Client) SetProgram(p *tea.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.program = p
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.writePump()
	go c.readPump()
}

// Send marshals and sends an envelope to the server.
func (c *Client) Send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("client marshal error: %v", err)
		return
	}
	select {
	case c.sendCh <- data:
	default:
		log.Printf("client send channel full, dropping message")
	}
}

func (c *Client) SendIntent(intent protocol.Intent) {
	c.Send(protocol.Envelope{
		Type:    protocol.MsgIntent,
		Payload: protocol.IntentPayload{Intent: intent},
	})
}

func (c *Client) SendFlashDone(batchID int) {
	c.Send(protocol.Envelope{
		Type:    protocol.MsgFlashDone,
		Payload: protocol.FlashDonePayload{BatchID: batchID},
	})
}

// Close shuts down the client connection. The write pump owns the
// connection once started, so it sends the close frame.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if !c.started {
		c.conn.Close()
	}
}

// readPump reads messages from the WebSocket and sends them to the bubbletea program.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		c.mu.Lock()
		p := c.program
		c.mu.Unlock()
		if p != nil {
			p.Send(DisconnectedMsg{Err: readErr})
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("readPump error: %v", err)
				readErr = err
			}
			return
		}

		env, err := protocol.Decode(message)
		if err != nil {
			log.Printf("client unmarshal error: %v", err)
			continue
		}

		c.mu.Lock()
		p := c.program
		c.mu.Unlock()

		if p == nil {
			continue
		}

		switch env.Type {
		case protocol.MsgAssignID:
			var payload protocol.AssignIDPayload
			if json.Unmarshal(env.Payload, &payload) == nil {
				p.Send(ConnectedMsg{SessionID: payload.SessionID})
			}
		default:
			p.Send(ServerMsg{Type: env.Type, Raw: env.Payload})
		}
	}
}

// writePump writes messages from sendCh to the WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
