package voiceagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("voiceagent: client closed")

// Config holds the connection settings for the voice agent platform.
type Config struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration

	// Dialer overrides the default websocket dialer (tests).
	Dialer *websocket.Dialer
}

// StartOptions carries the per-call variables handed to the workflow.
type StartOptions struct {
	VariableValues map[string]string
}

// command is an outbound frame.
type command struct {
	Type           string            `json:"type"`
	ID             string            `json:"id,omitempty"`
	WorkflowID     string            `json:"workflowId,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// frame is an inbound frame.
type frame struct {
	Event   EventName `json:"event"`
	Message *Message  `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Client talks to the voice agent platform over a websocket. Commands are
// written by the caller; events are read on a single goroutine per
// connection and emitted in arrival order.
type Client struct {
	cfg     Config
	emitter Emitter

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex
	closed  atomic.Bool

	// inCall is set once a start command is written and cleared by call-end.
	inCall atomic.Bool
}

func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

func (c *Client) On(name EventName, fn Handler) Subscription {
	return c.emitter.On(name, fn)
}

func (c *Client) Off(sub Subscription) {
	c.emitter.Off(sub)
}

// Subscribers returns the number of handlers registered for name.
func (c *Client) Subscribers(name EventName) int {
	return c.emitter.Len(name)
}

// Start connects if needed and asks the platform to start workflowID.
func (c *Client) Start(ctx context.Context, workflowID string, opts StartOptions) error {
	if c.closed.Load() {
		return ErrClosed
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	c.inCall.Store(true)
	err = c.send(ctx, conn, command{
		Type:           "start",
		ID:             uuid.NewString(),
		WorkflowID:     workflowID,
		VariableValues: opts.VariableValues,
	})
	if err != nil {
		c.inCall.Store(false)
		return err
	}
	return nil
}

// Stop asks the platform to end the current call. With no connection there
// is no call to end, so it returns nil.
func (c *Client) Stop(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	return c.send(ctx, conn, command{Type: "stop", ID: uuid.NewString()})
}

// Close drops the connection. No events are emitted afterwards.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: c.cfg.HandshakeTimeout,
		}
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("voiceagent: dial %s: %s: %w", c.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("voiceagent: dial %s: %w", c.cfg.URL, err)
	}
	c.conn = conn

	go c.readLoop(conn)

	log.Printf("[VoiceAgent] Connected to %s", c.cfg.URL)
	return conn, nil
}

func (c *Client) send(ctx context.Context, conn *websocket.Conn, cmd command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("voiceagent: send %s: %w", cmd.Type, err)
	}
	return nil
}

// readLoop reads frames from conn until it fails, then forgets conn. A
// connection lost mid-call surfaces as an error event followed by call-end.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[VoiceAgent] Connection lost: %v", err)
				c.emitter.Emit(Event{Name: EventError, Err: &TransportError{Description: err.Error()}})
			}
			if c.inCall.Swap(false) {
				c.emitter.Emit(Event{Name: EventCallEnd})
			}
			return
		}
		if c.closed.Load() {
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("[VoiceAgent] Invalid JSON: %v", err)
			continue
		}

		if f.Event == EventCallEnd {
			c.inCall.Store(false)
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Event {
	case EventCallStart, EventCallEnd, EventSpeechStart, EventSpeechEnd:
		c.emitter.Emit(Event{Name: f.Event})
	case EventMessage:
		if f.Message == nil {
			log.Printf("[VoiceAgent] Message event without payload, dropping")
			return
		}
		c.emitter.Emit(Event{Name: EventMessage, Message: f.Message})
	case EventError:
		c.emitter.Emit(Event{Name: EventError, Err: &TransportError{Description: f.Error}})
	default:
		log.Printf("[VoiceAgent] Unknown event %q, dropping", f.Event)
	}
}
