package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// Connection is a WebSocket client bound to one Session
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	session   *Session
	logger    *log.Logger
	clock     quartz.Clock
	idle      *quartz.Timer
	idleAfter time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewConnection wraps conn. With a positive idleTimeout the connection is
// closed after that long without a client message.
func NewConnection(conn *websocket.Conn, session *Session, logger *log.Logger, clock quartz.Clock, idleTimeout time.Duration) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:      conn,
		send:      make(chan *Message, 64),
		session:   session,
		logger:    logger.WithPrefix("conn").With("session", session.ID),
		clock:     clock,
		idleAfter: idleTimeout,
		ctx:       ctx,
		cancel:    cancel,
	}
	if idleTimeout > 0 {
		c.idle = clock.AfterFunc(idleTimeout, c.expire, "idle")
	}
	return c
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.idle != nil {
			c.idle.Stop()
		}
		c.cancel()
		c.mu.Lock()
		if !c.closed {
			c.closed = true
			close(c.send)
		}
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// CloseWithReason tells the client why before closing
func (c *Connection) CloseWithReason(reason string) {
	if msg, err := NewMessage(MessageTypeClosing, ClosingData{Reason: reason}, c.clock.Now()); err == nil {
		_ = c.SendMessage(msg)
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *Connection) expire() {
	c.logger.Info("Closing idle connection")
	c.CloseWithReason("idle timeout")
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		c.closed = true
		close(c.send)
		return ErrConnectionClosed
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		if c.idle != nil {
			c.idle.Reset(c.idleAfter, "idle")
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage applies a client message and answers with the new state
// or an error, echoing the request ID.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	state, err := c.session.Handle(msg)
	if err != nil {
		code := errorCode(err)
		if code == CodeInternal {
			c.logger.Error("Command failed", "type", msg.Type, "error", err)
		} else {
			c.logger.Debug("Command rejected", "type", msg.Type, "code", code, "error", err)
		}
		c.sendError(msg.RequestID, code, err.Error())
		return
	}

	reply, err := NewMessage(MessageTypeState, state, c.clock.Now())
	if err != nil {
		c.logger.Error("Failed to encode state", "error", err)
		c.sendError(msg.RequestID, CodeInternal, "failed to encode state")
		return
	}
	reply.RequestID = msg.RequestID
	_ = c.SendMessage(reply)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message}, c.clock.Now())
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	errorMsg.RequestID = requestID
	_ = c.SendMessage(errorMsg)
}
