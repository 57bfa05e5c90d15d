package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// maxClientMessage bounds frames read from viewers; their content is ignored.
const maxClientMessage = 4096

// ConnOptions tunes a WebSocket subscriber.
type ConnOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
	// Clock drives the ping ticker. Socket deadlines always use wall time.
	Clock  clockwork.Clock
	Logger *slog.Logger
}

func (o ConnOptions) withDefaults() ConnOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 16
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Conn is a Subscriber backed by a gorilla WebSocket connection.
type Conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	opts   ConnOptions
	sendCh chan []byte

	closeOnce sync.Once
	done      chan struct{}
	exited    chan struct{}
}

// NewConn wraps ws and starts its writer goroutine.
func NewConn(ws *websocket.Conn, opts ConnOptions) *Conn {
	opts = opts.withDefaults()
	c := &Conn{
		id:     uuid.New(),
		ws:     ws,
		opts:   opts,
		sendCh: make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID implements Subscriber.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Send queues payload for the writer without blocking.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case c.sendCh <- payload:
		return nil
	case <-c.done:
		return ErrSubscriberClosed
	default:
		return ErrSubscriberSlow
	}
}

// Close stops delivery. The writer sends a close frame and releases the
// socket, which also unblocks ReadLoop.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Exited is closed once the socket has been released.
func (c *Conn) Exited() <-chan struct{} {
	return c.exited
}

// ReadLoop consumes client frames until the connection fails or is closed.
// Viewers are not expected to send anything; frames only prove liveness.
func (c *Conn) ReadLoop() error {
	c.ws.SetReadLimit(maxClientMessage)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.Close()
			return err
		}
		c.extendReadDeadline()
	}
}

func (c *Conn) writeLoop() {
	ticker := c.opts.Clock.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.exited)
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.extendWriteDeadline()
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.opts.Logger.Debug("live: write failed", "subscriber_id", c.id.String(), "error", err)
				c.Close()
				return
			}
		case <-ticker.Chan():
			c.extendWriteDeadline()
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.extendWriteDeadline()
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteMessage(websocket.CloseMessage, closeMsg)
			return
		}
	}
}

func (c *Conn) extendWriteDeadline() {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
}

func (c *Conn) extendReadDeadline() {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
}
