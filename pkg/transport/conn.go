package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/protocol"
	"github.com/pushline/pushline-go/pkg/version"
	"github.com/pushline/pushline-go/pkg/wire"
)

// Conn is a websocket connection feeding a protocol handler.
type Conn struct {
	config   Config
	consumer protocol.Consumer
	logger   *slog.Logger
	plog     log.Logger
	metrics  *metrics.Metrics

	state     atomic.Int32
	used      atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup

	// Published by Connect under mu; Close may run during the handshake.
	mu         sync.RWMutex
	connID     string
	remoteAddr string
	ws         *websocket.Conn
	handler    *protocol.Handler
	ctx        context.Context
	cancel     context.CancelFunc

	writeMu   sync.Mutex
	deliverMu sync.Mutex

	errMu   sync.Mutex
	readErr error
}

// NewConn creates a connection (not yet connected) that delivers frames to
// consumer.
func NewConn(config Config, consumer protocol.Consumer) *Conn {
	config.applyDefaults()

	plog := config.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	c := &Conn{
		config:   config,
		consumer: consumer,
		logger:   config.Logger,
		plog:     plog,
		metrics:  config.Metrics,
		closeCh:  make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// Dial creates a connection and connects it to url.
func Dial(ctx context.Context, url string, consumer protocol.Consumer, config Config) (*Conn, error) {
	c := NewConn(config, consumer)
	if err := c.Connect(ctx, url); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// ConnectionID returns the connection ID (empty before Connect).
func (c *Conn) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// RemoteAddr returns the URL the connection was dialed with.
func (c *Conn) RemoteAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteAddr
}

// Handler returns the protocol handler (nil before Connect).
func (c *Conn) Handler() *protocol.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handler
}

// Connect performs the websocket handshake and starts the read and delivery
// loops. The connection lives until Close, a read error, or ctx is done.
func (c *Conn) Connect(ctx context.Context, url string) error {
	if c.used.Load() && c.State() == StateDisconnected {
		return ErrConnectionClosed
	}
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.used.Store(true)
	c.notifyStateChange(StateDisconnected, StateConnecting, "")

	connID := c.config.Protocol.ConnectionID
	if connID == "" {
		connID = uuid.NewString()
	}
	c.mu.Lock()
	c.connID = connID
	c.remoteAddr = url
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
		TLSClientConfig:  c.config.TLSConfig,
		Subprotocols:     version.SupportedSubprotocols(),
	}
	ws, _, err := dialer.DialContext(ctx, url, c.config.Header)
	if err != nil {
		c.failConnect(err)
		return fmt.Errorf("dial failed: %w", err)
	}
	if err := version.CheckSubprotocol(ws.Subprotocol()); err != nil {
		ws.Close()
		c.failConnect(err)
		return fmt.Errorf("%w: %w", ErrVersionMismatch, err)
	}
	ws.SetReadLimit(c.config.MaxMessageSize)

	pcfg := c.config.Protocol
	pcfg.ConnectionID = connID
	onDead := pcfg.OnDead
	pcfg.OnDead = func() {
		if onDead != nil {
			onDead()
		}
		c.closeWithReason("keepalive: peer unresponsive")
	}

	handler, err := protocol.NewHandler(c, pcfg)
	if err != nil {
		ws.Close()
		c.failConnect(err)
		return err
	}

	connCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.ws = ws
	c.handler = handler
	c.ctx, c.cancel = connCtx, cancel
	c.mu.Unlock()

	// A Close during the handshake leaves cleanup to this goroutine.
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		handler.Release()
		cancel()
		ws.Close()
		return ErrConnectionClosed
	}
	c.notifyStateChange(StateConnecting, StateConnected, "")
	c.metrics.ConnectionOpened()
	c.debugLog("connected", "url", url)

	if err := handler.Start(connCtx); err != nil {
		c.closeWithReason(err.Error())
		return err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.deliverLoop()

	return nil
}

// failConnect moves a connection that never came up back to disconnected.
func (c *Conn) failConnect(err error) {
	c.state.Store(int32(StateDisconnected))
	c.notifyStateChange(StateConnecting, StateDisconnected, err.Error())
	c.closeOnce.Do(func() { close(c.closeCh) })
}

// Send encodes f with the configured codec and writes it to the socket.
// It implements protocol.Sender; application frames should go through
// SendMessage so the keep-alive timer sees them.
func (c *Conn) Send(ctx context.Context, f frame.Frame) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := c.config.Codec.Encode(f)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	msgType := websocket.TextMessage
	if c.config.Codec.Name() == wire.NameCBOR {
		msgType = websocket.BinaryMessage
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.WriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	c.logFrame(log.DirectionOut, data, 1)
	if err := c.ws.WriteMessage(msgType, data); err != nil {
		c.logError(err, "write")
		return err
	}
	return nil
}

// SendMessage writes an application frame through the protocol handler,
// postponing the next keep-alive ping.
func (c *Conn) SendMessage(ctx context.Context, f frame.Frame) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	return c.Handler().Send(ctx, f)
}

// Close closes the connection and releases the handler. It does not wait
// for the read and delivery loops; use Wait for that.
// It is safe to call Close multiple times.
func (c *Conn) Close() error {
	c.closeWithReason("closed by client")
	return nil
}

// Done returns a channel closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closeCh
}

// Wait blocks until the read and delivery loops have exited.
func (c *Conn) Wait() {
	c.wg.Wait()
}

// Err returns the read error that ended the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

func (c *Conn) closeWithReason(reason string) {
	c.closeOnce.Do(func() {
		var current State
		for {
			current = c.State()
			if current == StateDisconnected {
				close(c.closeCh)
				return
			}
			if c.state.CompareAndSwap(int32(current), int32(StateClosing)) {
				break
			}
		}
		c.notifyStateChange(current, StateClosing, reason)

		// Only a connection that reached Connected owns its socket here.
		if current == StateConnected {
			c.mu.RLock()
			ws, handler, cancel := c.ws, c.handler, c.cancel
			c.mu.RUnlock()

			handler.Release()
			cancel()

			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.CloseTimeout))
			_ = ws.Close()
		}

		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateClosing, StateDisconnected, reason)
		if current == StateConnected {
			c.metrics.ConnectionClosed()
		}
		c.debugLog("disconnected", "reason", reason)
		close(c.closeCh)
	})
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.State() != StateConnected {
				return
			}
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logError(err, "read")
				c.warnLog("read failed", "error", err)
			}
			c.closeWithReason(fmt.Sprintf("read: %v", err))
			return
		}

		batch, err := c.decode(msgType, data)
		c.logFrame(log.DirectionIn, data, len(batch))
		if err != nil {
			c.metrics.ParseError()
			c.logError(err, "decode")
			c.warnLog("discarding message", "error", err)
			continue
		}

		immediate, err := c.handler.HandleBatch(c.ctx, batch)
		if err != nil {
			if errors.Is(err, protocol.ErrReleased) {
				return
			}
			c.warnLog("frame handling failed", "error", err)
		}
		for _, f := range immediate {
			c.deliver(f)
		}
		c.metrics.FramesDelivered(len(immediate))
	}
}

func (c *Conn) deliverLoop() {
	defer c.wg.Done()

	err := c.handler.Run(c.ctx, protocol.ConsumerFunc(c.deliver))
	if err != nil {
		// The connection context ended; take the socket down with it.
		c.closeWithReason(err.Error())
	}
}

// deliver serializes hand-off between the read loop and the delivery loop.
func (c *Conn) deliver(f frame.Frame) {
	if c.consumer == nil {
		return
	}
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.consumer.Deliver(f)
}

func (c *Conn) decode(msgType int, data []byte) (frame.Batch, error) {
	switch msgType {
	case websocket.BinaryMessage:
		return wire.DecodeCBOR(data)
	default:
		return wire.DecodeJSON(data)
	}
}

func (c *Conn) notifyStateChange(oldState, newState State, reason string) {
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.RemoteAddr(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(oldState, newState)
	}
}

func (c *Conn) logFrame(dir log.Direction, data []byte, objects int) {
	captured := data
	truncated := false
	if len(captured) > c.config.MaxCaptureBytes {
		captured = captured[:c.config.MaxCaptureBytes]
		truncated = true
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID(),
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.RemoteAddr(),
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      captured,
			Truncated: truncated,
			Objects:   objects,
		},
	})
}

func (c *Conn) logError(err error, op string) {
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		RemoteAddr:   c.RemoteAddr(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
}

func (c *Conn) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, append([]any{"conn", c.ConnectionID()}, args...)...)
	}
}

func (c *Conn) warnLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, append([]any{"conn", c.ConnectionID()}, args...)...)
	}
}

// Compile-time interface satisfaction check.
var _ protocol.Sender = (*Conn)(nil)
