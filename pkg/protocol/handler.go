package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/keepalive"
	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/reorder"
)

// Stats combines the buffer and keep-alive statistics of a handler.
type Stats struct {
	Buffer    reorder.Stats
	KeepAlive keepalive.Stats
}

// Handler drives one connection's re-order buffer and keep-alive timer.
type Handler struct {
	config  Config
	sender  Sender
	buffer  *reorder.Buffer[frame.Frame]
	timer   *keepalive.Timer
	logger  *slog.Logger
	plog    log.Logger
	metrics *metrics.Metrics

	released    atomic.Bool
	releaseOnce sync.Once
}

// NewHandler creates a handler that writes acks and pings to sender.
func NewHandler(sender Sender, config Config) (*Handler, error) {
	if sender == nil {
		return nil, errors.New("protocol: sender is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("protocol: invalid config: %w", err)
	}

	plog := config.ProtocolLogger
	if plog == nil {
		plog = log.NoopLogger{}
	}

	h := &Handler{
		config:  config,
		sender:  sender,
		buffer:  reorder.New[frame.Frame](config.Buffer),
		logger:  config.Logger,
		plog:    plog,
		metrics: config.Metrics,
	}

	kaConfig := config.KeepAlive
	if kaConfig.Logger == nil {
		kaConfig.Logger = config.Logger
	}
	h.timer = keepalive.New(kaConfig, h.sendPing, h.peerDead)

	return h, nil
}

// ConnectionID returns the configured connection ID.
func (h *Handler) ConnectionID() string {
	return h.config.ConnectionID
}

// Start starts the keep-alive timer.
func (h *Handler) Start(ctx context.Context) error {
	if h.released.Load() {
		return ErrReleased
	}
	h.timer.Start(ctx)
	h.logState(log.StateEntityKeepAlive, "STOPPED", "RUNNING", "")
	h.debugLog("keep-alive started", "idleTimeout", h.config.KeepAlive.IdleTimeout)
	return nil
}

// HandleIncoming processes one inbound frame and reports whether the caller
// should deliver it to the application right away.
//
// Sequenced frames are never delivered immediately; they come out of Take
// once every predecessor has arrived. A frame whose only content is a pong
// is consumed here, as are inbound ack and ping frames.
func (h *Handler) HandleIncoming(ctx context.Context, f frame.Frame) (bool, error) {
	if h.released.Load() {
		return false, ErrReleased
	}
	h.metrics.FrameReceived()

	if frame.ContainsPong(f) {
		h.timer.PongReceived()
		h.metrics.PongReceived()
		h.logControl(log.DirectionIn, log.ControlMsgPong, nil, nil, false)
		if frame.IsSolePong(f) {
			return false, nil
		}
	}

	if typ := f.Type(); typ == frame.TypeAck || typ == frame.TypePing {
		h.handleControl(f, typ)
		return false, nil
	}

	seq, ok, err := frame.Sequence(f)
	if err != nil {
		h.metrics.ParseError()
		h.logError(log.LayerProtocol, err, "parse sequence")
		h.debugLog("discarding frame", "error", err)
		return false, fmt.Errorf("protocol: %w", err)
	}
	if !ok {
		h.metrics.FrameImmediate()
		h.logMessage(log.DirectionIn, log.LayerProtocol, nil, log.StatusImmediate, f)
		return true, nil
	}

	status, err := h.buffer.Push(f, seq)
	h.recordPush(seq, status, f)
	if err != nil {
		h.metrics.FrameRejected(rejectReason(err))
		h.debugLog("frame rejected", "seq", seq, "error", err)
		return false, fmt.Errorf("%w: seq %d: %w", ErrFrameRejected, seq, err)
	}

	if h.config.DisableAcks {
		return false, nil
	}
	if err := h.sendAck(ctx, seq); err != nil {
		return false, err
	}
	return false, nil
}

// HandleBatch applies HandleIncoming to every frame of an inbound message.
// It returns the frames to deliver immediately, in arrival order, and the
// joined errors of the frames that failed. A failing frame does not stop
// the rest of the batch.
func (h *Handler) HandleBatch(ctx context.Context, batch frame.Batch) (frame.Batch, error) {
	var (
		immediate frame.Batch
		errs      []error
	)
	for i, f := range batch {
		deliver, err := h.HandleIncoming(ctx, f)
		if err != nil {
			if errors.Is(err, ErrReleased) {
				return immediate, err
			}
			errs = append(errs, fmt.Errorf("frame %d: %w", i, err))
			continue
		}
		if deliver {
			immediate = append(immediate, f)
		}
	}
	return immediate, errors.Join(errs...)
}

// Send writes an application frame and postpones the next ping.
func (h *Handler) Send(ctx context.Context, f frame.Frame) error {
	if h.released.Load() {
		return ErrReleased
	}
	if err := h.sender.Send(ctx, f); err != nil {
		h.logError(log.LayerProtocol, err, "send")
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	h.ResetPingTimeout()
	h.logMessage(log.DirectionOut, log.LayerProtocol, nil, log.StatusImmediate, f)
	return nil
}

// ResetPingTimeout records outbound traffic, postponing the next ping by a
// full idle window.
func (h *Handler) ResetPingTimeout() {
	h.timer.Reset()
}

// Take blocks until sequenced frames are ready and returns them in order.
// It returns reorder.ErrClosed once the handler is released.
func (h *Handler) Take(ctx context.Context) ([]frame.Frame, error) {
	frames, err := h.buffer.Take(ctx)
	if err != nil {
		return nil, err
	}
	stats := h.buffer.Stats()
	h.metrics.SetBufferDepth(stats.Pending, stats.Ready)
	return frames, nil
}

// Run delivers sequenced frames to consumer until ctx is done or the
// handler is released. It returns nil on release and the context error on
// cancellation.
func (h *Handler) Run(ctx context.Context, consumer Consumer) error {
	for {
		frames, err := h.Take(ctx)
		if err != nil {
			if errors.Is(err, reorder.ErrClosed) {
				return nil
			}
			return err
		}
		for _, f := range frames {
			consumer.Deliver(f)
			if seq, ok, _ := frame.Sequence(f); ok {
				h.logMessage(log.DirectionIn, log.LayerDelivery, &seq, log.StatusDelivered, nil)
			}
		}
		h.metrics.FramesDelivered(len(frames))
	}
}

// Threshold returns the next sequence number the handler expects.
func (h *Handler) Threshold() uint64 {
	return h.buffer.Threshold()
}

// Stats returns a snapshot of the handler state.
func (h *Handler) Stats() Stats {
	return Stats{
		Buffer:    h.buffer.Stats(),
		KeepAlive: h.timer.Stats(),
	}
}

// IsReleased reports whether Release has been called.
func (h *Handler) IsReleased() bool {
	return h.released.Load()
}

// Release stops the keep-alive timer and closes the buffer, waking any
// goroutine blocked in Take. It is safe to call Release multiple times.
func (h *Handler) Release() {
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		h.timer.Stop()
		h.buffer.Close()
		h.logState(log.StateEntityHandler, "ACTIVE", "RELEASED", "")
		h.debugLog("handler released", "threshold", h.buffer.Threshold())
	})
}

// handleControl consumes an inbound ack or ping. Control frames never enter
// the buffer, are never acknowledged and are never delivered. A ping counts
// as contact from the peer.
func (h *Handler) handleControl(f frame.Frame, typ string) {
	var seqp *uint64
	if seq, ok, err := frame.Sequence(f); ok && err == nil {
		seqp = &seq
	}
	h.metrics.ControlReceived(typ)

	if typ == frame.TypePing {
		h.ResetPingTimeout()
		var commitp *bool
		if commit, ok := f[frame.FieldCommit].(bool); ok {
			commitp = &commit
		}
		h.logControl(log.DirectionIn, log.ControlMsgPing, seqp, commitp, false)
	} else {
		h.logControl(log.DirectionIn, log.ControlMsgAck, seqp, nil, false)
	}
	h.debugLog("control frame consumed", "type", typ)
}

func (h *Handler) sendAck(ctx context.Context, seq uint64) error {
	err := h.sender.Send(ctx, frame.NewAck(seq))
	h.metrics.AckSent(err)
	h.logControl(log.DirectionOut, log.ControlMsgAck, &seq, nil, err != nil)
	if err != nil {
		return fmt.Errorf("%w: ack %d: %w", ErrSendFailed, seq, err)
	}
	h.ResetPingTimeout()
	return nil
}

// sendPing is the keep-alive send function.
func (h *Handler) sendPing(ctx context.Context, ping frame.Frame) error {
	err := h.sender.Send(ctx, ping)
	h.metrics.PingSent(err)
	commit, _ := ping[frame.FieldCommit].(bool)
	h.logControl(log.DirectionOut, log.ControlMsgPing, nil, &commit, err != nil)
	return err
}

func (h *Handler) peerDead() {
	h.logState(log.StateEntityKeepAlive, "RUNNING", "DEAD", "unanswered pings")
	if h.config.OnDead != nil {
		h.config.OnDead()
	}
}

func (h *Handler) recordPush(seq uint64, status reorder.EnqueueStatus, f frame.Frame) {
	switch status {
	case reorder.EnqueueStatusBuffered:
		h.metrics.FrameBuffered()
	case reorder.EnqueueStatusDuplicate:
		h.metrics.FrameDuplicate()
	case reorder.EnqueueStatusStale:
		h.metrics.FrameStale()
	}
	stats := h.buffer.Stats()
	h.metrics.SetBufferDepth(stats.Pending, stats.Ready)

	h.plog.Log(h.event(log.DirectionIn, log.LayerProtocol, log.CategoryMessage, func(e *log.Event) {
		e.Message = &log.MessageEvent{
			Sequence:  &seq,
			Status:    status.String(),
			Threshold: stats.Threshold,
			Pending:   stats.Pending,
			Payload:   map[string]any(f),
		}
	}))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, reorder.ErrPendingFull):
		return metrics.ReasonPendingFull
	case errors.Is(err, reorder.ErrReadyFull):
		return metrics.ReasonReadyFull
	default:
		return metrics.ReasonClosed
	}
}

func (h *Handler) debugLog(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, append([]any{"conn", h.config.ConnectionID}, args...)...)
	}
}
