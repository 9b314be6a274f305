package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/keepalive"
	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/reorder"
)

// Protocol errors.
var (
	// ErrFrameRejected is returned when the re-order buffer refuses a
	// sequenced frame. No ack is sent, so the peer will resend it.
	ErrFrameRejected = errors.New("protocol: frame rejected")

	// ErrSendFailed is returned when an outbound frame could not be handed
	// to the sender.
	ErrSendFailed = errors.New("protocol: send failed")

	// ErrReleased is returned by operations on a released handler.
	ErrReleased = errors.New("protocol: handler released")
)

// Sender is the outbound side of the transport.
type Sender interface {
	// Send writes f to the channel.
	Send(ctx context.Context, f frame.Frame) error
}

// Consumer receives delivered frames one at a time, in order.
type Consumer interface {
	Deliver(f frame.Frame)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(f frame.Frame)

// Deliver calls fn(f).
func (fn ConsumerFunc) Deliver(f frame.Frame) {
	fn(f)
}

// Config configures a Handler.
type Config struct {
	// Buffer configures the re-order buffer.
	Buffer reorder.Config

	// KeepAlive configures the keep-alive timer. A nil KeepAlive.Logger
	// inherits Logger.
	KeepAlive keepalive.Config

	// DisableAcks stops the handler from acknowledging sequenced frames.
	DisableAcks bool

	// ConnectionID identifies the connection in logs and captures.
	ConnectionID string

	// Logger receives operational logs (optional).
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events (optional).
	ProtocolLogger log.Logger

	// Metrics records handler counters (optional).
	Metrics *metrics.Metrics

	// OnDead is called once when the keep-alive timer declares the peer
	// dead. It runs on the keep-alive goroutine and may call Release.
	OnDead func()
}

// DefaultConfig returns the default handler configuration.
func DefaultConfig() Config {
	return Config{
		Buffer:    reorder.DefaultConfig(),
		KeepAlive: keepalive.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Buffer.Validate(); err != nil {
		return fmt.Errorf("buffer: %w", err)
	}
	if c.KeepAlive.IdleTimeout < 0 {
		return fmt.Errorf("keepalive: idle timeout must not be negative, got %s", c.KeepAlive.IdleTimeout)
	}
	if c.KeepAlive.MaxUnansweredPings < 0 {
		return fmt.Errorf("keepalive: max unanswered pings must not be negative, got %d", c.KeepAlive.MaxUnansweredPings)
	}
	return nil
}
