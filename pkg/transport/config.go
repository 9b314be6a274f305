package transport

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/protocol"
	"github.com/pushline/pushline-go/pkg/wire"
)

// Default connection settings.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultCloseTimeout     = time.Second
	DefaultMaxMessageSize   = 1 << 20
	DefaultMaxCaptureBytes  = 4096
)

// Config configures a websocket connection.
type Config struct {
	// Protocol configures the handler. ConnectionID, Logger, ProtocolLogger
	// and Metrics are filled from this Config when left empty.
	Protocol protocol.Config

	// Codec encodes outbound frames (default: JSON).
	Codec wire.Codec

	// Header is sent with the websocket handshake.
	Header http.Header

	// TLSConfig is used for wss:// endpoints.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds the websocket handshake (default: 10s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each write when the context has no deadline
	// (default: 10s).
	WriteTimeout time.Duration

	// CloseTimeout bounds the close handshake write (default: 1s).
	CloseTimeout time.Duration

	// MaxMessageSize is the largest inbound message accepted (default: 1MB).
	MaxMessageSize int64

	// MaxCaptureBytes caps the raw bytes stored per frame capture event
	// (default: 4096).
	MaxCaptureBytes int

	// Logger receives operational logs (optional).
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events (optional).
	ProtocolLogger log.Logger

	// Metrics records connection counters (optional).
	Metrics *metrics.Metrics

	// OnStateChange is called on every state transition (optional).
	OnStateChange func(oldState, newState State)
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		Protocol:         protocol.DefaultConfig(),
		Codec:            wire.JSON{},
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		CloseTimeout:     DefaultCloseTimeout,
		MaxMessageSize:   DefaultMaxMessageSize,
		MaxCaptureBytes:  DefaultMaxCaptureBytes,
	}
}

func (c *Config) applyDefaults() {
	if c.Codec == nil {
		c.Codec = wire.JSON{}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = DefaultCloseTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.MaxCaptureBytes <= 0 {
		c.MaxCaptureBytes = DefaultMaxCaptureBytes
	}
	if c.Protocol.Logger == nil {
		c.Protocol.Logger = c.Logger
	}
	if c.Protocol.ProtocolLogger == nil {
		c.Protocol.ProtocolLogger = c.ProtocolLogger
	}
	if c.Protocol.Metrics == nil {
		c.Protocol.Metrics = c.Metrics
	}
}
