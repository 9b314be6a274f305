package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pushline/pushline-go/pkg/keepalive"
	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/reorder"
	"github.com/pushline/pushline-go/pkg/transport"
	"github.com/pushline/pushline-go/pkg/wire"
)

// Config holds the client configuration. Values are read from an optional
// YAML file first; command-line flags override them.
type Config struct {
	ConfigFile string `yaml:"-"`

	URL     string            `yaml:"url"`
	Codec   string            `yaml:"codec"`
	Headers map[string]string `yaml:"headers"`

	IdleTimeout        time.Duration `yaml:"idle_timeout"`
	Commit             bool          `yaml:"commit"`
	MaxUnansweredPings int           `yaml:"max_unanswered_pings"`

	PendingCapacity int    `yaml:"pending_capacity"`
	InitialSequence uint64 `yaml:"initial_sequence"`
	DisableAcks     bool   `yaml:"disable_acks"`

	CaptureFile       string `yaml:"capture_file"`
	CaptureFrameBytes int    `yaml:"capture_frame_bytes"`
	CaptureNoPayloads bool   `yaml:"capture_no_payloads"`
	MetricsAddr       string `yaml:"metrics_addr"`
	LogLevel          string `yaml:"log_level"`
	Interactive       bool   `yaml:"interactive"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Codec:           wire.NameJSON,
		IdleTimeout:     keepalive.DefaultIdleTimeout,
		PendingCapacity: reorder.DefaultPendingCapacity,
		LogLevel:        "info",
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported url scheme %q (use ws or wss)", u.Scheme)
	}
	if _, err := wire.CodecByName(c.Codec); err != nil {
		return err
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", c.IdleTimeout)
	}
	if c.PendingCapacity < 0 {
		return fmt.Errorf("pending capacity must not be negative, got %d", c.PendingCapacity)
	}
	if c.CaptureFrameBytes < 0 {
		return fmt.Errorf("capture frame bytes must not be negative, got %d", c.CaptureFrameBytes)
	}
	if c.MaxUnansweredPings < 0 {
		return fmt.Errorf("max unanswered pings must not be negative, got %d", c.MaxUnansweredPings)
	}
	return nil
}

// TransportConfig builds the connection configuration. Validate must have
// succeeded.
func (c Config) TransportConfig(logger *slog.Logger, plog log.Logger, m *metrics.Metrics) transport.Config {
	tc := transport.DefaultConfig()
	tc.Codec, _ = wire.CodecByName(c.Codec)
	tc.Logger = logger
	tc.ProtocolLogger = plog
	tc.Metrics = m

	if len(c.Headers) > 0 {
		tc.Header = http.Header{}
		for k, v := range c.Headers {
			tc.Header.Set(k, v)
		}
	}

	tc.Protocol.Buffer.PendingCapacity = c.PendingCapacity
	tc.Protocol.Buffer.InitialSequence = c.InitialSequence
	tc.Protocol.KeepAlive.IdleTimeout = c.IdleTimeout
	tc.Protocol.KeepAlive.Commit = c.Commit
	tc.Protocol.KeepAlive.MaxUnansweredPings = c.MaxUnansweredPings
	tc.Protocol.DisableAcks = c.DisableAcks
	return tc
}

// CaptureOptions returns the capture file options.
func (c Config) CaptureOptions() []log.FileOption {
	var opts []log.FileOption
	if c.CaptureFrameBytes > 0 {
		opts = append(opts, log.WithMaxFrameBytes(c.CaptureFrameBytes))
	}
	if c.CaptureNoPayloads {
		opts = append(opts, log.WithoutPayloads())
	}
	return opts
}

func newFlagSet(cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pushline-client", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Configuration file path (YAML)")
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Server websocket URL (ws:// or wss://)")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "Outbound codec: json, cbor")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Idle time before a ping is sent")
	fs.BoolVar(&cfg.Commit, "commit", cfg.Commit, "Ask the server to flush on every ping")
	fs.IntVar(&cfg.MaxUnansweredPings, "max-unanswered-pings", cfg.MaxUnansweredPings, "Close after this many unanswered pings (0 disables)")
	fs.IntVar(&cfg.PendingCapacity, "pending-capacity", cfg.PendingCapacity, "Maximum out-of-order frames held")
	fs.Uint64Var(&cfg.InitialSequence, "initial-seq", cfg.InitialSequence, "First expected sequence number")
	fs.BoolVar(&cfg.DisableAcks, "no-acks", cfg.DisableAcks, "Do not acknowledge sequenced frames")
	fs.StringVar(&cfg.CaptureFile, "capture", cfg.CaptureFile, "Write a protocol capture to this file (.plog)")
	fs.IntVar(&cfg.CaptureFrameBytes, "capture-frame-bytes", cfg.CaptureFrameBytes, "Raw bytes kept per captured frame (0 keeps all)")
	fs.BoolVar(&cfg.CaptureNoPayloads, "capture-no-payloads", cfg.CaptureNoPayloads, "Leave decoded frame payloads out of the capture")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Enable interactive command mode")
	return fs
}

// parseArgs resolves the configuration from args. A config file named by
// -config is loaded first and flags given on the command line win over it.
// A single positional argument is taken as the URL.
func parseArgs(args []string, output io.Writer) (Config, error) {
	cfg := DefaultConfig()
	fs := newFlagSet(&cfg, output)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.ConfigFile != "" {
		path := cfg.ConfigFile
		loaded, err := LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		cfg.ConfigFile = path
		fs = newFlagSet(&cfg, output)
		if err := fs.Parse(args); err != nil {
			return cfg, err
		}
	}

	if fs.NArg() > 1 {
		return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	if fs.NArg() == 1 {
		cfg.URL = fs.Arg(0)
	}

	return cfg, cfg.Validate()
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}
