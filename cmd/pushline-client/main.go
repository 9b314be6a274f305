// Command pushline-client connects to a pushline server and prints every
// delivered frame as one line of JSON.
//
// Sequenced frames are printed in sequence order and acknowledged; frames
// without a sequence number are printed as they arrive. An idle connection
// is kept alive with pings.
//
// Usage:
//
//	pushline-client [flags] [url]
//
// Flags:
//
//	-config string            Configuration file path (YAML)
//	-url string               Server websocket URL (ws:// or wss://)
//	-codec string             Outbound codec: json, cbor (default "json")
//	-idle-timeout duration    Idle time before a ping is sent (default 1m0s)
//	-commit                   Ask the server to flush on every ping
//	-max-unanswered-pings int Close after this many unanswered pings (0 disables)
//	-pending-capacity int     Maximum out-of-order frames held (default 20)
//	-initial-seq uint         First expected sequence number
//	-no-acks                  Do not acknowledge sequenced frames
//	-capture string           Write a protocol capture to this file (.plog)
//	-capture-frame-bytes int  Raw bytes kept per captured frame (0 keeps all)
//	-capture-no-payloads      Leave decoded frame payloads out of the capture
//	-metrics-addr string      Serve Prometheus metrics on this address
//	-log-level string         Log level: debug, info, warn, error (default "info")
//	-interactive              Enable interactive command mode
//
// Examples:
//
//	# Print frames from a local server
//	pushline-client ws://localhost:8080/stream
//
//	# Capture the session for pushline-log
//	pushline-client -capture session.plog ws://localhost:8080/stream
//
//	# Load settings from a file and expose metrics
//	pushline-client -config client.yaml -metrics-addr :9100
//
// Interactive Commands:
//
//	send <json> - Send a frame (object or array of objects)
//	stats       - Show buffer and keep-alive statistics
//	threshold   - Show the next expected sequence number
//	status      - Show connection status
//	quit        - Close the connection and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pushline/pushline-go/cmd/pushline-client/interactive"
	"github.com/pushline/pushline-go/pkg/log"
	"github.com/pushline/pushline-go/pkg/metrics"
	"github.com/pushline/pushline-go/pkg/transport"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	level, _ := parseLogLevel(cfg.LogLevel)
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *interactive.Console
	logOut := io.Writer(os.Stderr)
	out := newPrinter(os.Stdout)
	if cfg.Interactive {
		c, err := interactive.New()
		if err != nil {
			return err
		}
		defer c.Close()
		console = c
		// Route output through readline so it does not clobber the prompt.
		logOut = c.Stderr()
		out.setOutput(c.Stdout())
	}
	logger := newLogger(logOut, level, color)

	var plog log.Logger
	if cfg.CaptureFile != "" {
		fl, err := log.NewFileLogger(cfg.CaptureFile, cfg.CaptureOptions()...)
		if err != nil {
			return fmt.Errorf("open capture file: %w", err)
		}
		defer func() {
			written, failed := fl.Counts()
			if err := fl.Close(); err != nil {
				logger.Warn("Closing protocol capture failed", "error", err)
			}
			logger.Info("Protocol capture closed", "events", written, "encode_failures", failed)
		}()
		plog = fl
		logger.Info("Writing protocol capture", "path", cfg.CaptureFile)
	}
	if level <= slog.LevelDebug {
		adapter := log.NewSlogAdapter(logger)
		if plog != nil {
			plog = log.NewMultiLogger(plog, adapter)
		} else {
			plog = adapter
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tc := cfg.TransportConfig(logger, plog, m)
	tc.OnStateChange = func(oldState, newState transport.State) {
		logger.Debug("Connection state changed", "from", oldState, "to", newState)
	}

	logger.Info("Connecting", "url", cfg.URL, "codec", cfg.Codec)
	conn, err := transport.Dial(ctx, cfg.URL, out, tc)
	if err != nil {
		return err
	}
	logger.Info("Connected", "conn_id", conn.ConnectionID(), "remote", conn.RemoteAddr())

	if console != nil {
		go console.Run(ctx, conn, cancel)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			logger.Warn("Connection closed", "error", err)
		} else {
			logger.Info("Connection closed")
		}
	}

	_ = conn.Close()
	conn.Wait()

	stats := conn.Handler().Stats()
	logger.Info("Session summary",
		"delivered", out.delivered(),
		"released", stats.Buffer.Released,
		"buffered", stats.Buffer.Buffered,
		"stale", stats.Buffer.Stale,
		"duplicates", stats.Buffer.Duplicates,
		"rejected", stats.Buffer.Rejected,
		"pings", stats.KeepAlive.PingsSent)
	return nil
}

func newLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !color,
	}))
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return srv
}
