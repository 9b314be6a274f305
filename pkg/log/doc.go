// Package log provides structured protocol capture for pushline connections.
//
// This package defines the Logger interface and Event types for recording
// what happens on a channel: raw frames at the transport, sequenced and
// immediate messages at the protocol layer, control traffic (ping, pong,
// ack), state changes and errors. It is separate from operational logging
// (slog) - protocol capture is a complete machine-readable trace for
// debugging delivery problems after the fact.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a capture file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/pushline/client.plog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys
// (.plog extension). The pushline-log tool views, exports and summarizes them.
package log
