package log

import (
	"bufio"
	"os"
	"sync"
)

// FileLogger appends protocol events to a capture file.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	encoder *Encoder
	closed  bool

	written uint64
	failed  uint64
}

// FileOption configures a FileLogger.
type FileOption func(*CaptureLimits)

// WithMaxFrameBytes caps the raw frame bytes stored per event.
func WithMaxFrameBytes(n int) FileOption {
	return func(l *CaptureLimits) { l.MaxFrameBytes = n }
}

// WithoutPayloads drops decoded frame payloads from message events.
func WithoutPayloads() FileOption {
	return func(l *CaptureLimits) { l.OmitPayloads = true }
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string, opts ...FileOption) (*FileLogger, error) {
	var limits CaptureLimits
	for _, opt := range opts {
		opt(&limits)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		file:    f,
		buf:     buf,
		encoder: NewEncoder(buf, limits),
	}, nil
}

// Log writes an event. Encoding failures are counted, never returned:
// capture must not disrupt the connection.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.failed++
		return
	}
	l.written++
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	return l.buf.Flush()
}

// Counts returns the number of events written and the number that failed
// to encode.
func (l *FileLogger) Counts() (written, failed uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.failed
}

// Close flushes and closes the file. Later Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.buf.Flush()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

var _ Logger = (*FileLogger)(nil)
