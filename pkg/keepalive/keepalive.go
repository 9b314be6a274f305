package keepalive

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pushline/pushline-go/pkg/frame"
)

// DefaultIdleTimeout is the default idle window before a ping is sent.
const DefaultIdleTimeout = 60 * time.Second

// Config configures keep-alive behavior.
type Config struct {
	// IdleTimeout is the idle window after which a ping is sent.
	IdleTimeout time.Duration

	// Commit is carried in every ping and asks the server to flush immediately.
	Commit bool

	// MaxUnansweredPings is the number of consecutive pings without a pong
	// after which the peer is considered dead. Zero disables detection.
	MaxUnansweredPings int

	// Logger receives send failures and lifecycle messages (optional).
	Logger *slog.Logger
}

// DefaultConfig returns the default keep-alive configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: DefaultIdleTimeout,
	}
}

// SendFunc hands a ping frame to the outbound path.
type SendFunc func(ctx context.Context, ping frame.Frame) error

// Stats contains keep-alive statistics.
type Stats struct {
	PingsSent    uint64
	SendFailures uint64
	Unanswered   int
	LastPingTime time.Time
	LastContact  time.Time
}

// Timer manages connection liveness.
type Timer struct {
	config Config
	send   SendFunc
	onDead func()
	logger *slog.Logger

	// epoch anchors lastContact so that readings use the monotonic clock.
	epoch       time.Time
	lastContact atomic.Int64
	lastPing    atomic.Int64
	unanswered  atomic.Int32
	pingsSent   atomic.Uint64
	failures    atomic.Uint64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new keep-alive timer. onDead may be nil.
func New(config Config, send SendFunc, onDead func()) *Timer {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.MaxUnansweredPings < 0 {
		config.MaxUnansweredPings = 0
	}

	t := &Timer{
		config: config,
		send:   send,
		onDead: onDead,
		logger: config.Logger,
		epoch:  time.Now(),
		doneCh: make(chan struct{}),
	}
	close(t.doneCh)
	t.lastPing.Store(-1)
	return t
}

// Start begins the keep-alive loop. The idle window starts now.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.Unlock()

	t.unanswered.Store(0)
	t.Reset()

	go t.loop(ctx, stopCh, doneCh)
}

// Stop terminates the keep-alive loop. It does not wait for the loop to
// exit; use Done for that. Calling Stop more than once is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
}

// Done returns a channel closed once the loop has exited.
func (t *Timer) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneCh
}

// IsRunning returns true if the loop is active.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Reset records contact now, postponing the next ping by a full idle window.
// It is lock-free and safe to call from any goroutine.
func (t *Timer) Reset() {
	t.lastContact.Store(int64(time.Since(t.epoch)))
}

// PongReceived records a pong: contact is reset and the unanswered ping
// counter cleared.
func (t *Timer) PongReceived() {
	t.unanswered.Store(0)
	t.Reset()
}

// Stats returns current keep-alive statistics.
func (t *Timer) Stats() Stats {
	s := Stats{
		PingsSent:    t.pingsSent.Load(),
		SendFailures: t.failures.Load(),
		Unanswered:   int(t.unanswered.Load()),
		LastContact:  t.epoch.Add(time.Duration(t.lastContact.Load())),
	}
	if p := t.lastPing.Load(); p >= 0 {
		s.LastPingTime = t.epoch.Add(time.Duration(p))
	}
	return s
}

func (t *Timer) untilDeadline() time.Duration {
	deadline := time.Duration(t.lastContact.Load()) + t.config.IdleTimeout
	return deadline - time.Since(t.epoch)
}

func (t *Timer) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(t.config.IdleTimeout)
	defer timer.Stop()

	for {
		wait := t.untilDeadline()
		if wait <= 0 {
			if t.peerDead() {
				t.terminate()
				return
			}
			t.ping(ctx)
			wait = t.config.IdleTimeout
		}

		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-timer.C:
		}
	}
}

func (t *Timer) peerDead() bool {
	limit := t.config.MaxUnansweredPings
	return limit > 0 && int(t.unanswered.Load()) >= limit
}

// ping sends one ping. Failures are logged and swallowed.
func (t *Timer) ping(ctx context.Context) {
	err := t.send(ctx, frame.NewPing(t.config.Commit))

	now := int64(time.Since(t.epoch))
	t.lastContact.Store(now)

	if err != nil {
		t.failures.Add(1)
		t.warn("keepalive ping failed", "error", err)
		return
	}

	t.lastPing.Store(now)
	t.pingsSent.Add(1)
	t.unanswered.Add(1)
}

func (t *Timer) terminate() {
	t.mu.Lock()
	wasRunning := t.running
	if wasRunning {
		t.running = false
		close(t.stopCh)
	}
	t.mu.Unlock()

	t.warn("keepalive peer unresponsive",
		"unanswered_pings", t.unanswered.Load(),
		"idle_timeout", t.config.IdleTimeout)

	if wasRunning && t.onDead != nil {
		t.onDead()
	}
}

func (t *Timer) warn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
