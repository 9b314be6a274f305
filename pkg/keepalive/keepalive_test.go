package keepalive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pushline/pushline-go/pkg/frame"
)

type pingRecorder struct {
	mu    sync.Mutex
	pings []frame.Frame
	err   error
}

func (r *pingRecorder) send(_ context.Context, ping frame.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings = append(r.pings, ping)
	return r.err
}

func (r *pingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pings)
}

func (r *pingRecorder) last() frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pings) == 0 {
		return nil
	}
	return r.pings[len(r.pings)-1]
}

func TestKeepAliveDefaults(t *testing.T) {
	config := DefaultConfig()
	if config.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", config.IdleTimeout, DefaultIdleTimeout)
	}
	if config.IdleTimeout != 60*time.Second {
		t.Errorf("DefaultIdleTimeout = %v, want 60s", config.IdleTimeout)
	}

	ka := New(Config{}, func(context.Context, frame.Frame) error { return nil }, nil)
	if ka.config.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("zero IdleTimeout not defaulted: %v", ka.config.IdleTimeout)
	}
}

func TestKeepAlivePingsWhenIdle(t *testing.T) {
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 20 * time.Millisecond, Commit: true}, rec.send, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ka.Start(ctx)
	time.Sleep(90 * time.Millisecond)
	ka.Stop()

	if rec.count() < 2 {
		t.Fatalf("expected at least 2 pings, got %d", rec.count())
	}

	ping := rec.last()
	if ping.Type() != frame.TypePing {
		t.Errorf("ping type = %q, want %q", ping.Type(), frame.TypePing)
	}
	if commit, _ := ping[frame.FieldCommit].(bool); !commit {
		t.Error("ping should carry commit=true")
	}

	stats := ka.Stats()
	if stats.PingsSent != uint64(rec.count()) {
		t.Errorf("PingsSent = %d, want %d", stats.PingsSent, rec.count())
	}
	if stats.LastPingTime.IsZero() {
		t.Error("LastPingTime should be set")
	}
}

func TestKeepAliveResetPostponesPing(t *testing.T) {
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 100 * time.Millisecond}, rec.send, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ka.Start(ctx)
	defer ka.Stop()

	// Reset just before the first deadline.
	time.Sleep(80 * time.Millisecond)
	ka.Reset()

	// Past the original deadline, nothing must have been sent.
	time.Sleep(50 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Fatalf("ping sent %d time(s) despite reset", n)
	}

	// The postponed deadline is a full window after the reset.
	deadline := time.Now().Add(300 * time.Millisecond)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() == 0 {
		t.Fatal("expected a ping after the postponed deadline")
	}
}

func TestKeepAliveContinuousTrafficSuppressesPings(t *testing.T) {
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 50 * time.Millisecond}, rec.send, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ka.Start(ctx)

	for n := 0; n < 10; n++ {
		time.Sleep(15 * time.Millisecond)
		ka.Reset()
	}
	ka.Stop()

	if n := rec.count(); n != 0 {
		t.Errorf("expected no pings under continuous traffic, got %d", n)
	}
}

func TestKeepAliveSendFailureDoesNotStopLoop(t *testing.T) {
	rec := &pingRecorder{err: errors.New("transport down")}
	ka := New(Config{IdleTimeout: 15 * time.Millisecond}, rec.send, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ka.Start(ctx)

	time.Sleep(80 * time.Millisecond)

	if !ka.IsRunning() {
		t.Fatal("loop stopped after send failure")
	}
	if rec.count() < 2 {
		t.Errorf("expected repeated ping attempts, got %d", rec.count())
	}

	stats := ka.Stats()
	if stats.SendFailures < 2 {
		t.Errorf("SendFailures = %d, want >= 2", stats.SendFailures)
	}
	if stats.PingsSent != 0 {
		t.Errorf("PingsSent = %d, want 0", stats.PingsSent)
	}
	ka.Stop()
}

func TestKeepAliveStartStop(t *testing.T) {
	ka := New(DefaultConfig(), func(context.Context, frame.Frame) error { return nil }, nil)

	if ka.IsRunning() {
		t.Error("should not be running initially")
	}

	ka.Start(context.Background())
	if !ka.IsRunning() {
		t.Error("should be running after Start")
	}

	// Start again should be no-op
	ka.Start(context.Background())

	done := ka.Done()
	ka.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after Stop")
	}

	if ka.IsRunning() {
		t.Error("should not be running after Stop")
	}

	// Stop again should be no-op
	ka.Stop()
}

func TestKeepAliveContextCancel(t *testing.T) {
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 10 * time.Millisecond}, rec.send, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ka.Start(ctx)
	time.Sleep(35 * time.Millisecond)

	done := ka.Done()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancel")
	}

	before := rec.count()
	time.Sleep(40 * time.Millisecond)
	if after := rec.count(); after != before {
		t.Errorf("pings continued after cancel: before=%d, after=%d", before, after)
	}
}

func TestKeepAliveUnansweredPings(t *testing.T) {
	var deadCalls atomic.Int32
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 10 * time.Millisecond, MaxUnansweredPings: 2}, rec.send, func() {
		deadCalls.Add(1)
	})

	ka.Start(context.Background())
	select {
	case <-ka.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not terminate on unanswered pings")
	}

	if got := deadCalls.Load(); got != 1 {
		t.Errorf("OnDead called %d times, want 1", got)
	}
	if rec.count() != 2 {
		t.Errorf("pings sent = %d, want 2", rec.count())
	}
	if ka.IsRunning() {
		t.Error("should not be running after peer declared dead")
	}
	ka.Stop()
}

func TestKeepAlivePongClearsUnanswered(t *testing.T) {
	rec := &pingRecorder{}
	ka := New(Config{IdleTimeout: 15 * time.Millisecond, MaxUnansweredPings: 2}, rec.send, func() {
		t.Error("OnDead should not be called while pongs arrive")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ka.Start(ctx)

	for n := 0; n < 8; n++ {
		time.Sleep(10 * time.Millisecond)
		ka.PongReceived()
	}

	if ka.Stats().Unanswered > 1 {
		t.Errorf("Unanswered = %d after pongs", ka.Stats().Unanswered)
	}
	if !ka.IsRunning() {
		t.Error("loop should still be running")
	}
	ka.Stop()
}
