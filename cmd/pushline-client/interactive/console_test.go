package interactive

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/protocol"
	"github.com/pushline/pushline-go/pkg/transport"
)

type discardSender struct{}

func (discardSender) Send(context.Context, frame.Frame) error { return nil }

type fakeSession struct {
	handler *protocol.Handler
	sent    []frame.Frame
	failAt  int
}

func (s *fakeSession) ConnectionID() string       { return "conn-test" }
func (s *fakeSession) RemoteAddr() string         { return "127.0.0.1:9000" }
func (s *fakeSession) State() transport.State     { return transport.StateConnected }
func (s *fakeSession) Handler() *protocol.Handler { return s.handler }

func (s *fakeSession) SendMessage(_ context.Context, f frame.Frame) error {
	if s.failAt > 0 && len(s.sent)+1 == s.failAt {
		return errors.New("write failed")
	}
	s.sent = append(s.sent, f)
	return nil
}

func newTestConsole(t *testing.T) (*Console, *fakeSession, *bytes.Buffer) {
	t.Helper()
	h, err := protocol.NewHandler(discardSender{}, protocol.DefaultConfig())
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &Console{out: out}, &fakeSession{handler: h}, out
}

func TestExecuteSendObject(t *testing.T) {
	c, s, out := newTestConsole(t)

	assert.True(t, c.Execute(context.Background(), s, `send {"type":"chat","text":"hello world"}`))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "chat", s.sent[0].Type())
	assert.Equal(t, "hello world", s.sent[0]["text"])
	assert.Contains(t, out.String(), "Sent 1 frame(s)")
}

func TestExecuteSendArray(t *testing.T) {
	c, s, out := newTestConsole(t)

	c.Execute(context.Background(), s, `send [{"type":"a"},{"type":"b"}]`)

	require.Len(t, s.sent, 2)
	assert.Equal(t, "a", s.sent[0].Type())
	assert.Equal(t, "b", s.sent[1].Type())
	assert.Contains(t, out.String(), "Sent 2 frame(s)")
}

func TestExecuteSendErrors(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		failAt int
		want   string
	}{
		{"missing payload", "send", 0, "Usage: send <json>"},
		{"invalid json", "send {not json", 0, "Invalid frame"},
		{"not an object", "send 42", 0, "Invalid frame"},
		{"write failure", `send [{"type":"a"},{"type":"b"}]`, 2, "Send failed after 1 frame(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s, out := newTestConsole(t)
			s.failAt = tt.failAt

			assert.True(t, c.Execute(context.Background(), s, tt.line))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestExecuteThresholdAndStats(t *testing.T) {
	c, s, out := newTestConsole(t)
	ctx := context.Background()

	_, err := s.handler.HandleIncoming(ctx, frame.Frame{frame.FieldSeq: uint64(1)})
	require.NoError(t, err)
	_, err = s.handler.HandleIncoming(ctx, frame.Frame{frame.FieldSeq: uint64(0)})
	require.NoError(t, err)

	c.Execute(ctx, s, "threshold")
	assert.Contains(t, out.String(), "Next expected sequence: 2")

	out.Reset()
	c.Execute(ctx, s, "stats")
	text := out.String()
	assert.Contains(t, text, "Threshold:  2")
	assert.Contains(t, text, "Ready:      2")
	assert.Contains(t, text, "Buffered:   1")
	assert.Contains(t, text, "Last ping:     never")
}

func TestExecuteStatus(t *testing.T) {
	c, s, out := newTestConsole(t)

	c.Execute(context.Background(), s, "status")
	assert.Contains(t, out.String(), "Connection: conn-test")
	assert.Contains(t, out.String(), "State:      CONNECTED")
	assert.NotContains(t, out.String(), "released")

	s.handler.Release()
	out.Reset()
	c.Execute(context.Background(), s, "status")
	assert.Contains(t, out.String(), "Handler:    released")
}

func TestExecuteQuitAndUnknown(t *testing.T) {
	c, s, out := newTestConsole(t)

	assert.True(t, c.Execute(context.Background(), s, "   "))
	assert.Empty(t, out.String())

	assert.True(t, c.Execute(context.Background(), s, "bogus"))
	assert.Contains(t, out.String(), "Unknown command: bogus")

	for _, cmd := range []string{"quit", "exit", "q", "QUIT"} {
		assert.False(t, c.Execute(context.Background(), s, cmd), cmd)
	}
}
