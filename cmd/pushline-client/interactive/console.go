// Package interactive provides the interactive command-line interface
// for pushline-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/protocol"
	"github.com/pushline/pushline-go/pkg/transport"
	"github.com/pushline/pushline-go/pkg/wire"
)

// Session is the connection the console operates on.
// *transport.Conn implements it.
type Session interface {
	ConnectionID() string
	RemoteAddr() string
	State() transport.State
	SendMessage(ctx context.Context, f frame.Frame) error
	Handler() *protocol.Handler
}

// Console handles interactive mode for pushline-client.
type Console struct {
	rl  *readline.Instance
	out io.Writer
}

// New creates a console reading commands from the terminal.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pushline> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Run reads commands until quit, end of input or ctx is done.
// cancel is called when the user asks to exit.
func (c *Console) Run(ctx context.Context, s Session, cancel context.CancelFunc) {
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Execute(ctx, s, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the console should
// exit.
func (c *Console) Execute(ctx context.Context, s Session, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "help", "?":
		c.printHelp()
	case "send", "s":
		c.cmdSend(ctx, s, rest)
	case "stats":
		c.cmdStats(s)
	case "threshold", "t":
		fmt.Fprintf(c.out, "Next expected sequence: %d\n", s.Handler().Threshold())
	case "status":
		c.cmdStatus(s)
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
pushline Client Commands:
  send <json>  - Send a frame (object or array of objects)
  stats        - Show buffer and keep-alive statistics
  threshold    - Show the next expected sequence number
  status       - Show connection status
  help         - Show this help
  quit         - Close the connection and exit`)
}

func (c *Console) cmdSend(ctx context.Context, s Session, payload string) {
	if payload == "" {
		fmt.Fprintln(c.out, "Usage: send <json>")
		return
	}

	batch, err := wire.DecodeJSON([]byte(payload))
	if err != nil {
		fmt.Fprintf(c.out, "Invalid frame: %v\n", err)
		return
	}

	sent := 0
	for _, f := range batch {
		if err := s.SendMessage(ctx, f); err != nil {
			fmt.Fprintf(c.out, "Send failed after %d frame(s): %v\n", sent, err)
			return
		}
		sent++
	}
	fmt.Fprintf(c.out, "Sent %d frame(s)\n", sent)
}

func (c *Console) cmdStats(s Session) {
	stats := s.Handler().Stats()
	b := stats.Buffer
	ka := stats.KeepAlive

	fmt.Fprintln(c.out, "Buffer:")
	fmt.Fprintf(c.out, "  Threshold:  %d\n", b.Threshold)
	fmt.Fprintf(c.out, "  Pending:    %d\n", b.Pending)
	fmt.Fprintf(c.out, "  Ready:      %d\n", b.Ready)
	fmt.Fprintf(c.out, "  Released:   %d\n", b.Released)
	fmt.Fprintf(c.out, "  Buffered:   %d\n", b.Buffered)
	fmt.Fprintf(c.out, "  Duplicates: %d\n", b.Duplicates)
	fmt.Fprintf(c.out, "  Stale:      %d\n", b.Stale)
	fmt.Fprintf(c.out, "  Rejected:   %d\n", b.Rejected)

	fmt.Fprintln(c.out, "Keep-alive:")
	fmt.Fprintf(c.out, "  Pings sent:    %d\n", ka.PingsSent)
	fmt.Fprintf(c.out, "  Send failures: %d\n", ka.SendFailures)
	fmt.Fprintf(c.out, "  Unanswered:    %d\n", ka.Unanswered)
	fmt.Fprintf(c.out, "  Last contact:  %s\n", formatTime(ka.LastContact))
	fmt.Fprintf(c.out, "  Last ping:     %s\n", formatTime(ka.LastPingTime))
}

func (c *Console) cmdStatus(s Session) {
	fmt.Fprintf(c.out, "Connection: %s\n", s.ConnectionID())
	fmt.Fprintf(c.out, "Remote:     %s\n", s.RemoteAddr())
	fmt.Fprintf(c.out, "State:      %s\n", s.State())
	if s.Handler().IsReleased() {
		fmt.Fprintln(c.out, "Handler:    released")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s ago)", t.Format("15:04:05.000"), time.Since(t).Round(time.Millisecond))
}
