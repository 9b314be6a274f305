package log

import (
	"testing"
	"time"
)

func TestEventRoundTrip(t *testing.T) {
	seq := uint64(42)
	commit := true
	ts := time.Date(2026, 3, 4, 5, 6, 7, 123456789, time.UTC)

	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, got Event)
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionIn, Layer: LayerTransport,
				Category: CategoryMessage, RemoteAddr: "ws://example.test/push",
				Frame: &FrameEvent{Size: 3, Data: []byte("{ }"), Objects: 1},
			},
			check: func(t *testing.T, got Event) {
				if got.Frame == nil || got.Frame.Size != 3 || string(got.Frame.Data) != "{ }" || got.Frame.Objects != 1 {
					t.Errorf("frame: got %+v", got.Frame)
				}
				if got.RemoteAddr != "ws://example.test/push" {
					t.Errorf("RemoteAddr = %q", got.RemoteAddr)
				}
			},
		},
		{
			name: "message",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Layer: LayerProtocol, Category: CategoryMessage,
				Message: &MessageEvent{
					Sequence: &seq, Status: "buffered", Threshold: 40, Pending: 2,
					Payload: map[string]any{"seq": []any{uint64(42)}, "data": "x"},
				},
			},
			check: func(t *testing.T, got Event) {
				m := got.Message
				if m == nil || m.Sequence == nil || *m.Sequence != 42 {
					t.Fatalf("message: got %+v", m)
				}
				if m.Status != "buffered" || m.Threshold != 40 || m.Pending != 2 {
					t.Errorf("message: got %+v", m)
				}
				payload, ok := m.Payload.(map[string]any)
				if !ok || payload["data"] != "x" {
					t.Errorf("payload: got %#v", m.Payload)
				}
			},
		},
		{
			name: "control",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionOut, Layer: LayerProtocol,
				Category: CategoryControl, ControlMsg: &ControlMsgEvent{Type: ControlMsgPing, Commit: &commit, Failed: true},
			},
			check: func(t *testing.T, got Event) {
				c := got.ControlMsg
				if c == nil || c.Type != ControlMsgPing || c.Commit == nil || !*c.Commit || !c.Failed {
					t.Errorf("control: got %+v", c)
				}
			},
		},
		{
			name: "state",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Layer: LayerProtocol, Category: CategoryState,
				StateChange: &StateChangeEvent{Entity: StateEntityKeepAlive, OldState: "RUNNING", NewState: "DEAD", Reason: "no pong"},
			},
			check: func(t *testing.T, got Event) {
				s := got.StateChange
				if s == nil || s.Entity != StateEntityKeepAlive || s.NewState != "DEAD" || s.Reason != "no pong" {
					t.Errorf("state: got %+v", s)
				}
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Layer: LayerTransport, Category: CategoryError,
				Error: &ErrorEventData{Layer: LayerTransport, Message: "boom", Context: "read"},
			},
			check: func(t *testing.T, got Event) {
				e := got.Error
				if e == nil || e.Message != "boom" || e.Context != "read" {
					t.Errorf("error: got %+v", e)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}
			if got.ConnectionID != "c1" || got.Layer != tt.event.Layer || got.Category != tt.event.Category {
				t.Errorf("header mismatch: got %+v", got)
			}
			tt.check(t, got)
		})
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error decoding garbage")
	}
}

func TestEnumStrings(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerProtocol.String(), "PROTOCOL"},
		{LayerDelivery.String(), "DELIVERY"},
		{CategoryControl.String(), "CONTROL"},
		{CategoryError.String(), "ERROR"},
		{StateEntityHandler.String(), "HANDLER"},
		{ControlMsgAck.String(), "ACK"},
		{ControlMsgPong.String(), "PONG"},
		{ControlMsgType(7).String(), "UNKNOWN"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestCaptureLimitsApply(t *testing.T) {
	raw := []byte("0123456789")
	payload := map[string]any{"seq": uint64(4), "text": "hello"}
	event := Event{
		Frame:   &FrameEvent{Size: len(raw), Data: raw, Objects: 1},
		Message: &MessageEvent{Status: "released", Payload: payload},
	}

	got := CaptureLimits{MaxFrameBytes: 4, OmitPayloads: true}.Apply(event)

	if string(got.Frame.Data) != "0123" || !got.Frame.Truncated {
		t.Errorf("frame = %q truncated=%v, want \"0123\" truncated", got.Frame.Data, got.Frame.Truncated)
	}
	if got.Frame.Size != len(raw) {
		t.Errorf("frame size = %d, want %d", got.Frame.Size, len(raw))
	}
	if got.Message.Payload != nil {
		t.Errorf("payload = %v, want nil", got.Message.Payload)
	}
	if got.Message.Status != "released" {
		t.Errorf("status = %q, want released", got.Message.Status)
	}

	// The caller's event is shared with other loggers and must not change.
	if len(event.Frame.Data) != len(raw) || event.Frame.Truncated {
		t.Errorf("original frame modified: %+v", event.Frame)
	}
	if event.Message.Payload == nil {
		t.Error("original payload dropped")
	}
}

func TestCaptureLimitsZeroKeepsEverything(t *testing.T) {
	event := Event{Frame: &FrameEvent{Size: 3, Data: []byte("abc")}}
	got := CaptureLimits{}.Apply(event)
	if got.Frame != event.Frame {
		t.Error("zero limits should not copy the frame event")
	}

	short := CaptureLimits{MaxFrameBytes: 10}.Apply(event)
	if short.Frame.Truncated {
		t.Error("frame below the cap marked truncated")
	}
}
