package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func logOne(t *testing.T, level slog.Level, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler)).WithLevel(level)

	adapter.Log(event)

	if buf.Len() == 0 {
		t.Fatal("no output produced")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsFrameEvent(t *testing.T) {
	entry := logOne(t, slog.LevelDebug, Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		Frame:        &FrameEvent{Size: 256, Data: []byte{0x01}, Objects: 2},
	})

	if entry["msg"] != "protocol" {
		t.Errorf("msg: got %v, want %q", entry["msg"], "protocol")
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level: got %v, want DEBUG", entry["level"])
	}
	if entry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v", entry["conn_id"])
	}
	if entry["direction"] != "IN" || entry["layer"] != "TRANSPORT" {
		t.Errorf("direction/layer: got %v/%v", entry["direction"], entry["layer"])
	}
	if entry["frame_size"] != float64(256) || entry["objects"] != float64(2) {
		t.Errorf("frame fields: got %v/%v", entry["frame_size"], entry["objects"])
	}
}

func TestSlogAdapterLogsMessageEvent(t *testing.T) {
	seq := uint64(7)
	entry := logOne(t, slog.LevelInfo, Event{
		ConnectionID: "conn",
		Layer:        LayerProtocol,
		Message:      &MessageEvent{Sequence: &seq, Status: "released", Threshold: 8},
	})

	if entry["level"] != "INFO" {
		t.Errorf("level: got %v, want INFO", entry["level"])
	}
	if entry["seq"] != float64(7) || entry["status"] != "released" || entry["threshold"] != float64(8) {
		t.Errorf("message fields: got %v", entry)
	}
}

func TestSlogAdapterLogsControlEvent(t *testing.T) {
	commit := false
	entry := logOne(t, slog.LevelDebug, Event{
		Direction:  DirectionOut,
		Category:   CategoryControl,
		ControlMsg: &ControlMsgEvent{Type: ControlMsgPing, Commit: &commit, Failed: true},
	})

	if entry["ctrl_type"] != "PING" || entry["commit"] != false || entry["failed"] != true {
		t.Errorf("control fields: got %v", entry)
	}
	if _, ok := entry["seq"]; ok {
		t.Error("ping should not carry seq")
	}
}

func TestSlogAdapterLogsStateAndError(t *testing.T) {
	entry := logOne(t, slog.LevelDebug, Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityConnection, OldState: "CONNECTED", NewState: "CLOSING", Reason: "peer dead"},
	})
	if entry["entity"] != "CONNECTION" || entry["new_state"] != "CLOSING" || entry["reason"] != "peer dead" {
		t.Errorf("state fields: got %v", entry)
	}

	entry = logOne(t, slog.LevelDebug, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerProtocol, Message: "bad seq", Context: "handle"},
	})
	if entry["error_layer"] != "PROTOCOL" || entry["error_msg"] != "bad seq" || entry["error_context"] != "handle" {
		t.Errorf("error fields: got %v", entry)
	}
}
