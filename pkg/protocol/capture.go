package protocol

import (
	"time"

	"github.com/pushline/pushline-go/pkg/frame"
	"github.com/pushline/pushline-go/pkg/log"
)

// event builds a capture event stamped with this connection.
func (h *Handler) event(dir log.Direction, layer log.Layer, cat log.Category, fill func(*log.Event)) log.Event {
	e := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: h.config.ConnectionID,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
	}
	fill(&e)
	return e
}

func (h *Handler) logMessage(dir log.Direction, layer log.Layer, seq *uint64, status string, f frame.Frame) {
	h.plog.Log(h.event(dir, layer, log.CategoryMessage, func(e *log.Event) {
		e.Message = &log.MessageEvent{
			Sequence:  seq,
			Status:    status,
			Threshold: h.buffer.Threshold(),
		}
		if f != nil {
			e.Message.Payload = map[string]any(f)
		}
	}))
}

func (h *Handler) logControl(dir log.Direction, typ log.ControlMsgType, seq *uint64, commit *bool, failed bool) {
	h.plog.Log(h.event(dir, log.LayerProtocol, log.CategoryControl, func(e *log.Event) {
		e.ControlMsg = &log.ControlMsgEvent{
			Type:     typ,
			Sequence: seq,
			Commit:   commit,
			Failed:   failed,
		}
	}))
}

func (h *Handler) logState(entity log.StateEntity, oldState, newState, reason string) {
	h.plog.Log(h.event(log.DirectionIn, log.LayerProtocol, log.CategoryState, func(e *log.Event) {
		e.StateChange = &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		}
	}))
}

func (h *Handler) logError(layer log.Layer, err error, context string) {
	h.plog.Log(h.event(log.DirectionIn, layer, log.CategoryError, func(e *log.Event) {
		e.Error = &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		}
	}))
}
