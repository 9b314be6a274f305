package log

import (
	"time"
)

// Event represents a protocol event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates frame flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address or URL.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Protocol layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"` // Ping/pong/ack
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw frame layer.
	LayerTransport Layer = 0
	// LayerProtocol is the ordering and liveness layer.
	LayerProtocol Layer = 1
	// LayerDelivery is the hand-off to the application.
	LayerDelivery Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerDelivery:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a data frame.
	CategoryMessage Category = 0
	// CategoryControl indicates a control frame (ping/pong/ack).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Objects is the number of frame objects the raw message decoded into.
	Objects int `cbor:"4,keyasint,omitempty"`
}

// MessageEvent captures how the protocol layer handled a data frame.
type MessageEvent struct {
	// Sequence is the frame's sequence number (nil for unsequenced frames).
	Sequence *uint64 `cbor:"1,keyasint,omitempty"`

	// Status is the re-order buffer outcome ("released", "buffered",
	// "duplicate", "stale", "rejected") or "immediate" for unsequenced frames
	// and "delivered" at the delivery layer.
	Status string `cbor:"2,keyasint"`

	// Threshold is the buffer threshold after handling the frame.
	Threshold uint64 `cbor:"3,keyasint"`

	// Pending is the pending set size after handling the frame.
	Pending int `cbor:"4,keyasint,omitempty"`

	// Payload is the frame itself (CBOR-compatible representation).
	Payload any `cbor:"5,keyasint,omitempty"`
}

// Message status values that do not come from the re-order buffer.
const (
	StatusImmediate = "immediate"
	StatusDelivered = "delivered"
)

// StateChangeEvent captures lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a transport connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityKeepAlive indicates a keep-alive state change.
	StateEntityKeepAlive StateEntity = 1
	// StateEntityHandler indicates a protocol handler state change.
	StateEntityHandler StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityKeepAlive:
		return "KEEPALIVE"
	case StateEntityHandler:
		return "HANDLER"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures control frames.
type ControlMsgEvent struct {
	// Type of control frame.
	Type ControlMsgType `cbor:"1,keyasint"`

	// Sequence is the acknowledged sequence number (acks only).
	Sequence *uint64 `cbor:"2,keyasint,omitempty"`

	// Commit is the ping's commit flag (pings only).
	Commit *bool `cbor:"3,keyasint,omitempty"`

	// Failed indicates the control frame could not be sent.
	Failed bool `cbor:"4,keyasint,omitempty"`
}

// ControlMsgType indicates the type of control frame.
type ControlMsgType uint8

const (
	// ControlMsgPing indicates a keep-alive ping.
	ControlMsgPing ControlMsgType = 0
	// ControlMsgPong indicates a pong payload.
	ControlMsgPong ControlMsgType = 1
	// ControlMsgAck indicates an acknowledgement.
	ControlMsgAck ControlMsgType = 2
)

// String returns the control frame type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
