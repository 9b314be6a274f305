package frame

import "errors"

// Field names understood by the protocol core.
const (
	FieldSeq       = "seq"
	FieldType      = "type"
	FieldCommit    = "commit"
	FieldPayloads  = "payloads"
	FieldNamespace = "namespace"
	FieldElement   = "element"
)

// Control frame types.
const (
	TypePing = "ping"
	TypeAck  = "ack"
)

// Pong payload markers.
const (
	NamespaceAtmosphere = "atmosphere"
	ElementPong         = "pong"
)

// Frame errors.
var (
	// ErrMalformedSequence is returned when the seq field is present but is not
	// a non-negative integer.
	ErrMalformedSequence = errors.New("malformed sequence number")

	// ErrNotObject is returned when an inbound value is not a structured object.
	ErrNotObject = errors.New("frame is not an object")
)

// Frame is one unit of structured data on the channel.
type Frame map[string]any

// Type returns the control type of the frame, or "" if none is set.
func (f Frame) Type() string {
	s, _ := f[FieldType].(string)
	return s
}

// HasSequence reports whether the frame carries a seq field.
func (f Frame) HasSequence() bool {
	v, ok := f[FieldSeq]
	return ok && v != nil
}

// Payloads returns the nested payload objects of the frame.
// Entries that are not objects are skipped.
func (f Frame) Payloads() []Frame {
	return payloadsOf(f)
}

// NewAck returns an acknowledgement frame for seq.
func NewAck(seq uint64) Frame {
	return Frame{
		FieldType: TypeAck,
		FieldSeq:  []any{seq},
	}
}

// NewPing returns a keepalive ping frame.
func NewPing(commit bool) Frame {
	return Frame{
		FieldType:   TypePing,
		FieldCommit: commit,
	}
}

// AsFrame converts a decoded value into a Frame.
// It accepts Frame and map[string]any values.
func AsFrame(v any) (Frame, bool) {
	switch t := v.(type) {
	case Frame:
		return t, true
	case map[string]any:
		return Frame(t), true
	default:
		return nil, false
	}
}

func payloadsOf(f Frame) []Frame {
	raw, ok := f[FieldPayloads].([]any)
	if !ok {
		return nil
	}
	out := make([]Frame, 0, len(raw))
	for _, p := range raw {
		if obj, ok := AsFrame(p); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Batch is the decoded form of one inbound message: one or more frames.
type Batch []Frame
