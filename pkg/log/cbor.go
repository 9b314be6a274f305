package log

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Capture files are a plain concatenation of CBOR-encoded events, integer
// keyed and with RFC 3339 nanosecond timestamps.
var (
	eventEncMode cbor.EncMode
	eventDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	eventEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR encoder mode: %v", err))
	}

	// Message payloads are frames, so nested maps decode with string keys
	// and stay usable as frame.Frame.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
	}
	eventDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create capture CBOR decoder mode: %v", err))
	}
}

// CaptureLimits bounds what a capture keeps of each event.
// The zero value keeps everything.
type CaptureLimits struct {
	// MaxFrameBytes caps the raw bytes kept in a FrameEvent. Cut frames are
	// marked Truncated; Size still reports the full length.
	MaxFrameBytes int

	// OmitPayloads drops MessageEvent payloads, keeping sequence and status.
	OmitPayloads bool
}

// Apply returns event trimmed to the limits. The input event and the structs
// it points to are left untouched, since other loggers may share them.
func (l CaptureLimits) Apply(event Event) Event {
	if fe := event.Frame; fe != nil && l.MaxFrameBytes > 0 && len(fe.Data) > l.MaxFrameBytes {
		trimmed := *fe
		trimmed.Data = fe.Data[:l.MaxFrameBytes:l.MaxFrameBytes]
		trimmed.Truncated = true
		event.Frame = &trimmed
	}
	if me := event.Message; me != nil && l.OmitPayloads && me.Payload != nil {
		trimmed := *me
		trimmed.Payload = nil
		event.Message = &trimmed
	}
	return event
}

// EncodeEvent encodes an Event to CBOR bytes using integer keys.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Encoder writes events to a capture stream, applying its limits to each.
type Encoder struct {
	enc    *cbor.Encoder
	limits CaptureLimits
}

// NewEncoder creates a capture encoder writing to w.
func NewEncoder(w io.Writer, limits CaptureLimits) *Encoder {
	return &Encoder{enc: eventEncMode.NewEncoder(w), limits: limits}
}

// Encode writes one event.
func (e *Encoder) Encode(event Event) error {
	return e.enc.Encode(e.limits.Apply(event))
}

// NewDecoder creates a CBOR decoder for capture events that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return eventDecMode.NewDecoder(r)
}
