package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/pushline/pushline-go/pkg/frame"
)

// ErrUnknownCodec is returned by CodecByName for unsupported names.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec encodes and decodes frames for a channel.
type Codec interface {
	// Name returns the codec name used in configuration.
	Name() string

	// Encode serializes a single frame.
	Encode(f frame.Frame) ([]byte, error)

	// Decode parses a raw message into one or more frames.
	Decode(data []byte) (frame.Batch, error)
}

// Codec names.
const (
	NameJSON = "json"
	NameCBOR = "cbor"
)

// CodecByName returns the codec registered under name (case-insensitive).
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameJSON, "":
		return JSON{}, nil
	case NameCBOR:
		return CBOR{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// JSON is the JSON codec.
type JSON struct{}

// Name implements Codec.
func (JSON) Name() string { return NameJSON }

// Encode implements Codec.
func (JSON) Encode(f frame.Frame) ([]byte, error) {
	return EncodeJSON(f)
}

// EncodeJSON serializes f as a JSON object.
func EncodeJSON(f frame.Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode implements Codec.
func (JSON) Decode(data []byte) (frame.Batch, error) {
	return DecodeJSON(data)
}

// DecodeJSON parses data as a JSON object or an array of objects.
func DecodeJSON(data []byte) (frame.Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if dec.More() {
		return nil, errors.New("failed to decode json: trailing data")
	}
	return framesOf(v)
}

// encMode is the CBOR encoder mode for frames.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for frames.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Frames are JSON-like objects: maps decode with string keys.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		DefaultMapType:    reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// CBOR is the CBOR codec.
type CBOR struct{}

// Name implements Codec.
func (CBOR) Name() string { return NameCBOR }

// Encode implements Codec.
func (CBOR) Encode(f frame.Frame) ([]byte, error) {
	return EncodeCBOR(f)
}

// EncodeCBOR serializes f as a CBOR map with canonical key order.
func EncodeCBOR(f frame.Frame) ([]byte, error) {
	return encMode.Marshal(map[string]any(f))
}

// Decode implements Codec.
func (CBOR) Decode(data []byte) (frame.Batch, error) {
	return DecodeCBOR(data)
}

// DecodeCBOR parses data as a CBOR map or an array of maps.
func DecodeCBOR(data []byte) (frame.Batch, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode cbor: %w", err)
	}
	return framesOf(v)
}

func framesOf(v any) (frame.Batch, error) {
	if f, ok := frame.AsFrame(v); ok {
		return frame.Batch{f}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, frame.ErrNotObject
	}
	frames := make(frame.Batch, 0, len(items))
	for i, item := range items {
		f, ok := frame.AsFrame(item)
		if !ok {
			return nil, fmt.Errorf("element %d: %w", i, frame.ErrNotObject)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
