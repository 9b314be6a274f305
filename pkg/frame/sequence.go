package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxExactFloat is the largest integer a float64 represents exactly.
const maxExactFloat = 1 << 53

// Sequence extracts the sequence number of f.
//
// ok is false when the frame carries no seq field. A present but malformed
// value returns an error wrapping ErrMalformedSequence.
func Sequence(f Frame) (seq uint64, ok bool, err error) {
	raw, present := f[FieldSeq]
	if !present || raw == nil {
		return 0, false, nil
	}

	// Some senders wrap the number in a 1-element array.
	if arr, isArr := raw.([]any); isArr {
		if len(arr) != 1 {
			return 0, true, fmt.Errorf("%w: array of length %d", ErrMalformedSequence, len(arr))
		}
		raw = arr[0]
	}

	seq, err = parseScalar(raw)
	if err != nil {
		return 0, true, err
	}
	return seq, true, nil
}

func parseScalar(v any) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case int:
		return fromSigned(int64(t))
	case int64:
		return fromSigned(t)
	case int32:
		return fromSigned(int64(t))
	case int16:
		return fromSigned(int64(t))
	case int8:
		return fromSigned(int64(t))
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case json.Number:
		return parseString(t.String())
	case string:
		return parseString(t)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrMalformedSequence, v)
	}
}

func fromSigned(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrMalformedSequence, v)
	}
	return uint64(v), nil
}

func fromFloat(v float64) (uint64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) || v > maxExactFloat {
		return 0, fmt.Errorf("%w: %v is not a non-negative integer", ErrMalformedSequence, v)
	}
	return uint64(v), nil
}

func parseString(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedSequence, s)
	}
	return n, nil
}
