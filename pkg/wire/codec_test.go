package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushline/pushline-go/pkg/frame"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
		err   bool
	}{
		{name: "single object", input: `{"seq":[1],"data":"a"}`, count: 1},
		{name: "array of objects", input: `[{"seq":[1]},{"seq":[2]},{"x":1}]`, count: 3},
		{name: "empty array", input: `[]`, count: 0},
		{name: "scalar", input: `42`, err: true},
		{name: "array with scalar", input: `[{"a":1}, 2]`, err: true},
		{name: "invalid json", input: `{"a":`, err: true},
		{name: "trailing data", input: `{"a":1} {"b":2}`, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := DecodeJSON([]byte(tt.input))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, frames, tt.count)
		})
	}
}

func TestDecodeJSONNotObject(t *testing.T) {
	_, err := DecodeJSON([]byte(`"hello"`))
	assert.ErrorIs(t, err, frame.ErrNotObject)

	_, err = DecodeJSON([]byte(`[{"a":1},"x"]`))
	assert.ErrorIs(t, err, frame.ErrNotObject)
}

func TestDecodeJSONKeepsLargeSequence(t *testing.T) {
	frames, err := DecodeJSON([]byte(`{"seq":[18446744073709551615]}`))
	require.NoError(t, err)
	require.Len(t, frames, 1)

	seq, ok, err := frame.Sequence(frames[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), seq)
}

func TestJSONCodecEncode(t *testing.T) {
	data, err := JSON{}.Encode(frame.NewAck(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","seq":[5]}`, string(data))

	frames, err := JSON{}.Decode([]byte(`{"n":` + json.Number("3").String() + `}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), frames[0]["n"])
}

func TestCBORCodec(t *testing.T) {
	c := CBOR{}

	data, err := c.Encode(frame.Frame{
		"seq":      []any{uint64(9)},
		"payloads": []any{map[string]any{"namespace": "atmosphere", "element": "pong"}},
	})
	require.NoError(t, err)

	frames, err := c.Decode(data)
	require.NoError(t, err)
	require.Len(t, frames, 1)

	seq, ok, err := frame.Sequence(frames[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), seq)
	assert.True(t, frame.ContainsPong(frames[0]))
}

func TestDecodeCBORArray(t *testing.T) {
	data, err := encMode.Marshal([]any{
		map[string]any{"seq": []any{1}},
		map[string]any{"seq": []any{2}},
	})
	require.NoError(t, err)

	frames, err := DecodeCBOR(data)
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	scalar, err := encMode.Marshal(7)
	require.NoError(t, err)
	_, err = DecodeCBOR(scalar)
	assert.ErrorIs(t, err, frame.ErrNotObject)

	_, err = DecodeCBOR([]byte{0xff})
	assert.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	for _, tt := range []struct {
		name string
		want string
	}{
		{"json", NameJSON},
		{"", NameJSON},
		{" CBOR ", NameCBOR},
	} {
		c, err := CodecByName(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.Name())
	}

	_, err := CodecByName("xml")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}
