// Package wire converts between raw channel messages and frames.
//
// A raw message carries either a single JSON object or an array of
// objects. Two codecs are provided: JSON, the format push servers speak,
// and CBOR, a compact binary encoding of the same object model used for
// binary websocket messages and for replaying protocol captures.
//
// Numbers decoded by the JSON codec are kept as json.Number so that
// sequence numbers larger than 2^53 survive without float rounding.
package wire
