// Package frame defines the unit of data exchanged on a pushline channel.
//
// A Frame is an untyped, JSON-like object. The protocol core only looks at a
// handful of well-known fields and treats everything else as opaque payload.
//
// # Well-Known Fields
//
//	seq        optional sequence number (integer, numeric string, or a
//	           1-element array wrapping either)
//	type       control frame type ("ping", "ack")
//	commit     ping flag asking the server to flush immediately
//	payloads   nested payload objects
//	namespace  payload namespace marker
//	element    payload element marker
//
// # Control Frames
//
// Outbound control frames are built with NewAck and NewPing:
//
//	{"type": "ack", "seq": [42]}
//	{"type": "ping", "commit": false}
//
// Liveness replies arrive as a pong payload, identified by the
// namespace/element pair "atmosphere"/"pong", either as the frame itself or
// nested in its payloads.
package frame
