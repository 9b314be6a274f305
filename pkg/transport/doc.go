// Package transport connects a pushline protocol handler to a websocket.
//
// A Conn dials the push endpoint, decodes every inbound message into
// frames, runs them through a protocol.Handler and hands the result to a
// protocol.Consumer: unsequenced frames as they arrive, sequenced frames in
// order once every predecessor is present. Acknowledgements and keep-alive
// pings produced by the handler are written back on the same socket.
//
// # Message Types
//
// Text messages carry JSON. Binary messages carry CBOR. Outbound frames use
// the configured codec (JSON by default).
//
// # Lifecycle
//
//	DISCONNECTED -> CONNECTING -> CONNECTED -> CLOSING -> DISCONNECTED
//
// A Conn is used for one connection. Close releases the handler, which
// stops the keep-alive timer and wakes the delivery loop; Wait blocks until
// the read and delivery goroutines have exited. Reconnecting is left to the
// caller.
package transport
