// Package keepalive emits ping frames on an idle connection.
//
// The timer tracks a single last-contact reading. Every outbound frame and
// every inbound pong moves it forward; when a full idle window passes without
// contact, a ping is sent and the window restarts.
//
//	deadline = lastContact + IdleTimeout
//	now >= deadline  -> send ping, lastContact = now, sleep IdleTimeout
//	now <  deadline  -> sleep deadline - now
//
// Send failures are logged and never stop the loop; only Stop or context
// cancellation do.
//
// # Unanswered Pings
//
// By default a missing pong is not treated as a failure. Setting
// MaxUnansweredPings enables dead-peer detection: once that many consecutive
// pings go without a pong, OnDead is called and the loop terminates.
package keepalive
