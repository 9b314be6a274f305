// Package protocol implements the ordered-delivery and liveness protocol of
// a pushline channel.
//
// A Handler sits between a transport and the application. For every inbound
// frame it decides whether the frame is a pong, an unsequenced frame to be
// delivered straight away, or a sequenced frame that goes through the
// re-order buffer and is acknowledged. Sequenced frames reach the
// application through Take or Run, strictly in sequence order.
//
// The handler also owns the keep-alive timer. Pings are sent when nothing
// went out for the idle window; acknowledgements, application sends and
// inbound pongs all postpone the next ping.
//
// # Basic Usage
//
//	h, err := protocol.NewHandler(conn, protocol.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	h.Start(ctx)
//	defer h.Release()
//
//	go h.Run(ctx, protocol.ConsumerFunc(func(f frame.Frame) {
//	    fmt.Println(f)
//	}))
//
//	// In the transport read loop:
//	immediate, err := h.HandleBatch(ctx, batch)
package protocol
