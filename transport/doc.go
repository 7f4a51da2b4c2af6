// Package transport implements the shared bidirectional event channel.
//
// Every real-time feature of hushwire - encrypted messaging, typing and
// presence, call signaling, WebRTC negotiation - multiplexes over one
// WebSocket connection carrying named JSON events. Components subscribe
// with On and send with Emit; there is exactly one reader loop, and
// handlers run sequentially on it, so the system behaves as a single
// cooperative event thread.
//
// Delivery is at most once. The channel never retries an emit; any retry
// policy belongs to the transport boundary, not to the components using
// the channel.
//
// Example:
//
//	ch := transport.NewChannel("wss://example.com/sync")
//	ch.On(transport.EventNewMessage, func(data json.RawMessage) {
//	    // ...
//	})
//	if err := ch.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ch.Register(transport.Identity{UserID: "alice"})
package transport
