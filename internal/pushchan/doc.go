// Package pushchan maintains the per-job push channel: a WebSocket that
// streams partial job updates from the backend.
//
// Each subscription owns one connection, a keepalive ping loop, and a
// reconnect loop with linearly growing, capped backoff. Inbound updates are
// handed to the caller unfiltered; the cache decides what to keep. When the
// reconnect budget is exhausted a terminal error is surfaced exactly once
// and the channel stays down until the caller resubscribes. A caller
// initiated unsubscribe never reconnects.
//
// The Dialer seam exists so tests can drive the whole lifecycle with an
// in-memory connection; production uses the gorilla/websocket dialer.
package pushchan
