// Package websocket streams newly installed overlay layers to widget clients.
//
// The Hub uses a single goroutine with a command channel (no mutexes).
// Per-connection write goroutines isolate slow clients; a client whose send
// buffer fills up is evicted rather than allowed to stall a broadcast.
package websocket
