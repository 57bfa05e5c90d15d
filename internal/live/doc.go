// Package live fans snapshot updates out to connected WebSocket viewers.
//
// A Registry owns the set of subscribers. Broadcast copies the member list
// under a read lock, enqueues the encoded payload on each subscriber without
// blocking, and evicts every subscriber whose enqueue failed once the pass
// is complete. Broadcasts are serialized with each other and with Add, so a
// subscriber sees its initial message first and updates in commit order.
//
// Conn is the WebSocket-backed Subscriber: one writer goroutine owns all
// writes to the socket and drains a bounded queue; a full queue marks the
// client as slow.
package live
