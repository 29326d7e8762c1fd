package overlay

// HandlerFunc consumes one inbound message and reports whether it was
// handled. The result is diagnostic only; transports must not retry or
// reorder on a false return.
type HandlerFunc func(peer string, msg []byte) bool

// Overlay delivers opaque messages between identified peers. Messages
// from the same peer are delivered one at a time, in order; nothing is
// guaranteed across peers.
type Overlay interface {
	Send(peer string, msg []byte) error
	RegisterHandler(h HandlerFunc)
}
