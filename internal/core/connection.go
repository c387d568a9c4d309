package core

import "context"

// CloseCode mirrors the RFC 6455 close status codes the core needs.
type CloseCode int

const (
	CloseNormal          CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	ClosePolicyViolation CloseCode = 1008
)

// Connection is one live client channel as seen by the core.
// The transport owns it; the core only keeps it while it is registered.
type Connection interface {
	// ID is a stable unique session id, used as the key in every core map.
	ID() string
	// RemoteOrigin is the normalized client address used for deduplication.
	RemoteOrigin() string
	// Send writes one text frame. It must honor ctx cancellation.
	Send(ctx context.Context, payload []byte) error
	// Close terminates the channel with the given status.
	Close(code CloseCode, reason string) error
}

// Aborter is implemented by connections that can be dropped without a close handshake.
// It bounds eviction of a peer that has stopped reading.
type Aborter interface {
	CloseNow() error
}
