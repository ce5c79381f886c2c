// Package realtime is the websocket gateway: authenticated connections,
// presence, message routing and the ephemeral events around them.
package realtime

import (
	"errors"
)

// Close codes sent to clients. 4xxx codes are application defined.
const (
	CloseUnauthenticated    = 4401
	CloseTooManyConnections = 4429
	CloseSlowConsumer       = 4008
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Session is one live, authenticated connection.
type Session interface {
	ID() string
	UserID() string
	Handle() string
	// Send queues ev without blocking. It fails with ErrSlowConsumer when the
	// buffer is full and ErrConnClosed after Close.
	Send(ev ServerEvent) error
	// Close flushes what is already queued and closes with code and reason.
	Close(code int, reason string)
}
