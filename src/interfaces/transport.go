package interfaces

import "context"

// -----------------------------------------------------------------------------
// ISubscriber receives the terminal's market snapshot stream.
// -----------------------------------------------------------------------------

type ISubscriber interface {
	// Connect dials the publisher and subscribes to every topic.
	// ctx bounds the lifetime of the underlying socket.
	Connect(ctx context.Context) error

	// -----------------------------------------------------------------------------
	// Recv blocks for the next single-frame payload.
	Recv() ([]byte, error)

	// -----------------------------------------------------------------------------
	Close() error
}

// -----------------------------------------------------------------------------
// IRequester performs strict send-then-receive exchanges with the terminal.
// At most one request may be outstanding.
// -----------------------------------------------------------------------------

type IRequester interface {
	Send(payload []byte) error

	// -----------------------------------------------------------------------------
	Recv() ([]byte, error)

	// -----------------------------------------------------------------------------
	// Reset drops the current socket so the next Send dials a fresh one.
	Reset() error

	// -----------------------------------------------------------------------------
	Close() error
}
