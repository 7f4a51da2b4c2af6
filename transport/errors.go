package transport

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrNotConnected indicates an emit on a channel with no live connection.
	ErrNotConnected = errors.New("channel is not connected")

	// ErrAlreadyConnected indicates a second Connect on a live channel.
	ErrAlreadyConnected = errors.New("channel is already connected")

	// ErrClosed indicates the channel has been closed and cannot reconnect.
	ErrClosed = errors.New("channel is closed")
)
