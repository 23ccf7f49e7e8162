package notify

import "errors"

var (
	// ErrQueueFull is returned when the notification queue has no room.
	ErrQueueFull = errors.New("notification queue full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("notification queue closed")
)
