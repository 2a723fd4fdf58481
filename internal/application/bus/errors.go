package bus

import "errors"

var (
	// ErrChannelNotFound is returned when an operation names an unknown channel.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelExists is returned when creating a channel whose name is taken.
	ErrChannelExists = errors.New("channel already exists")

	// ErrMaxSubscribersExceeded is returned when a channel's subscriber cap is reached.
	ErrMaxSubscribersExceeded = errors.New("max subscribers exceeded")
)
