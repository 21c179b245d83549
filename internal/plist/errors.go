package plist

import "errors"

var (
	// ErrCapacityExceeded is returned by Add when the list is at its maximum
	// capacity, no id has been freed and reuse of old slots is disabled.
	ErrCapacityExceeded = errors.New("plist: too many items")

	// ErrOutOfRange indicates an id outside the backing array.
	ErrOutOfRange = errors.New("plist: id out of range")

	// ErrNotActive indicates an id whose slot is not live.
	ErrNotActive = errors.New("plist: id not active")
)
