package remote

import "errors"

var (
	// ErrUnavailable marks a timeout or transport failure; callers fall
	// back to the last good list instead of surfacing it, unless no
	// fallback exists.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrUnauthorized means the token pair could not be refreshed and a
	// new login is required.
	ErrUnauthorized = errors.New("unauthorized")
)
