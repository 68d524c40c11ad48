package rawclient

import "errors"

var (
	// ErrInvalidURL ends the run: the base URL could not be parsed or has
	// no host.
	ErrInvalidURL = errors.New("rawclient: invalid URL")
	// ErrConnection wraps any dial, write or read failure of a session.
	ErrConnection = errors.New("rawclient: connection error")
)
