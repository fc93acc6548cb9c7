package jellyfin

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the upstream server rejected our credentials
	// or the auth round-trip could not complete.
	ErrAuthentication = errors.New("upstream authentication failed")

	// ErrUpstreamUnavailable means no credential could be obtained at all,
	// so no API call can be issued.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrItemNotFound means the requested item does not exist upstream.
	ErrItemNotFound = errors.New("item not found")

	// ErrNoMediaSource means upstream returned no playable descriptor.
	ErrNoMediaSource = errors.New("no playable media source")

	// ErrInvalidArgument means the caller supplied malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// StatusError reports an unexpected upstream HTTP status.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Endpoint, e.Code)
}
