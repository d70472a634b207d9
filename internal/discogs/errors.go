package discogs

import (
	"errors"
	"fmt"
)

// ErrMissingToken means the server was started without a Discogs token.
// It is an operator problem, never the caller's, and is not retried.
var ErrMissingToken = errors.New("discogs: missing token")

// ValidationError reports a required query parameter that was absent or blank.
type ValidationError struct {
	Param string
}

func (e *ValidationError) Error() string {
	return "missing query param: " + e.Param
}

// UpstreamError carries a non-2xx answer from Discogs. Body is the raw
// response, untouched, so callers can tell 401 from 404 from 429.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "discogs error"
	}
	return fmt.Sprintf("discogs: status %d", e.Status)
}
