package llm

import (
	"errors"
	"fmt"
)

// ErrProtocolUnsupported marks a backend that does not implement the
// requested protocol. It triggers a protocol fallback and is never surfaced
// to callers of a Fallback provider.
var ErrProtocolUnsupported = errors.New("backend protocol unsupported")

// RequestError is a non-fallback HTTP failure from a backend.
type RequestError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed (status %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 300))
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
