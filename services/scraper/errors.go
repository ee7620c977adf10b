package scraper

import (
	"errors"
	"fmt"
)

// Failure taxonomy for source fetches. The aggregator matches these with
// errors.Is to decide whether to fall back to the next source.
var (
	ErrNetwork               = errors.New("network failure")
	ErrHTTPStatus            = errors.New("unexpected http status")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrNoSchema              = errors.New("no extraction schema detected")
)

// StatusError wraps a non-2xx response so callers can still read the code.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d for %s", e.Code, e.URL)
}

func (e *StatusError) Is(target error) bool { return target == ErrHTTPStatus }
