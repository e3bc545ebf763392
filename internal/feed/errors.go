package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks malformed pagination input. It is returned before any query runs.
	ErrInvalidRequest = errors.New("invalid pagination request")
	// ErrSourceUnavailable marks a Source or Repository failure that aborted a fetch.
	ErrSourceUnavailable = errors.New("feed source unavailable")
)

// SourceError reports which stage of which round failed.
// errors.Is matches both ErrSourceUnavailable and the underlying error.
type SourceError struct {
	Feed  string
	Stage string // "query" or "resolve"
	Round int
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("feed %s: %s failed in round %d: %v", e.Feed, e.Stage, e.Round, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}
