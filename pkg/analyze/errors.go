package analyze

import (
	"errors"
	"fmt"
)

// ErrEmptySeries signals fewer than 2 usable samples after preprocessing.
var ErrEmptySeries = errors.New("series has fewer than 2 usable samples")

// UnresolvedCoverageError reports a broken partition invariant in the
// resolver. It indicates a programming error, never bad input: the call
// aborts rather than emitting a partial profile.
type UnresolvedCoverageError struct {
	Index  int
	Reason string
}

func (e *UnresolvedCoverageError) Error() string {
	return fmt.Sprintf("unresolved coverage at sample index %d: %s", e.Index, e.Reason)
}
