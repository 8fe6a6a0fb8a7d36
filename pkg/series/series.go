package series

import (
	"fmt"
	"sort"
)

// Sample is a single setpoint reading. T is process time in minutes from
// process zero (inoculation); V is the recorded setpoint value.
type Sample struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Series is an ordered list of samples. Timestamps must be strictly
// increasing; the engine only ever reads it.
type Series []Sample

// Validate checks the strictly-increasing timestamp invariant.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].T <= s[i-1].T {
			return fmt.Errorf("series: timestamps not strictly increasing at index %d (%.4f after %.4f)", i, s[i].T, s[i-1].T)
		}
	}
	return nil
}

// Span returns the covered time range in minutes.
func (s Series) Span() float64 {
	if len(s) < 2 {
		return 0
	}
	return s[len(s)-1].T - s[0].T
}

// ValueAt returns the step-function hold value at time t: the value of the
// most recent sample at or before t. Before the first sample it returns the
// first value.
func (s Series) ValueAt(t float64) float64 {
	if len(s) == 0 {
		return 0
	}
	// First index with T > t; the sample before it is the hold.
	i := sort.Search(len(s), func(i int) bool { return s[i].T > t })
	if i == 0 {
		return s[0].V
	}
	return s[i-1].V
}
