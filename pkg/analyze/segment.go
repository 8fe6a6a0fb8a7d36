package analyze

import (
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
)

// Segment is a candidate or resolved span of cleaned-sample indices.
// Start and End are inclusive. Only the fields for the segment's kind are
// meaningful.
type Segment struct {
	Kind  profile.Kind
	Start int
	End   int

	// constant
	Value float64

	// ramp
	StartValue float64
	EndValue   float64

	// pid
	Setpoint   float64
	MinAllowed float64
	MaxAllowed float64

	// pwm (externally supplied pass-through)
	HighValue    float64
	LowValue     float64
	PulsePercent float64
}

// constantRun is a maximal equal-value run, including the sub-minimum ones
// the constant detector rejects and hands to the PID detector.
type constantRun struct {
	start, end int
	value      float64
}
