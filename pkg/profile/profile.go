package profile

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies a component variant. The set is closed; params are a
// tagged variant per kind rather than a free-form map.
type Kind string

const (
	KindConstant Kind = "constant"
	KindRamp     Kind = "ramp"
	KindPWM      Kind = "pwm"
	KindPID      Kind = "pid"
)

// ConstantParams holds a fixed setpoint.
type ConstantParams struct {
	Value float64 `json:"value"`
}

// RampParams holds a linear transition. Values come from the detected
// run's raw endpoints, not a regression fit.
type RampParams struct {
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
}

// PWMParams holds a pulse-width-modulation pattern. PWM segments are
// detected upstream and pass through the engine unchanged.
type PWMParams struct {
	HighValue    float64 `json:"high_value"`
	LowValue     float64 `json:"low_value"`
	PulsePercent float64 `json:"pulse_percent"`
}

// PIDParams holds a controller segment hunting around a setpoint.
type PIDParams struct {
	Setpoint   float64 `json:"setpoint"`
	MinAllowed float64 `json:"min_allowed"`
	MaxAllowed float64 `json:"max_allowed"`
}

// Component is one emitted profile element. Exactly one params field is
// non-nil and it matches Kind. Immutable once produced.
type Component struct {
	ID              string
	Kind            Kind
	DurationMinutes int

	Constant *ConstantParams
	Ramp     *RampParams
	PWM      *PWMParams
	PID      *PIDParams
}

func NewConstant(durationMinutes int, value float64) Component {
	return Component{ID: uuid.NewString(), Kind: KindConstant, DurationMinutes: durationMinutes,
		Constant: &ConstantParams{Value: value}}
}

func NewRamp(durationMinutes int, startValue, endValue float64) Component {
	return Component{ID: uuid.NewString(), Kind: KindRamp, DurationMinutes: durationMinutes,
		Ramp: &RampParams{StartValue: startValue, EndValue: endValue}}
}

func NewPWM(durationMinutes int, high, low, pulsePercent float64) Component {
	return Component{ID: uuid.NewString(), Kind: KindPWM, DurationMinutes: durationMinutes,
		PWM: &PWMParams{HighValue: high, LowValue: low, PulsePercent: pulsePercent}}
}

func NewPID(durationMinutes int, setpoint, minAllowed, maxAllowed float64) Component {
	return Component{ID: uuid.NewString(), Kind: KindPID, DurationMinutes: durationMinutes,
		PID: &PIDParams{Setpoint: setpoint, MinAllowed: minAllowed, MaxAllowed: maxAllowed}}
}

// Validate checks the variant invariant: exactly one params struct set,
// matching the declared kind.
func (c Component) Validate() error {
	set := 0
	if c.Constant != nil {
		set++
	}
	if c.Ramp != nil {
		set++
	}
	if c.PWM != nil {
		set++
	}
	if c.PID != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("component %s: %d params variants set, want 1", c.ID, set)
	}
	ok := false
	switch c.Kind {
	case KindConstant:
		ok = c.Constant != nil
	case KindRamp:
		ok = c.Ramp != nil
	case KindPWM:
		ok = c.PWM != nil
	case KindPID:
		ok = c.PID != nil
	default:
		return fmt.Errorf("component %s: unknown kind %q", c.ID, c.Kind)
	}
	if !ok {
		return fmt.Errorf("component %s: params do not match kind %q", c.ID, c.Kind)
	}
	return nil
}

// componentJSON is the wire shape: {kind, duration_minutes, params}. The id
// is carried alongside so edits in the external profile editor stay
// addressable; params keys are exactly the per-kind documented fields.
type componentJSON struct {
	ID              string          `json:"id,omitempty"`
	Kind            Kind            `json:"kind"`
	DurationMinutes int             `json:"duration_minutes"`
	Params          json.RawMessage `json:"params"`
}

func (c Component) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var params any
	switch c.Kind {
	case KindConstant:
		params = c.Constant
	case KindRamp:
		params = c.Ramp
	case KindPWM:
		params = c.PWM
	case KindPID:
		params = c.PID
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(componentJSON{
		ID:              c.ID,
		Kind:            c.Kind,
		DurationMinutes: c.DurationMinutes,
		Params:          raw,
	})
}

func (c *Component) UnmarshalJSON(data []byte) error {
	var w componentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Component{ID: w.ID, Kind: w.Kind, DurationMinutes: w.DurationMinutes}
	switch w.Kind {
	case KindConstant:
		out.Constant = &ConstantParams{}
		if err := json.Unmarshal(w.Params, out.Constant); err != nil {
			return err
		}
	case KindRamp:
		out.Ramp = &RampParams{}
		if err := json.Unmarshal(w.Params, out.Ramp); err != nil {
			return err
		}
	case KindPWM:
		out.PWM = &PWMParams{}
		if err := json.Unmarshal(w.Params, out.PWM); err != nil {
			return err
		}
	case KindPID:
		out.PID = &PIDParams{}
		if err := json.Unmarshal(w.Params, out.PID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown component kind %q", w.Kind)
	}
	*c = out
	return nil
}
