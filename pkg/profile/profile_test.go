package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentJSONRoundTrip(t *testing.T) {
	comps := []Component{
		NewConstant(120, 30.0),
		NewRamp(60, 20.0, 80.0),
		NewPWM(40, 50.0, 30.0, 25.0),
		NewPID(15, 30.0, 29.8, 30.2),
	}
	for _, c := range comps {
		t.Run(string(c.Kind), func(t *testing.T) {
			data, err := json.Marshal(c)
			require.NoError(t, err)

			var back Component
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, c, back)
		})
	}
}

func TestComponentWireShape(t *testing.T) {
	c := NewRamp(60, 20.0, 80.0)
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "id")
	assert.Contains(t, wire, "kind")
	assert.Contains(t, wire, "duration_minutes")
	assert.Contains(t, wire, "params")

	var params map[string]float64
	require.NoError(t, json.Unmarshal(wire["params"], &params))
	assert.Equal(t, map[string]float64{"start_value": 20.0, "end_value": 80.0}, params)
}

func TestComponentUnmarshalUnknownKind(t *testing.T) {
	var c Component
	err := json.Unmarshal([]byte(`{"kind":"sine","duration_minutes":10,"params":{}}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown component kind")
}

func TestComponentValidate(t *testing.T) {
	good := NewConstant(10, 30.0)
	assert.NoError(t, good.Validate())

	twoVariants := good
	twoVariants.Ramp = &RampParams{}
	assert.Error(t, twoVariants.Validate())

	mismatch := Component{ID: "x", Kind: KindRamp, DurationMinutes: 10, Constant: &ConstantParams{Value: 1}}
	assert.Error(t, mismatch.Validate())

	var none Component
	none.Kind = KindConstant
	assert.Error(t, none.Validate())
}

func TestComponentIDsUnique(t *testing.T) {
	a := NewConstant(10, 30.0)
	b := NewConstant(10, 30.0)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
