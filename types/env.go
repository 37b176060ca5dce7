package types

// ------------------------
// Temperature & humidity
// ------------------------

// EnvValue is published retained on chamber/state/env.
type EnvValue struct {
	// Tenths of °C (e.g. 271 => 27.1°C).
	DeciC int16 `json:"deci_c"`
	// Tenths of %RH (0..1000).
	DeciRH uint16 `json:"deci_rh"`
	// Stale is set when the latest read failed and the value is the last good one.
	Stale bool  `json:"stale,omitempty"`
	TS    int64 `json:"ts_ms"`
}

// WholeC truncates toward zero, the resolution the control loop works in.
func (v EnvValue) WholeC() int { return int(v.DeciC) / 10 }

// WholeRH truncates toward zero.
func (v EnvValue) WholeRH() int { return int(v.DeciRH) / 10 }
