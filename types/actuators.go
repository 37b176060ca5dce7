package types

// ActuatorValue is published retained on chamber/state/actuators.
type ActuatorValue struct {
	Heater       bool           `json:"heater"`
	Fogger       bool           `json:"fogger"`
	Fan          bool           `json:"fan"`
	Light        bool           `json:"light"`
	LightEnabled bool           `json:"light_enabled"`
	FanWindow    FanWindowValue `json:"fan_window"`
}

type FanWindowValue struct {
	StartHour   uint8 `json:"start_hour"`
	StartMinute uint8 `json:"start_minute"`
	StopHour    uint8 `json:"stop_hour"`
	StopMinute  uint8 `json:"stop_minute"`
}
