package types

// ServiceState is the retained <service>/state document.
type ServiceState struct {
	Level  string `json:"level"`  // "idle", "up", "degraded", "error"
	Status string `json:"status"` // short machine string
	Error  string `json:"error,omitempty"`
	TS     int64  `json:"ts_ms"`
}

// StatusValue answers chamber/cmd/status.
type StatusValue struct {
	Env       EnvValue      `json:"env"`
	Actuators ActuatorValue `json:"actuators"`
	Cycle     CycleValue    `json:"cycle"`
	Clock     ClockValue    `json:"clock"`
	Settings  ChamberConfig `json:"settings"`
}
