package types

// Commands accepted on chamber/cmd/<verb>. Each gets a Reply when the
// request carries a ReplyTo.

const (
	CycleStart  = "start"
	CycleStop   = "stop"
	CycleToggle = "toggle"
)

type CycleCmd struct {
	Action string `json:"action"`
}

type LightCmd struct {
	Enabled bool `json:"enabled"`
}

// SettingsPatch updates control settings; nil fields are left alone.
type SettingsPatch struct {
	TempMin      *int `json:"temp_min,omitempty"`
	TempMax      *int `json:"temp_max,omitempty"`
	HumMin       *int `json:"hum_min,omitempty"`
	HumMax       *int `json:"hum_max,omitempty"`
	FanActiveMin *int `json:"fan_active_min,omitempty"`
	FanPeriodMin *int `json:"fan_period_min,omitempty"`
}

// ClockSet writes the clock device. SetDate/SetTime select which half.
type ClockSet struct {
	Clock   ClockValue `json:"clock"`
	SetDate bool       `json:"set_date"`
	SetTime bool       `json:"set_time"`
}

type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
