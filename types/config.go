package types

// Configuration documents published retained on config/<key>.

// ChamberConfig lives under config/chamber.
type ChamberConfig struct {
	TempMin int `json:"temp_min"` // whole °C
	TempMax int `json:"temp_max"`
	HumMin  int `json:"hum_min"` // whole %RH
	HumMax  int `json:"hum_max"`

	LightStartHour int `json:"light_start_hour"`
	LightStopHour  int `json:"light_stop_hour"`

	FanActiveMin int `json:"fan_active_min"`
	FanPeriodMin int `json:"fan_period_min"`

	// SmoothingPct is the exponential smoothing weight of a new reading, 1..100.
	// 0 or 100 disables smoothing.
	SmoothingPct int `json:"smoothing_pct"`

	MenuTimeoutTicks int `json:"menu_timeout_ticks"`
	HoldTicks        int `json:"hold_ticks"`

	BusSCLHz     uint32 `json:"bus_scl_hz"`
	BusPollMs    int    `json:"bus_poll_ms"`
	LCDAddr      uint16 `json:"lcd_addr"`
	SensorPeriod int    `json:"sensor_period_s"`
}

// MQTTConfig lives under config/mqtt. An empty Broker disables the bridge.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Prefix   string `json:"prefix"` // topic root, defaults to the device id
	QoS      byte   `json:"qos"`
}

// HTTPConfig lives under config/http. An empty Addr disables the API.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// StorageConfig lives under config/storage.
type StorageConfig struct {
	LogDir     string `json:"log_dir"`
	RecordPath string `json:"record_path"`
	DBPath     string `json:"db_path,omitempty"`
}

// HeartbeatConfig lives under config/heartbeat.
type HeartbeatConfig struct {
	IntervalMs int `json:"interval_ms"`
}
