package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "chamber": {
    "temp_min": 27, "temp_max": 29,
    "hum_min": 85, "hum_max": 90,
    "light_start_hour": 1, "light_stop_hour": 20,
    "fan_active_min": 1, "fan_period_min": 2,
    "smoothing_pct": 40,
    "menu_timeout_ticks": 10,
    "hold_ticks": 3,
    "bus_scl_hz": 100000,
    "bus_poll_ms": 50,
    "lcd_addr": 63,
    "sensor_period_s": 2
  },
  "heartbeat": {
    "interval_ms": 1000
  }
}`

// Same chamber with a 328P: a smaller poll budget and no heartbeat LED.
const cfgUno = `{
  "chamber": {
    "temp_min": 27, "temp_max": 29,
    "hum_min": 85, "hum_max": 90,
    "light_start_hour": 1, "light_stop_hour": 20,
    "fan_active_min": 1, "fan_period_min": 2,
    "smoothing_pct": 40,
    "bus_poll_ms": 20
  },
  "heartbeat": {
    "interval_ms": 0
  }
}`

const cfgSim = `{
  "chamber": {
    "temp_min": 27, "temp_max": 29,
    "hum_min": 85, "hum_max": 90,
    "light_start_hour": 1, "light_stop_hour": 20,
    "fan_active_min": 1, "fan_period_min": 2,
    "smoothing_pct": 40
  },
  "http": {
    "addr": "127.0.0.1:8080"
  },
  "mqtt": {
    "broker": "",
    "prefix": "growctl",
    "qos": 1
  },
  "storage": {
    "log_dir": "data",
    "record_path": "data/cycle.bin"
  },
  "heartbeat": {
    "interval_ms": 1000
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"uno":  []byte(cfgUno),
	"sim":  []byte(cfgSim),
}
