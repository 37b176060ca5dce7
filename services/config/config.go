// Package config resolves the embedded per-device configuration, decodes it
// into typed documents and publishes each top-level key retained on
// config/<key>.
package config

import (
	"context"
	"encoding/json"

	"growctl-go/bus"
	"growctl-go/errcode"
	"growctl-go/services/control"
	"growctl-go/types"
	"growctl-go/x/logx"
	"growctl-go/x/mathx"
	"growctl-go/x/strx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Known document keys.
const (
	KeyChamber   = "chamber"
	KeyMQTT      = "mqtt"
	KeyHTTP      = "http"
	KeyStorage   = "storage"
	KeyHeartbeat = "heartbeat"
)

// Topic returns config/<key>.
func Topic(key string) bus.Topic { return bus.T(configPrefix, key) }

// Device is one device's decoded configuration.
type Device struct {
	ID        string
	Chamber   types.ChamberConfig
	MQTT      types.MQTTConfig
	HTTP      types.HTTPConfig
	Storage   types.StorageConfig
	Heartbeat types.HeartbeatConfig

	// Extra holds top-level keys this package does not know.
	Extra map[string]any
}

// Defaults fill whatever a document leaves out.
func Defaults(id string) Device {
	s := control.DefaultSettings()
	return Device{
		ID: id,
		Chamber: types.ChamberConfig{
			TempMin:          s.TempMin,
			TempMax:          s.TempMax,
			HumMin:           s.HumMin,
			HumMax:           s.HumMax,
			LightStartHour:   s.LightStartHour,
			LightStopHour:    s.LightStopHour,
			FanActiveMin:     s.FanActive,
			FanPeriodMin:     s.FanPeriod,
			SmoothingPct:     40,
			MenuTimeoutTicks: 10,
			HoldTicks:        3,
			BusSCLHz:         100_000,
			BusPollMs:        50,
			LCDAddr:          0x3F,
			SensorPeriod:     2,
		},
		MQTT:      types.MQTTConfig{Prefix: id, QoS: 1},
		Storage:   types.StorageConfig{LogDir: ".", RecordPath: "cycle.bin"},
		Heartbeat: types.HeartbeatConfig{IntervalMs: 1000},
	}
}

// Load resolves and decodes the embedded document for device.
func Load(device string) (Device, error) {
	if device == "" {
		return Device{}, &errcode.E{C: errcode.ConfigInvalid, Op: "config.load", Msg: "missing device ID"}
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return Device{}, &errcode.E{C: errcode.ConfigInvalid, Op: "config.load", Msg: "no embedded config for device: " + device}
	}
	return Parse(device, raw)
}

// Parse decodes raw over Defaults(device) and validates the result.
func Parse(device string, raw []byte) (Device, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Device{}, errcode.Wrap(errcode.ConfigInvalid, "config.parse", err)
	}
	d := Defaults(device)
	for k, v := range top {
		var err error
		switch k {
		case KeyChamber:
			err = json.Unmarshal(v, &d.Chamber)
		case KeyMQTT:
			err = json.Unmarshal(v, &d.MQTT)
		case KeyHTTP:
			err = json.Unmarshal(v, &d.HTTP)
		case KeyStorage:
			err = json.Unmarshal(v, &d.Storage)
		case KeyHeartbeat:
			err = json.Unmarshal(v, &d.Heartbeat)
		default:
			var x any
			err = json.Unmarshal(v, &x)
			if d.Extra == nil {
				d.Extra = map[string]any{}
			}
			d.Extra[k] = x
		}
		if err != nil {
			return Device{}, &errcode.E{C: errcode.ConfigInvalid, Op: "config.parse", Msg: k, Err: err}
		}
	}
	d.MQTT.Prefix = strx.Coalesce(d.MQTT.Prefix, device)
	if err := d.Validate(); err != nil {
		return Device{}, err
	}
	return d, nil
}

// Validate checks the chamber document; the others are free-form.
func (d Device) Validate() error {
	if err := control.SettingsFrom(d.Chamber).Validate(); err != nil {
		return err
	}
	c := d.Chamber
	bad := func(msg string) error {
		return &errcode.E{C: errcode.ConfigInvalid, Op: "config.validate", Msg: msg}
	}
	switch {
	case !mathx.Between(c.SmoothingPct, 0, 100):
		return bad("smoothing_pct outside 0..100")
	case c.MenuTimeoutTicks <= 0:
		return bad("menu_timeout_ticks must be positive")
	case c.HoldTicks <= 0:
		return bad("hold_ticks must be positive")
	case !mathx.Between(c.BusSCLHz, 1, 400_000):
		return bad("bus_scl_hz outside 1..400000")
	case c.BusPollMs <= 0:
		return bad("bus_poll_ms must be positive")
	case c.LCDAddr > 0x7F:
		return bad("lcd_addr is not a 7-bit address")
	case c.SensorPeriod < 2:
		return bad("sensor_period_s below the 2 s DHT22 minimum")
	case d.MQTT.QoS > 2:
		return bad("mqtt qos outside 0..2")
	case d.Heartbeat.IntervalMs < 0:
		return bad("heartbeat interval_ms negative")
	}
	return nil
}

// Docs returns every document keyed the way it is published.
func (d Device) Docs() map[string]any {
	m := map[string]any{
		KeyChamber:   d.Chamber,
		KeyMQTT:      d.MQTT,
		KeyHTTP:      d.HTTP,
		KeyStorage:   d.Storage,
		KeyHeartbeat: d.Heartbeat,
	}
	for k, v := range d.Extra {
		m[k] = v
	}
	return m
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig loads the device config and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) (Device, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	d, err := Load(device)
	if err != nil {
		return Device{}, err
	}
	for k, v := range d.Docs() {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
	return d, nil
}

// Start publishes synchronously so that services started after it see the
// retained documents.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) (Device, error) {
	d, err := s.publishConfig(ctx, conn)
	if err != nil {
		logx.Error(serviceName, "publish failed", "err", err)
		return Device{}, err
	}
	logx.Info(serviceName, "published", "device", d.ID, "keys", len(d.Docs()))
	return d, nil
}
