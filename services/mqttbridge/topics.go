package mqttbridge

import (
	"strings"

	"growctl-go/errcode"
	"growctl-go/types"
	"growctl-go/x/fmtx"
	"growctl-go/x/strconvx"
)

// Status topic leaves under <prefix>/status/.
const (
	StatusTemperature = "temperature"
	StatusHumidity    = "humidity"
	StatusElapsed     = "elapsed"
	StatusHeater      = "heater"
	StatusHumidifier  = "humidifier"
	StatusFan         = "fan"
	StatusLight       = "light"
)

func flag01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func tenths(v int) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmtx.Sprintf("%s%d.%d", sign, v/10, v%10)
}

// EnvStatus renders a reading as %.1f values.
func EnvStatus(v types.EnvValue) map[string]string {
	return map[string]string{
		StatusTemperature: tenths(int(v.DeciC)),
		StatusHumidity:    tenths(int(v.DeciRH)),
	}
}

// ActuatorStatus renders each output as 1 or 0.
func ActuatorStatus(v types.ActuatorValue) map[string]string {
	return map[string]string{
		StatusHeater:     flag01(v.Heater),
		StatusHumidifier: flag01(v.Fogger),
		StatusFan:        flag01(v.Fan),
		StatusLight:      flag01(v.Light),
	}
}

func CycleStatus(v types.CycleValue) map[string]string {
	return map[string]string{StatusElapsed: strconvx.Itoa(int(v.DaysElapsed))}
}

// Command is a decoded <prefix>/set/... message.
type Command struct {
	Cycle    string               // types.CycleStart or CycleStop
	Light    *bool                //
	Settings *types.SettingsPatch //
}

// ParseSet decodes the part of the topic after <prefix>/set/ and the
// payload.
func ParseSet(sub string, payload []byte) (Command, error) {
	p := strings.TrimSpace(string(payload))
	num := func() (*int, error) {
		n, err := strconvx.Atoi(p)
		if err != nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "mqtt.set", Msg: sub + ": not an integer", Err: err}
		}
		return &n, nil
	}
	var (
		c   Command
		err error
		sp  types.SettingsPatch
	)
	switch sub {
	case "state":
		c.Cycle = types.CycleStop
		if p == "1" {
			c.Cycle = types.CycleStart
		}
		return c, nil
	case "light":
		on := p == "1" || strings.EqualFold(p, "on")
		c.Light = &on
		return c, nil
	case "temperature/min":
		sp.TempMin, err = num()
	case "temperature/max":
		sp.TempMax, err = num()
	case "humidity/min":
		sp.HumMin, err = num()
	case "humidity/max":
		sp.HumMax, err = num()
	case "fan/period":
		sp.FanPeriodMin, err = num()
	case "fan/activetime":
		sp.FanActiveMin, err = num()
	default:
		return c, &errcode.E{C: errcode.Unsupported, Op: "mqtt.set", Msg: sub}
	}
	if err != nil {
		return c, err
	}
	c.Settings = &sp
	return c, nil
}
