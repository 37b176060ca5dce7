package control

import (
	"growctl-go/errcode"
	"growctl-go/types"
)

// Settings are the thresholds and schedules the loop runs against. Whole
// degrees and whole percent; times in hours and minutes of day.
type Settings struct {
	TempMin int
	TempMax int
	HumMin  int
	HumMax  int

	LightStartHour int
	LightStopHour  int

	FanActive int // minutes on per period
	FanPeriod int // minutes between fan starts
}

// DefaultSettings match the chamber's factory thresholds.
func DefaultSettings() Settings {
	return Settings{
		TempMin:        27,
		TempMax:        29,
		HumMin:         85,
		HumMax:         90,
		LightStartHour: 1,
		LightStopHour:  20,
		FanActive:      1,
		FanPeriod:      2,
	}
}

// SettingsFrom lifts the control fields out of the chamber config.
func SettingsFrom(c types.ChamberConfig) Settings {
	return Settings{
		TempMin:        c.TempMin,
		TempMax:        c.TempMax,
		HumMin:         c.HumMin,
		HumMax:         c.HumMax,
		LightStartHour: c.LightStartHour,
		LightStopHour:  c.LightStopHour,
		FanActive:      c.FanActiveMin,
		FanPeriod:      c.FanPeriodMin,
	}
}

// Apply returns s with the non-nil fields of p replaced. The result is not
// validated.
func (s Settings) Apply(p types.SettingsPatch) Settings {
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.TempMin, p.TempMin)
	set(&s.TempMax, p.TempMax)
	set(&s.HumMin, p.HumMin)
	set(&s.HumMax, p.HumMax)
	set(&s.FanActive, p.FanActiveMin)
	set(&s.FanPeriod, p.FanPeriodMin)
	return s
}

func (s Settings) Validate() error {
	switch {
	case s.TempMin >= s.TempMax:
		return invalid("temperature min must be below max")
	case s.HumMin >= s.HumMax:
		return invalid("humidity min must be below max")
	case s.HumMin < 0 || s.HumMax > 100:
		return invalid("humidity thresholds outside 0..100")
	case s.LightStartHour < 0 || s.LightStopHour > 24 || s.LightStartHour >= s.LightStopHour:
		return invalid("light hours must satisfy 0 <= start < stop <= 24")
	case s.FanActive <= 0 || s.FanActive >= s.FanPeriod:
		return invalid("fan active time must be positive and shorter than the period")
	case s.FanPeriod > MinutesPerDay:
		return invalid("fan period longer than a day")
	}
	return nil
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.ConfigInvalid, Op: "control.settings", Msg: msg}
}
