// Package control runs the chamber's actuator rules once per tick: heater
// and fogger hysteresis, the fresh-air fan duty cycle, and the light window.
// It holds no clock or sensor of its own; callers pass both in.
package control

import (
	"growctl-go/drivers/dht22"
	"growctl-go/types"
	"growctl-go/x/mathx"
)

// Switch is a physical on/off output. hal.Output satisfies it.
type Switch interface {
	Set(on bool)
}

// Outputs binds the four actuators. Nil entries are skipped.
type Outputs struct {
	Heater Switch
	Fogger Switch
	Fan    Switch
	Light  Switch
}

type actuator int

const (
	heater actuator = iota
	fogger
	fan
	light
	numActuators
)

// State is the loop's logical view after a tick.
type State struct {
	Heater       bool
	Fogger       bool
	Fan          bool
	LightEnabled bool
	LightActive  bool

	// Fan window projected to wall-clock fields.
	FanStartHour   uint8
	FanStartMinute uint8
	FanStopHour    uint8
	FanStopMinute  uint8
}

func (s State) Value() types.ActuatorValue {
	return types.ActuatorValue{
		Heater:       s.Heater,
		Fogger:       s.Fogger,
		Fan:          s.Fan,
		Light:        s.LightActive,
		LightEnabled: s.LightEnabled,
		FanWindow: types.FanWindowValue{
			StartHour:   s.FanStartHour,
			StartMinute: s.FanStartMinute,
			StopHour:    s.FanStopHour,
			StopMinute:  s.FanStopMinute,
		},
	}
}

// Loop is not safe for concurrent use; the tick goroutine owns it.
type Loop struct {
	set Settings
	out [numActuators]Switch

	on      [numActuators]bool
	applied [numActuators]bool // last level written to each output

	lightEnabled bool
	win          Window

	// into is minutes since the current fan window opened; negative while
	// waiting for the next one. Kept in [Active-Period, Active).
	into int
	last int // minute of day seen by the previous tick
}

// New validates s and anchors the fan window at now. Outputs are assumed
// off; the first write happens on the first transition. The light starts
// disabled.
func New(s Settings, out Outputs, now types.ClockValue) (*Loop, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	l := &Loop{
		set: s,
		out: [numActuators]Switch{out.Heater, out.Fogger, out.Fan, out.Light},
	}
	l.Reset(now)
	return l, nil
}

// Reset re-anchors the fan window at now and turns the fan off.
func (l *Loop) Reset(now types.ClockValue) {
	l.win = NewWindow(int(now.Hour), int(now.Minute), l.set.FanActive)
	l.into = 0
	l.last = now.MinuteOfDay()
	l.on[fan] = false
	l.apply()
}

func (l *Loop) Settings() Settings { return l.set }

// SetSettings swaps thresholds at runtime. The fan window keeps its anchor
// and takes the new active time.
func (l *Loop) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	l.set = s
	l.win.Active = s.FanActive
	return nil
}

// SetLightEnabled takes effect on the next tick.
func (l *Loop) SetLightEnabled(on bool) { l.lightEnabled = on }

func (l *Loop) LightEnabled() bool { return l.lightEnabled }

func (l *Loop) Window() Window { return l.win }

// Tick evaluates every rule against now and env. When active is false all
// four actuators are forced off; the fan schedule keeps time either way.
func (l *Loop) Tick(now types.ClockValue, env dht22.Reading, active bool) State {
	fanDue := l.schedule(now.MinuteOfDay())
	if !active {
		for i := range l.on {
			l.on[i] = false
		}
		l.apply()
		return l.State()
	}

	t, h := env.WholeC(), env.WholeRH()
	l.on[heater] = hysteresis(l.on[heater], t, l.set.TempMin, l.set.TempMax)
	l.on[fogger] = hysteresis(l.on[fogger], h, l.set.HumMin, l.set.HumMax)
	l.on[fan] = fanDue

	hr := int(now.Hour)
	l.on[light] = l.lightEnabled && hr >= l.set.LightStartHour && hr < l.set.LightStopHour

	l.apply()
	return l.State()
}

// schedule moves the fan window forward to minute-of-day m and reports
// whether the fan is due. Time only runs forward: a clock set back reads
// as the rest of a day passing. Windows skipped by a jump are dropped in
// whole periods, so after any jump the fan is either inside a window or
// less than one period from the next, and the start stays on the
// anchor + n*period grid.
func (l *Loop) schedule(m int) bool {
	l.into += mathx.Mod(m-l.last, MinutesPerDay)
	l.last = m
	for l.into >= l.set.FanActive {
		l.into -= l.set.FanPeriod
	}
	for l.into < l.set.FanActive-l.set.FanPeriod {
		l.into += l.set.FanPeriod
	}
	l.win.Start = mathx.Mod(m-l.into, MinutesPerDay)
	l.win.Active = l.set.FanActive
	return l.into >= 0
}

// hysteresis turns on at or below lo and off at or above hi.
func hysteresis(on bool, v, lo, hi int) bool {
	switch {
	case !on && v <= lo:
		return true
	case on && v >= hi:
		return false
	}
	return on
}

func (l *Loop) apply() {
	for i, sw := range l.out {
		if l.on[i] == l.applied[i] {
			continue
		}
		if sw != nil {
			sw.Set(l.on[i])
		}
		l.applied[i] = l.on[i]
	}
}

func (l *Loop) State() State {
	sh, sm := l.win.StartHM()
	eh, em := l.win.StopHM()
	return State{
		Heater:         l.on[heater],
		Fogger:         l.on[fogger],
		Fan:            l.on[fan],
		LightEnabled:   l.lightEnabled,
		LightActive:    l.on[light],
		FanStartHour:   sh,
		FanStartMinute: sm,
		FanStopHour:    eh,
		FanStopMinute:  em,
	}
}
