// Package chamber runs the tick: read the clock and sensor, drive the
// actuators, keep the cycle and its log current, publish state and redraw
// the menu. One goroutine owns everything here.
package chamber

import (
	"context"
	"time"

	"growctl-go/bus"
	"growctl-go/drivers/dht22"
	"growctl-go/drivers/ds1307"
	"growctl-go/errcode"
	"growctl-go/services/control"
	"growctl-go/services/cycle"
	"growctl-go/services/datalog"
	"growctl-go/services/display"
	"growctl-go/services/input"
	"growctl-go/types"
	"growctl-go/x/logx"
	"growctl-go/x/mathx"
	"growctl-go/x/timex"
)

const svc = "chamber"

// Clock is the real-time clock. ds1307.Device satisfies it.
type Clock interface {
	Read() (ds1307.Reading, error)
	WriteTime(ds1307.Reading) error
	WriteDate(ds1307.Reading) error
}

// Sensor is the temperature and humidity source. dht22.Device satisfies it.
type Sensor interface {
	Read() (dht22.Reading, error)
}

// History receives one sample per minute. Optional.
type History interface {
	Record(ts time.Time, env types.EnvValue, act types.ActuatorValue) error
}

// Deps are the collaborators. Menu, Flags, Log and History may be nil.
type Deps struct {
	Conn    *bus.Connection
	Clock   Clock
	Sensor  Sensor
	Loop    *control.Loop
	Cycle   *cycle.Manager
	Log     *datalog.Writer
	Menu    *display.Menu
	Flags   *input.Flags
	History History

	// SmoothingPct weights a new reading, 1..99; other values disable
	// smoothing.
	SmoothingPct int
}

type Service struct {
	d Deps

	now      types.ClockValue
	haveNow  bool
	anchored bool // fan schedule anchored at a real clock reading

	env     dht22.Reading
	haveEnv bool
	stale   bool

	act        control.State
	lastMinute int
}

func New(d Deps) *Service {
	if d.Log == nil {
		d.Log = datalog.New(nil)
	}
	return &Service{d: d, lastMinute: -1}
}

// Boot restores a cycle that was running before a reset and anchors the
// control loop at the current time. Storage and clock errors are logged;
// the chamber runs without them.
func (s *Service) Boot() {
	rec, err := s.d.Cycle.Restore()
	if err != nil {
		logx.Warn(svc, "cycle restore failed", "err", err)
	}
	if rec.Active {
		if err := s.d.Log.Resume(rec); err != nil {
			logx.Warn(svc, "log resume failed", "err", err)
		}
		logx.Info(svc, "cycle resumed", "start", datalog.FileName(rec.Year, rec.Month, rec.Day), "days", rec.DaysElapsed)
	}
	if err := s.readClock(); err != nil {
		logx.Warn(svc, "clock read failed", "err", err)
		return
	}
	s.d.Loop.Reset(s.now)
	s.anchored = true
	s.d.Cycle.Observe(s.now)
}

// Run ticks on every receive from ticks and serves commands until ctx
// ends.
func (s *Service) Run(ctx context.Context, ticks <-chan struct{}) {
	cmds := s.d.Conn.Subscribe(TopicCmd)
	defer s.d.Conn.Unsubscribe(cmds)

	for {
		select {
		case <-ctx.Done():
			if err := s.d.Log.End(); err != nil {
				logx.Warn(svc, "log close failed", "err", err)
			}
			return
		case <-ticks:
			if err := s.Tick(); err != nil {
				logx.Warn(svc, "tick", "err", err)
			}
		case msg, ok := <-cmds.Channel():
			if !ok {
				return
			}
			s.handle(msg)
		}
	}
}

// Tick runs one control iteration. Only a clock that has never been read
// stops it; every other failure is logged and the tick carries on.
func (s *Service) Tick() error {
	if err := s.readClock(); err != nil {
		if !s.haveNow {
			return err
		}
		logx.Warn(svc, "clock read failed, reusing last time", "err", err)
	} else if !s.anchored {
		s.d.Loop.Reset(s.now)
		s.anchored = true
	}

	s.applyFlags()
	s.readSensor()

	if s.haveEnv {
		s.act = s.d.Loop.Tick(s.now, s.env, s.d.Cycle.Active())
	} else if !s.d.Cycle.Active() {
		s.act = s.d.Loop.Tick(s.now, s.env, false)
	}

	ev, err := s.d.Cycle.Observe(s.now)
	if err != nil {
		logx.Warn(svc, "cycle save failed", "err", err)
	}
	if ev.HourCrossed && s.d.Cycle.NeedsLog(s.now.Hour) {
		if err := s.d.Log.Append(s.now, s.d.Loop.LightEnabled()); err != nil {
			logx.Warn(svc, "log write failed", "err", err)
		}
		if err := s.d.Cycle.Checkpoint(s.now.Hour); err != nil {
			logx.Warn(svc, "checkpoint save failed", "err", err)
		}
	}

	s.publish()
	s.record()

	if s.d.Menu != nil {
		if err := s.d.Menu.Tick(s.view()); err != nil {
			logx.Warn(svc, "display", "err", err)
		}
	}
	return nil
}

func (s *Service) readClock() error {
	r, err := s.d.Clock.Read()
	if err != nil {
		return err
	}
	s.now = ClockValue(r)
	s.haveNow = true
	return nil
}

// readSensor keeps the previous reading on failure.
func (s *Service) readSensor() {
	r, err := s.d.Sensor.Read()
	if err != nil {
		s.stale = s.haveEnv
		logx.Debug(svc, "sensor read failed", "err", err, "code", string(errcode.Of(err)))
		return
	}
	s.stale = false
	if !s.haveEnv {
		s.env, s.haveEnv = r, true
		return
	}
	s.env = Smooth(s.env, r, s.d.SmoothingPct)
}

// Smooth moves prev toward next by pct percent, in tenths. Steps round
// away from zero so a steady input is reached exactly.
func Smooth(prev, next dht22.Reading, pct int) dht22.Reading {
	if pct <= 0 || pct >= 100 {
		return next
	}
	c := int(prev.DeciC) + smoothStep(int(next.DeciC)-int(prev.DeciC), pct)
	h := int(prev.DeciRH) + smoothStep(int(next.DeciRH)-int(prev.DeciRH), pct)
	return dht22.Reading{DeciC: int16(c), DeciRH: uint16(mathx.Clamp(h, 0, 1000))}
}

func smoothStep(d, pct int) int {
	n := (mathx.Abs(d)*pct + 99) / 100
	if d < 0 {
		return -n
	}
	return n
}

func (s *Service) applyFlags() {
	if s.d.Flags == nil {
		return
	}
	f := s.d.Flags.Take()
	if f.Has(input.LightPressed) {
		s.d.Loop.SetLightEnabled(!s.d.Loop.LightEnabled())
	}
	if f.Has(input.HoldElapsed) {
		s.setCycle(!s.d.Cycle.Active())
	}
	if s.d.Menu == nil {
		return
	}
	if f.Has(input.MenuPressed) {
		s.d.Menu.NextPage()
	}
	if f.Has(input.Activity) {
		if err := s.d.Menu.Wake(); err != nil {
			logx.Warn(svc, "display wake", "err", err)
		}
	}
}

// setCycle starts or stops the cycle. Storage failures are logged; the
// in-memory state always follows the request.
func (s *Service) setCycle(on bool) {
	if on == s.d.Cycle.Active() {
		return
	}
	if on {
		if err := s.d.Cycle.Start(s.now); err != nil {
			logx.Warn(svc, "cycle save failed", "err", err)
		}
		if err := s.d.Log.Begin(s.now, s.d.Loop.Settings()); err != nil {
			logx.Warn(svc, "log open failed", "err", err)
		}
		s.d.Loop.Reset(s.now)
		s.anchored = true
		logx.Info(svc, "cycle started", "log", s.d.Log.Name())
		return
	}
	if err := s.d.Cycle.Stop(); err != nil {
		logx.Warn(svc, "cycle save failed", "err", err)
	}
	if err := s.d.Log.End(); err != nil {
		logx.Warn(svc, "log close failed", "err", err)
	}
	s.act = s.d.Loop.Tick(s.now, s.env, false)
	logx.Info(svc, "cycle stopped")
}

func (s *Service) envValue() types.EnvValue {
	return types.EnvValue{DeciC: s.env.DeciC, DeciRH: s.env.DeciRH, Stale: s.stale, TS: timex.NowMs()}
}

func (s *Service) publish() {
	c := s.d.Conn
	if s.haveEnv {
		c.Publish(c.NewMessage(TopicEnv, s.envValue(), true))
	}
	c.Publish(c.NewMessage(TopicActuators, s.act.Value(), true))
	c.Publish(c.NewMessage(TopicCycle, s.d.Cycle.Record().Value(), true))
	c.Publish(c.NewMessage(TopicClock, s.now, true))
}

func (s *Service) record() {
	if s.d.History == nil || !s.haveEnv {
		return
	}
	m := s.now.MinuteOfDay()
	if m == s.lastMinute {
		return
	}
	s.lastMinute = m
	if err := s.d.History.Record(time.Now(), s.envValue(), s.act.Value()); err != nil {
		logx.Warn(svc, "history write failed", "err", err)
	}
}

func (s *Service) view() display.View {
	rec := s.d.Cycle.Record()
	return display.View{
		Active:       rec.Active,
		DeciC:        s.env.DeciC,
		DeciRH:       s.env.DeciRH,
		LightEnabled: s.d.Loop.LightEnabled(),
		DaysElapsed:  rec.DaysElapsed,
	}
}

// Status is a snapshot for the status command.
func (s *Service) Status() types.StatusValue {
	st := types.StatusValue{
		Actuators: s.act.Value(),
		Cycle:     s.d.Cycle.Record().Value(),
		Clock:     s.now,
		Settings:  SettingsConfig(s.d.Loop.Settings()),
	}
	if s.haveEnv {
		st.Env = s.envValue()
	}
	return st
}

// ClockValue converts a device reading.
func ClockValue(r ds1307.Reading) types.ClockValue {
	return types.ClockValue{
		Year: r.Year, Month: r.Month, Day: r.Day, Weekday: r.Weekday,
		Hour: r.Hour, Minute: r.Minute, Second: r.Second,
	}
}

// clockReading fills in the weekday (Sunday = 1) from the date.
func clockReading(v types.ClockValue) ds1307.Reading {
	wd := uint8(time.Date(2000+int(v.Year), time.Month(v.Month), int(v.Day), 0, 0, 0, 0, time.UTC).Weekday()) + 1
	return ds1307.Reading{
		Year: v.Year, Month: v.Month, Day: v.Day, Weekday: wd,
		Hour: v.Hour, Minute: v.Minute, Second: v.Second,
	}
}

// SettingsConfig projects control settings into the config document shape.
func SettingsConfig(s control.Settings) types.ChamberConfig {
	return types.ChamberConfig{
		TempMin:        s.TempMin,
		TempMax:        s.TempMax,
		HumMin:         s.HumMin,
		HumMax:         s.HumMax,
		LightStartHour: s.LightStartHour,
		LightStopHour:  s.LightStopHour,
		FanActiveMin:   s.FanActive,
		FanPeriodMin:   s.FanPeriod,
	}
}
