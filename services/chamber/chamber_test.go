package chamber

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"growctl-go/bus"
	"growctl-go/drivers/dht22"
	"growctl-go/drivers/ds1307"
	"growctl-go/errcode"
	"growctl-go/services/control"
	"growctl-go/services/cycle"
	"growctl-go/services/datalog"
	"growctl-go/services/input"
	"growctl-go/types"
)

type fakeClock struct {
	mu  sync.Mutex
	r   ds1307.Reading
	err error
}

func (c *fakeClock) Read() (ds1307.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r, c.err
}

func (c *fakeClock) WriteTime(r ds1307.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Hour, c.r.Minute, c.r.Second = r.Hour, r.Minute, r.Second
	return nil
}

func (c *fakeClock) WriteDate(r ds1307.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.r.Year, c.r.Month, c.r.Day, c.r.Weekday = r.Year, r.Month, r.Day, r.Weekday
	return nil
}

func (c *fakeClock) set(h, m uint8) {
	c.mu.Lock()
	c.r.Hour, c.r.Minute = h, m
	c.mu.Unlock()
}

type fakeSensor struct {
	mu  sync.Mutex
	r   dht22.Reading
	err error
}

func (s *fakeSensor) Read() (dht22.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r, s.err
}

func (s *fakeSensor) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type sw struct {
	on     bool
	writes int
}

func (s *sw) Set(on bool) { s.on = on; s.writes++ }

type rig struct {
	svc    *Service
	bus    *bus.Bus
	clock  *fakeClock
	sensor *fakeSensor
	flags  *input.Flags
	fs     *datalog.MemFS
	store  *cycle.MemoryStore
	cyc    *cycle.Manager
	heater sw
	fogger sw
	fan    sw
	light  sw
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		bus:    bus.NewBus(16),
		clock:  &fakeClock{r: ds1307.Reading{Year: 26, Month: 10, Day: 19, Weekday: 2, Hour: 10}},
		sensor: &fakeSensor{r: dht22.Reading{DeciC: 250, DeciRH: 800}},
		flags:  &input.Flags{},
		fs:     &datalog.MemFS{},
		store:  &cycle.MemoryStore{},
	}
	loop, err := control.New(control.DefaultSettings(), control.Outputs{
		Heater: &r.heater, Fogger: &r.fogger, Fan: &r.fan, Light: &r.light,
	}, ClockValue(r.clock.r))
	if err != nil {
		t.Fatal(err)
	}
	r.cyc = cycle.New(r.store)
	r.svc = New(Deps{
		Conn:   r.bus.NewConnection("chamber"),
		Clock:  r.clock,
		Sensor: r.sensor,
		Loop:   loop,
		Cycle:  r.cyc,
		Log:    datalog.New(r.fs),
		Flags:  r.flags,
	})
	return r
}

func (r *rig) tick(t *testing.T) {
	t.Helper()
	if err := r.svc.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

func TestTickInactiveKeepsEverythingOff(t *testing.T) {
	r := newRig(t)
	r.tick(t)
	for name, s := range map[string]*sw{"heater": &r.heater, "fogger": &r.fogger, "fan": &r.fan, "light": &r.light} {
		if s.on || s.writes != 0 {
			t.Errorf("%s on=%v writes=%d", name, s.on, s.writes)
		}
	}
}

func TestHoldStartsCycleAndDrivesActuators(t *testing.T) {
	r := newRig(t)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)

	if !r.cyc.Active() {
		t.Fatal("cycle not started")
	}
	// 25.0°C and 80% are below both lower thresholds; the fan window
	// anchors at the start minute.
	if !r.heater.on || !r.fogger.on || !r.fan.on {
		t.Fatalf("heater=%v fogger=%v fan=%v", r.heater.on, r.fogger.on, r.fan.on)
	}
	if r.light.on {
		t.Fatal("light on while disabled")
	}
	got, ok := r.fs.Contents("261019.dat")
	if !ok || !strings.HasPrefix(got, "TEMPERATURE_MAX:29;TEMPERATURE_MIN:27;\n") {
		t.Fatalf("log header: %q ok=%v", got, ok)
	}
	if r.store.Saves() == 0 {
		t.Fatal("cycle record not persisted")
	}

	r.flags.Set(input.HoldElapsed)
	r.tick(t)
	if r.cyc.Active() {
		t.Fatal("second hold did not stop the cycle")
	}
	if r.heater.on || r.fogger.on || r.fan.on {
		t.Fatal("actuators left on after stop")
	}
	if r.svc.d.Log.Open() {
		t.Fatal("log left open")
	}
}

func TestLightFlag(t *testing.T) {
	r := newRig(t)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)

	r.flags.Set(input.LightPressed)
	r.tick(t)
	if !r.light.on {
		t.Fatal("light off inside 1..20 window after enable")
	}
	r.flags.Set(input.LightPressed)
	r.tick(t)
	if r.light.on || r.light.writes != 2 {
		t.Fatalf("light on=%v writes=%d", r.light.on, r.light.writes)
	}
}

func TestSensorFailureKeepsLastReading(t *testing.T) {
	r := newRig(t)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)

	r.sensor.fail(errcode.SensorProtocol)
	r.tick(t)
	st := r.svc.Status()
	if !st.Env.Stale || st.Env.DeciC != 250 || st.Env.DeciRH != 800 {
		t.Fatalf("env after failure: %+v", st.Env)
	}
	if !r.heater.on {
		t.Fatal("heater dropped on a failed read")
	}

	r.sensor.fail(nil)
	r.tick(t)
	if r.svc.Status().Env.Stale {
		t.Fatal("stale after recovery")
	}
}

func TestNoReadingSkipsControlWhileActive(t *testing.T) {
	r := newRig(t)
	r.sensor.fail(errcode.Timeout)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)
	if r.heater.writes != 0 || r.fogger.writes != 0 {
		t.Fatal("actuators driven without a reading")
	}
}

func TestClockNeverReadFailsTick(t *testing.T) {
	r := newRig(t)
	r.clock.err = errcode.NACK
	if err := r.svc.Tick(); !errors.Is(err, errcode.NACK) {
		t.Fatalf("Tick = %v, want nack", err)
	}

	r.clock.err = nil
	r.tick(t)
	r.clock.err = errcode.NACK
	if err := r.svc.Tick(); err != nil {
		t.Fatalf("Tick after a good read = %v", err)
	}
}

func TestSmooth(t *testing.T) {
	prev := dht22.Reading{DeciC: 200, DeciRH: 500}
	next := dht22.Reading{DeciC: 300, DeciRH: 600}
	cases := []struct {
		pct  int
		want dht22.Reading
	}{
		{40, dht22.Reading{DeciC: 240, DeciRH: 540}},
		{0, next},
		{100, next},
		{50, dht22.Reading{DeciC: 250, DeciRH: 550}},
	}
	for _, tc := range cases {
		if got := Smooth(prev, next, tc.pct); got != tc.want {
			t.Errorf("pct=%d got %+v want %+v", tc.pct, got, tc.want)
		}
	}
}

func TestSmoothSettlesOnSteadyInput(t *testing.T) {
	cases := []struct {
		from, to dht22.Reading
	}{
		{dht22.Reading{DeciC: 250, DeciRH: 850}, dht22.Reading{DeciC: 280, DeciRH: 900}},
		{dht22.Reading{DeciC: 300, DeciRH: 950}, dht22.Reading{DeciC: 271, DeciRH: 849}},
		{dht22.Reading{DeciC: -50, DeciRH: 0}, dht22.Reading{DeciC: -120, DeciRH: 1000}},
	}
	for _, tc := range cases {
		for _, pct := range []int{1, 10, 40, 99} {
			got := tc.from
			for i := 0; i < 1000; i++ {
				got = Smooth(got, tc.to, pct)
			}
			if got != tc.to {
				t.Errorf("pct=%d from %+v: settled at %+v, want %+v", pct, tc.from, got, tc.to)
			}
		}
	}

	// 90.0 %RH must read as 90 so the fogger reaches its off threshold.
	got := dht22.Reading{DeciRH: 850}
	for i := 0; i < 50; i++ {
		got = Smooth(got, dht22.Reading{DeciRH: 900}, 40)
	}
	if got.WholeRH() != 90 {
		t.Fatalf("WholeRH = %d after a steady 90.0", got.WholeRH())
	}
}

func TestFirstClockReadAnchorsFan(t *testing.T) {
	r := newRig(t)
	// Boot with a dead clock leaves the loop anchored at midnight.
	r.svc.d.Loop.Reset(types.ClockValue{})
	r.clock.err = errcode.NACK
	r.svc.Boot()

	r.clock.err = nil
	r.clock.set(15, 7)
	r.tick(t)
	if h, m := r.svc.d.Loop.Window().StartHM(); h != 15 || m != 7 {
		t.Fatalf("fan window = %02d:%02d, want 15:07", h, m)
	}

	// Later reads keep the schedule: one minute on it steps one period.
	r.clock.set(15, 8)
	r.tick(t)
	if h, m := r.svc.d.Loop.Window().StartHM(); h != 15 || m != 9 {
		t.Fatalf("fan window = %02d:%02d, want 15:09", h, m)
	}
}

func TestHourCrossingWritesOneLine(t *testing.T) {
	r := newRig(t)
	r.clock.set(10, 59)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)

	r.clock.set(11, 0)
	r.tick(t)
	r.clock.set(11, 1)
	r.tick(t)

	got, _ := r.fs.Contents("261019.dat")
	if n := strings.Count(got, "26/10/19;0\r\n"); n != 1 {
		t.Fatalf("lines=%d in %q", n, got)
	}
	if cp := r.cyc.Record().Checkpoint; cp != 11 {
		t.Fatalf("checkpoint=%d", cp)
	}
}

func TestDayRollover(t *testing.T) {
	r := newRig(t)
	r.clock.set(23, 59)
	r.flags.Set(input.HoldElapsed)
	r.tick(t)

	r.clock.mu.Lock()
	r.clock.r.Day, r.clock.r.Hour, r.clock.r.Minute = 20, 0, 0
	r.clock.mu.Unlock()
	r.tick(t)

	if d := r.cyc.Record().DaysElapsed; d != 1 {
		t.Fatalf("days=%d", d)
	}
	// Still written to the file named by the start date.
	got, _ := r.fs.Contents("261019.dat")
	if !strings.Contains(got, "26/10/20;0\r\n") {
		t.Fatalf("log=%q", got)
	}
}

func TestBootResumesCycle(t *testing.T) {
	r := newRig(t)
	_ = r.store.Save(cycle.Record{Active: true, Day: 18, Month: 10, Year: 26, DaysElapsed: 1, Checkpoint: 9})
	r.svc.Boot()
	if !r.cyc.Active() || !r.svc.d.Log.Open() || r.svc.d.Log.Name() != "261018.dat" {
		t.Fatalf("active=%v log=%q", r.cyc.Active(), r.svc.d.Log.Name())
	}
}

func TestCommands(t *testing.T) {
	r := newRig(t)
	r.svc.Boot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.svc.Run(ctx, nil)
		close(done)
	}()

	c := Client{Conn: r.bus.NewConnection("test")}
	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()

	if err := c.Cycle(rctx, types.CycleStart); err != nil {
		t.Fatalf("cycle start: %v", err)
	}
	if err := c.Light(rctx, true); err != nil {
		t.Fatalf("light: %v", err)
	}
	st, err := c.Status(rctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Cycle.Active || !st.Actuators.LightEnabled {
		t.Fatalf("status %+v", st)
	}

	bad := 35
	if err := c.Settings(rctx, types.SettingsPatch{TempMin: &bad}); err == nil {
		t.Fatal("inverted temperature band accepted")
	}
	lo := 20
	if err := c.Settings(rctx, types.SettingsPatch{TempMin: &lo}); err != nil {
		t.Fatalf("settings: %v", err)
	}

	err = c.SetClock(rctx, types.ClockSet{
		Clock:   types.ClockValue{Year: 27, Month: 1, Day: 2, Hour: 3, Minute: 4},
		SetDate: true,
		SetTime: true,
	})
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	if st, _ = c.Status(rctx); st.Settings.TempMin != 20 || st.Clock.Hour != 3 || st.Clock.Year != 27 {
		t.Fatalf("status after set: %+v", st)
	}
	r.clock.mu.Lock()
	wd := r.clock.r.Weekday
	r.clock.mu.Unlock()
	if wd != 7 { // 2027-01-02 is a Saturday
		t.Fatalf("weekday=%d", wd)
	}

	if err := c.Cycle(rctx, "pause"); err == nil {
		t.Fatal("unknown action accepted")
	}
	m, err := c.Conn.RequestWait(rctx, c.Conn.NewMessage(bus.T("chamber", "cmd", "reboot"), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if rep, _ := m.Payload.(types.Reply); rep.OK || !strings.Contains(rep.Error, "unsupported") {
		t.Fatalf("reply %+v", m.Payload)
	}

	// Retained state reaches late subscribers.
	sub := c.Conn.Subscribe(TopicCycle)
	select {
	case m := <-sub.Channel():
		if v, _ := m.Payload.(types.CycleValue); !v.Active {
			t.Fatalf("retained cycle %+v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no retained cycle state")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
