// Package app assembles a chamber from a board description: clock, LCD,
// sensor, outputs and buttons, then runs it with its side services.
package app

import (
	"context"
	"time"

	"growctl-go/bus"
	"growctl-go/drivers/dht22"
	"growctl-go/drivers/ds1307"
	"growctl-go/drivers/twi"
	"growctl-go/errcode"
	"growctl-go/services/chamber"
	"growctl-go/services/console"
	"growctl-go/services/control"
	"growctl-go/services/cycle"
	"growctl-go/services/datalog"
	"growctl-go/services/display"
	"growctl-go/services/hal"
	"growctl-go/services/hal/gpioirq"
	"growctl-go/services/heartbeat"
	"growctl-go/services/input"
	"growctl-go/types"
	"growctl-go/x/logx"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

const svc = "app"

// Version is shown on the splash screen.
var Version = "1.0"

// PinMap names the board's GPIO numbers. Negative means not fitted.
type PinMap struct {
	Heater, Fogger, Fan, Light int
	LED                        int
	MenuButton, LightButton    int
	SQW                        int // clock 1 Hz output; ticks fall back to a timer without it
	ActiveLow                  bool
}

// Board is everything platform specific.
type Board struct {
	I2C     drivers.I2C
	Pins    hal.PinFactory
	Map     PinMap
	DHTLine dht22.Line
	DHT     dht22.Config

	// Store persists the cycle record. Nil keeps it in the clock chip's RAM.
	Store cycle.Store
	// FS receives the cycle log. Nil disables it.
	FS      datalog.FS
	History chamber.History
	Console hal.SerialPort

	// PollEvery samples buttons on boards without pin interrupts.
	PollEvery time.Duration
}

type App struct {
	Bus     *bus.Bus
	Clock   *ds1307.Device
	Chamber *chamber.Service
	Flags   *input.Flags
	Buttons *input.Buttons
	Menu    *display.Menu

	id    string
	cfg   types.ChamberConfig
	board Board
	led   *hal.Output
}

// Build wires the chamber. Only an invalid configuration or a missing
// output pin is fatal; an absent LCD or clock is logged and the chamber runs
// without it.
func Build(b *bus.Bus, id string, cfg types.ChamberConfig, board Board) (*App, error) {
	a := &App{Bus: b, id: id, cfg: cfg, board: board, Flags: &input.Flags{}}

	a.Clock = ds1307.New(board.I2C)
	if err := a.Clock.Start(); err != nil {
		logx.Warn(svc, "clock start failed", "err", err)
	}
	if err := a.Clock.SetHourMode(ds1307.Mode24); err != nil {
		logx.Warn(svc, "clock hour mode", "err", err)
	}
	if err := a.Clock.WriteControl(ds1307.NewControl(false, true, ds1307.Rate1Hz)); err != nil {
		logx.Warn(svc, "clock square wave", "err", err)
	}

	lcd := display.NewLCD(board.I2C, cfg.LCDAddr)
	if err := lcd.Configure(); err != nil {
		logx.Warn(svc, "lcd not found", "err", err)
	} else {
		a.Menu = display.New(lcd, cfg.MenuTimeoutTicks)
		if err := a.Menu.Splash(Version); err != nil {
			logx.Warn(svc, "splash", "err", err)
		}
	}

	out, err := a.outputs()
	if err != nil {
		return nil, err
	}
	r, err := a.Clock.Read()
	if err != nil {
		logx.Warn(svc, "clock read failed", "err", err)
	}
	loop, err := control.New(control.SettingsFrom(cfg), out, chamber.ClockValue(r))
	if err != nil {
		return nil, err
	}

	store := board.Store
	if store == nil {
		store = cycle.RAMStore{RAM: a.Clock}
	}
	dhtCfg := board.DHT
	if dhtCfg.MinInterval == 0 && cfg.SensorPeriod > 0 {
		dhtCfg.MinInterval = time.Duration(cfg.SensorPeriod) * time.Second
	}
	a.Buttons = input.NewButtons(a.Flags, time.Duration(cfg.HoldTicks)*time.Second)
	a.Chamber = chamber.New(chamber.Deps{
		Conn:         b.NewConnection("chamber"),
		Clock:        a.Clock,
		Sensor:       dht22.New(board.DHTLine, dhtCfg),
		Loop:         loop,
		Cycle:        cycle.New(store),
		Log:          datalog.New(board.FS),
		Menu:         a.Menu,
		Flags:        a.Flags,
		History:      board.History,
		SmoothingPct: cfg.SmoothingPct,
	})
	return a, nil
}

func (a *App) output(name string, n int) (control.Switch, error) {
	if n < 0 {
		return nil, nil
	}
	pin, ok := a.board.Pins.ByNumber(n)
	if !ok {
		return nil, &errcode.E{C: errcode.ConfigInvalid, Op: "app.output", Msg: name}
	}
	o, err := hal.NewOutput(name, pin, a.board.Map.ActiveLow)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (a *App) outputs() (control.Outputs, error) {
	m := a.board.Map
	var out control.Outputs
	var err error
	if out.Heater, err = a.output("heater", m.Heater); err != nil {
		return out, err
	}
	if out.Fogger, err = a.output("fogger", m.Fogger); err != nil {
		return out, err
	}
	if out.Fan, err = a.output("fan", m.Fan); err != nil {
		return out, err
	}
	if out.Light, err = a.output("light", m.Light); err != nil {
		return out, err
	}
	if m.LED >= 0 {
		if pin, ok := a.board.Pins.ByNumber(m.LED); ok {
			a.led, _ = hal.NewOutput("led", pin, false)
		}
	}
	return out, nil
}

// Run starts inputs, the heartbeat and the console, boots the chamber and
// ticks it until ctx ends.
func (a *App) Run(ctx context.Context) {
	ticks := make(chan struct{}, 1)

	if a.led != nil {
		(&heartbeat.Service{LED: a.led}).Start(ctx, a.Bus.NewConnection("heartbeat"))
	}
	if a.board.Console != nil {
		c := console.New(a.board.Console, chamber.Client{Conn: a.Bus.NewConnection("console")})
		go func() {
			if err := c.Run(ctx); err != nil {
				logx.Warn(svc, "console stopped", "err", err)
			}
		}()
	}

	sqw := a.startInputs(ctx, ticks)
	if !sqw {
		go func() {
			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					select {
					case ticks <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	a.Chamber.Boot()
	logx.Info(svc, "running", "device", a.id, "sqw", sqw)
	a.Chamber.Run(ctx, ticks)
}

// startInputs routes buttons and the square wave through the IRQ worker,
// or polls the buttons when the pins have no interrupts. It reports
// whether the square wave drives the tick.
func (a *App) startInputs(ctx context.Context, ticks chan<- struct{}) bool {
	m := a.board.Map
	w := gpioirq.New(16, 16)
	var polled map[string]hal.GPIOPin
	sqw := false

	register := func(name string, n int, edge hal.Edge, debounce time.Duration, invert bool) {
		if n < 0 {
			return
		}
		pin, ok := a.board.Pins.ByNumber(n)
		if !ok {
			logx.Warn(svc, "no such pin", "input", name, "pin", n)
			return
		}
		_ = pin.ConfigureInput(hal.PullUp)
		irq, err := hal.AsIRQ(pin)
		if err == nil {
			_, err = w.RegisterInput(name, irq, edge, debounce, invert)
		}
		if err == nil {
			if name == input.SquareWave {
				sqw = true
			}
			return
		}
		if name == input.SquareWave {
			return
		}
		if polled == nil {
			polled = map[string]hal.GPIOPin{}
		}
		polled[name] = pin
	}
	register(input.MenuButton, m.MenuButton, hal.EdgeBoth, 20*time.Millisecond, true)
	register(input.LightButton, m.LightButton, hal.EdgeBoth, 20*time.Millisecond, true)
	register(input.SquareWave, m.SQW, hal.EdgeFalling, 0, false)

	w.Start(ctx)
	go a.Buttons.Run(ctx, w.Events(), ticks)

	if polled != nil {
		every := a.board.PollEvery
		if every <= 0 {
			every = 20 * time.Millisecond
		}
		go input.NewPoller(a.Buttons, polled).Run(ctx, every)
	}
	return sqw
}

// TWIConfig maps the chamber's bus settings onto the engine.
func TWIConfig(c types.ChamberConfig) twi.Config {
	return twi.Config{
		SCL:        physic.Frequency(c.BusSCLHz) * physic.Hertz,
		PollBudget: time.Duration(c.BusPollMs) * time.Millisecond,
	}
}
