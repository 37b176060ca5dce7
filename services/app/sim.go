//go:build !(rp2040 || rp2350 || avr)

package app

import (
	"context"
	"time"

	"growctl-go/drivers/dht22"
	"growctl-go/drivers/dht22/dht22sim"
	"growctl-go/drivers/ds1307"
	"growctl-go/drivers/twi"
	"growctl-go/drivers/twi/twisim"
	"growctl-go/services/display"
	"growctl-go/services/hal"
	"growctl-go/services/input"
	"growctl-go/types"
	"growctl-go/x/mathx"
)

// SimPins is the pin map of the simulated board.
var SimPins = PinMap{
	Heater: 2, Fogger: 3, Fan: 4, Light: 5,
	LED:        25,
	MenuButton: 6, LightButton: 7,
	SQW: -1,
}

// Sim is a host-only board: the transaction engine over a simulated
// controller carrying a DS1307 and a PCF8574-backed LCD, a virtual DHT22
// and fake pins.
type Sim struct {
	Board Board
	Ctrl  *twisim.Controller
	RTC   *twisim.RTC
	LCD   *twisim.LCD
	Line  *dht22sim.Line
	Pins  *hal.HostPinFactory
}

// Ambient conditions the plant model drifts back to.
var simAmbient = dht22.Reading{DeciC: 220, DeciRH: 600}

func NewSim(c types.ChamberConfig) (*Sim, error) {
	s := &Sim{
		Ctrl: twisim.New(),
		RTC:  twisim.NewRTC(nil),
		LCD:  twisim.NewLCD(),
		Line: dht22sim.New(simAmbient),
		Pins: &hal.HostPinFactory{},
	}
	s.RTC.Set(time.Now())
	s.Ctrl.Attach(ds1307.Address, s.RTC)
	addr := c.LCDAddr
	if addr == 0 {
		addr = display.LCDAddress
	}
	s.Ctrl.Attach(addr, s.LCD)

	cfg := TWIConfig(c)
	// The simulated controller runs on a goroutine; give it room.
	cfg.PollBudget = 500 * time.Millisecond
	eng, err := twi.New(s.Ctrl, cfg)
	if err != nil {
		s.Ctrl.Close()
		return nil, err
	}
	s.Board = Board{
		I2C:     eng,
		Pins:    s.Pins,
		Map:     SimPins,
		DHTLine: s.Line,
		DHT:     dht22.Config{LoopsPerMicro: 1},
	}
	return s, nil
}

func (s *Sim) Close() { s.Ctrl.Close() }

// on reads an output pin of the simulated board.
func (s *Sim) on(n int) bool { return s.Pins.Fake(n).Get() != s.Board.Map.ActiveLow }

// Step moves the simulated reading one step: the heater adds heat, the
// fogger adds moisture, the fan exchanges air with the room, and both
// drift toward ambient otherwise.
func (s *Sim) Step() dht22.Reading {
	r := s.Line.Reading()
	c, h := int(r.DeciC), int(r.DeciRH)
	m := s.Board.Map

	if s.on(m.Heater) {
		c += 3
	} else if c > int(simAmbient.DeciC) {
		c--
	}
	if s.on(m.Fogger) {
		h += 8
	} else if h > int(simAmbient.DeciRH) {
		h -= 2
	}
	if s.on(m.Fan) {
		c -= mathx.Clamp((c-int(simAmbient.DeciC))/10, 0, 5)
		h -= mathx.Clamp((h-int(simAmbient.DeciRH))/10, 0, 20)
	}
	r = dht22.Reading{DeciC: int16(mathx.Clamp(c, -400, 800)), DeciRH: uint16(mathx.Clamp(h, 0, 1000))}
	s.Line.Set(r)
	return r
}

// RunPlant steps the model every interval until ctx ends.
func (s *Sim) RunPlant(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Step()
		}
	}
}

// Press holds a front-panel button down for d. Buttons are active low.
func (s *Sim) Press(name string, d time.Duration) {
	n := s.Board.Map.MenuButton
	if name == input.LightButton {
		n = s.Board.Map.LightButton
	}
	p := s.Pins.Fake(n)
	p.Set(false)
	time.Sleep(d)
	p.Set(true)
}
