//go:build linux && !(rp2040 || rp2350 || avr)

package hal

import (
	"io"
	"strconv"
	"sync"
	"time"

	"growctl-go/errcode"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// InitHost loads the periph host drivers. Call once before opening buses or
// pins on real hardware.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return errcode.Wrap(errcode.Unsupported, "hal.host_init", err)
	}
	return nil
}

// OpenI2C opens a Linux I2C bus by periph name ("" for the first, "1",
// "/dev/i2c-1"). periph's Tx matches drivers.I2C.
func OpenI2C(name string) (drivers.I2C, io.Closer, error) {
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, errcode.Wrap(errcode.BusError, "hal.open_i2c", err)
	}
	return b, b, nil
}

// PeriphPinFactory resolves pins through gpioreg by their numeric name
// ("17" for GPIO17).
type PeriphPinFactory struct {
	mu   sync.Mutex
	pins map[int]*PeriphPin
}

func (f *PeriphPinFactory) ByNumber(n int) (GPIOPin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pins[n]; ok {
		return p, true
	}
	pin := gpioreg.ByName(strconv.Itoa(n))
	if pin == nil {
		return nil, false
	}
	if f.pins == nil {
		f.pins = map[int]*PeriphPin{}
	}
	p := &PeriphPin{pin: pin, n: n}
	f.pins[n] = p
	return p, true
}

// PeriphPin adapts a periph gpio.PinIO. Interrupts are emulated by a
// goroutine blocked in WaitForEdge.
type PeriphPin struct {
	pin  gpio.PinIO
	n    int
	pull gpio.Pull

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (p *PeriphPin) ConfigureInput(pull Pull) error {
	p.pull = toPeriphPull(pull)
	return p.pin.In(p.pull, gpio.NoEdge)
}

func (p *PeriphPin) ConfigureOutput(initial bool) error {
	return p.pin.Out(gpio.Level(initial))
}

func (p *PeriphPin) Set(level bool) { _ = p.pin.Out(gpio.Level(level)) }
func (p *PeriphPin) Get() bool      { return bool(p.pin.Read()) }
func (p *PeriphPin) Toggle()        { p.Set(!p.Get()) }
func (p *PeriphPin) Number() int    { return p.n }

func (p *PeriphPin) SetIRQ(edge Edge, handler func()) error {
	_ = p.ClearIRQ()
	if err := p.pin.In(p.pull, toPeriphEdge(edge)); err != nil {
		return err
	}
	stop, done := make(chan struct{}), make(chan struct{})
	p.mu.Lock()
	p.stop, p.done = stop, done
	p.mu.Unlock()
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if p.pin.WaitForEdge(250 * time.Millisecond) {
				handler()
			}
		}
	}()
	return nil
}

func (p *PeriphPin) ClearIRQ() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return p.pin.In(p.pull, gpio.NoEdge)
}

func toPeriphPull(p Pull) gpio.Pull {
	switch p {
	case PullUp:
		return gpio.PullUp
	case PullDown:
		return gpio.PullDown
	}
	return gpio.Float
}

func toPeriphEdge(e Edge) gpio.Edge {
	switch e {
	case EdgeRising:
		return gpio.RisingEdge
	case EdgeFalling:
		return gpio.FallingEdge
	case EdgeBoth:
		return gpio.BothEdges
	}
	return gpio.NoEdge
}
