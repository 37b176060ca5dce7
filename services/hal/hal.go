// Package hal holds the platform capability interfaces the chamber is built
// from, plus per-platform implementations selected by build tags.
package hal

import (
	"context"
	"sync/atomic"

	"growctl-go/errcode"
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context and must not block.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory supplies GPIO pins by the platform's numbering.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

var ErrNoIRQ = &errcode.E{C: errcode.Unsupported, Op: "hal", Msg: "pin has no interrupt support"}

// AsIRQ returns pin as an IRQPin when the platform supports it.
func AsIRQ(pin GPIOPin) (IRQPin, error) {
	if p, ok := pin.(IRQPin); ok {
		return p, nil
	}
	return nil, ErrNoIRQ
}

// ---- Outputs ----

// Output is a named on/off load behind a GPIO (relay, SSR, LED).
type Output struct {
	name      string
	pin       GPIOPin
	activeLow bool
	on        atomic.Bool
	writes    atomic.Uint32
}

// NewOutput configures pin as an output with the load off.
func NewOutput(name string, pin GPIOPin, activeLow bool) (*Output, error) {
	if err := pin.ConfigureOutput(activeLow); err != nil {
		return nil, errcode.Wrap(errcode.Error, "hal.output."+name, err)
	}
	return &Output{name: name, pin: pin, activeLow: activeLow}, nil
}

func (o *Output) Name() string { return o.name }

// Set drives the load. Each call is a pin write.
func (o *Output) Set(on bool) {
	o.pin.Set(on != o.activeLow)
	o.on.Store(on)
	o.writes.Add(1)
}

func (o *Output) On() bool { return o.on.Load() }

// Writes counts pin writes since creation.
func (o *Output) Writes() uint32 { return o.writes.Load() }

// ---- Serial ----

// SerialPort is the byte stream the console runs over.
type SerialPort interface {
	Write(p []byte) (int, error)
	// RecvSomeContext blocks until at least one byte is read or ctx ends.
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// ---- Single-wire line ----

// OpenDrain adapts a GPIO to a pulled-up data wire: it is driven only as an
// output and released by switching to input.
type OpenDrain struct {
	Pin  GPIOPin
	Pull Pull // PullUp when the board has no external resistor
}

func (l OpenDrain) Drive(level bool) { _ = l.Pin.ConfigureOutput(level) }
func (l OpenDrain) Release()         { _ = l.Pin.ConfigureInput(l.Pull) }
func (l OpenDrain) Get() bool        { return l.Pin.Get() }
