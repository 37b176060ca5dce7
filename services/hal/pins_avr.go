//go:build avr

package hal

import "machine"

// DefaultPinFactory uses machine.Pin numbering (ports B, C, D). The AVR port
// has no per-pin interrupt API, so these pins are not IRQPins and inputs are
// polled.
func DefaultPinFactory() PinFactory { return avrPinFactory{} }

type avrPinFactory struct{}

func (avrPinFactory) ByNumber(n int) (GPIOPin, bool) {
	if n < 0 || n > 23 {
		return nil, false
	}
	return &avrPin{p: machine.Pin(n), n: n}, true
}

type avrPin struct {
	p machine.Pin
	n int
}

func (a *avrPin) ConfigureInput(pull Pull) error {
	mode := machine.PinInput
	if pull == PullUp {
		mode = machine.PinInputPullup
	}
	a.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (a *avrPin) ConfigureOutput(initial bool) error {
	a.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	a.p.Set(initial)
	return nil
}

func (a *avrPin) Set(level bool) { a.p.Set(level) }
func (a *avrPin) Get() bool      { return a.p.Get() }
func (a *avrPin) Toggle()        { a.p.Set(!a.p.Get()) }
func (a *avrPin) Number() int    { return a.n }
