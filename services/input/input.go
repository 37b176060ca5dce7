// Package input turns the two front-panel buttons into flags the tick
// drains. Interrupt-side code only sets bits.
package input

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"growctl-go/services/hal"
	"growctl-go/services/hal/gpioirq"
)

// Flag bits set by button handlers and drained once per tick.
type Flag uint32

const (
	MenuPressed  Flag = 1 << iota // toggle the menu page
	LightPressed                  // toggle light enable
	HoldElapsed                   // menu held long enough to toggle the cycle
	Activity                      // any press; wakes the display
)

func (f Flag) Has(b Flag) bool { return f&b != 0 }

// Flags is shared between interrupt context and the tick.
type Flags struct {
	v atomic.Uint32
}

func (f *Flags) Set(b Flag) {
	for {
		old := f.v.Load()
		if f.v.CompareAndSwap(old, old|uint32(b)) {
			return
		}
	}
}

// Take returns and clears every pending bit.
func (f *Flags) Take() Flag { return Flag(f.v.Swap(0)) }

// Peek returns pending bits without clearing them.
func (f *Flags) Peek() Flag { return Flag(f.v.Load()) }

// Input names used by the event sources.
const (
	MenuButton  = "menu"
	LightButton = "light"
	SquareWave  = "sqw" // clock chip 1 Hz output
)

// DefaultHold is how long the menu button must stay down to toggle the
// cycle.
const DefaultHold = 3 * time.Second

// Buttons tracks press state and the menu hold timer.
type Buttons struct {
	flags *Flags
	hold  time.Duration

	mu      sync.Mutex
	pressed map[string]bool
	timer   *time.Timer
}

func NewButtons(flags *Flags, hold time.Duration) *Buttons {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Buttons{flags: flags, hold: hold, pressed: map[string]bool{}}
}

// Press records a level change for the named button. Only press edges set
// action flags; releasing the menu button cancels the hold.
func (b *Buttons) Press(name string, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	was := b.pressed[name]
	b.pressed[name] = down
	if down == was {
		return
	}
	b.flags.Set(Activity)

	switch name {
	case MenuButton:
		if !down {
			b.stopHold()
			return
		}
		b.flags.Set(MenuPressed)
		b.stopHold()
		b.timer = time.AfterFunc(b.hold, func() { b.flags.Set(HoldElapsed) })
	case LightButton:
		if down {
			b.flags.Set(LightPressed)
		}
	}
}

func (b *Buttons) stopHold() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Run feeds edge events until ctx ends. Event levels are already inverted
// so true means pressed. SquareWave edges go to ticks, dropped when the
// tick goroutine is behind; ticks may be nil.
func (b *Buttons) Run(ctx context.Context, events <-chan gpioirq.Event, ticks chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.stopHold()
			b.mu.Unlock()
			return
		case ev := <-events:
			if ev.Name != SquareWave {
				b.Press(ev.Name, ev.Level)
				continue
			}
			if ticks == nil {
				continue
			}
			select {
			case ticks <- struct{}{}:
			default:
			}
		}
	}
}

// Poller samples active-low button pins for boards without pin interrupts.
type Poller struct {
	b    *Buttons
	pins map[string]hal.GPIOPin
}

func NewPoller(b *Buttons, pins map[string]hal.GPIOPin) *Poller {
	return &Poller{b: b, pins: pins}
}

// Poll samples every pin once.
func (p *Poller) Poll() {
	for name, pin := range p.pins {
		p.b.Press(name, !pin.Get())
	}
}

// Run polls every interval until ctx ends.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Poll()
		}
	}
}
