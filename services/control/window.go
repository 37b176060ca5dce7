package control

import "growctl-go/x/mathx"

const MinutesPerDay = 24 * 60

// Window is a recurring daily interval in minutes since midnight. It may
// wrap past midnight; the stop boundary is always derived.
type Window struct {
	Start  int // 0..1439
	Active int // minutes, 0 < Active < MinutesPerDay
}

// NewWindow anchors a window at hour:minute.
func NewWindow(hour, minute, active int) Window {
	return Window{Start: mathx.Mod(hour*60+minute, MinutesPerDay), Active: active}
}

// Contains reports whether minute-of-day m is inside [Start, Start+Active).
func (w Window) Contains(m int) bool {
	return mathx.Mod(m-w.Start, MinutesPerDay) < w.Active
}

// Stop is the first minute after the window.
func (w Window) Stop() int { return mathx.Mod(w.Start+w.Active, MinutesPerDay) }

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool { return w.Stop() < w.Start }

// Advance moves the window forward by period minutes.
func (w *Window) Advance(period int) {
	w.Start = mathx.Mod(w.Start+period, MinutesPerDay)
}

func (w Window) StartHM() (h, m uint8) { return split(w.Start) }
func (w Window) StopHM() (h, m uint8)  { return split(w.Stop()) }

func split(m int) (uint8, uint8) { return uint8(m / 60), uint8(m % 60) }
