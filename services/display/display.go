// Package display renders the two-page status menu on a 16x2 character LCD
// and blanks it after a number of idle ticks.
package display

import (
	"growctl-go/x/fmtx"
)

// Screen is the part of the LCD the menu uses. *LCD satisfies it.
type Screen interface {
	WriteLine(row int, s string) error
	Display(on bool) error
	Backlight(on bool) error
}

// View is what one tick has to show.
type View struct {
	Active       bool
	DeciC        int16
	DeciRH       uint16
	LightEnabled bool
	DaysElapsed  uint8
}

const (
	PageEnv = iota
	PageElapsed
	numPages
)

// DefaultTimeout is the idle ticks before the screen blanks.
const DefaultTimeout = 10

type Menu struct {
	scr     Screen
	timeout int

	page  int
	idle  int
	on    bool
	dirty bool
	shown [2]string
}

func New(scr Screen, timeoutTicks int) *Menu {
	if timeoutTicks <= 0 {
		timeoutTicks = DefaultTimeout
	}
	return &Menu{scr: scr, timeout: timeoutTicks, on: true, dirty: true}
}

// Splash shows the banner until the first tick.
func (m *Menu) Splash(version string) error {
	return m.show("    growctl", fmtx.Sprintf("%16s", version))
}

func (m *Menu) Page() int { return m.page }
func (m *Menu) On() bool  { return m.on }

// NextPage flips between the two pages.
func (m *Menu) NextPage() {
	m.page = (m.page + 1) % numPages
	m.dirty = true
}

// Wake turns a blanked screen back on and restarts the idle count.
func (m *Menu) Wake() error {
	m.idle = 0
	if m.on {
		return nil
	}
	m.on, m.dirty = true, true
	return m.power(true)
}

// Tick counts one idle tick and redraws when the content changed.
func (m *Menu) Tick(v View) error {
	if m.on {
		m.idle++
		if m.idle >= m.timeout {
			m.on = false
			m.idle = 0
			return m.power(false)
		}
	}
	if !m.on {
		return nil
	}
	l0, l1 := Lines(v, m.page)
	if !m.dirty && l0 == m.shown[0] && l1 == m.shown[1] {
		return nil
	}
	return m.show(l0, l1)
}

// Lines renders a page. An inactive cycle has a single screen.
func Lines(v View, page int) (string, string) {
	if !v.Active {
		return "      Cycle", "   Not Started"
	}
	if page == PageElapsed {
		return "time elapsed:", fmtx.Sprintf("%d days", v.DaysElapsed)
	}
	light := "light: off"
	if v.LightEnabled {
		light = "light: on"
	}
	return fmtx.Sprintf("T: %d°C H: %d%%", int(v.DeciC)/10, int(v.DeciRH)/10), light
}

func (m *Menu) show(l0, l1 string) error {
	if err := m.scr.WriteLine(0, l0); err != nil {
		m.dirty = true
		return err
	}
	if err := m.scr.WriteLine(1, l1); err != nil {
		m.dirty = true
		return err
	}
	m.shown = [2]string{l0, l1}
	m.dirty = false
	return nil
}

func (m *Menu) power(on bool) error {
	if err := m.scr.Display(on); err != nil {
		return err
	}
	return m.scr.Backlight(on)
}
