package display

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
)

// LCDAddress is the usual PCF8574A backpack address.
const LCDAddress = 0x3F

const (
	lcdCols = 16
	lcdRows = 2

	glyphDegree = 0xDF
)

// LCD is a 16x2 HD44780 on a PCF8574 backpack. The tinygo driver drops
// bus errors, so the bus is wrapped to report the first one per call.
type LCD struct {
	bus *errBus
	dev hd44780i2c.Device
}

func NewLCD(bus drivers.I2C, addr uint16) *LCD {
	if addr == 0 {
		addr = LCDAddress
	}
	b := &errBus{I2C: bus}
	return &LCD{bus: b, dev: hd44780i2c.New(b, uint8(addr))}
}

// Configure runs the 4-bit init sequence. It fails when nothing answers at
// the address.
func (l *LCD) Configure() error {
	l.bus.take()
	if err := l.dev.Configure(hd44780i2c.Config{Width: lcdCols, Height: lcdRows}); err != nil {
		return err
	}
	return l.bus.take()
}

// WriteLine replaces row with s, cut or padded to the width.
func (l *LCD) WriteLine(row int, s string) error {
	l.dev.SetCursor(0, uint8(row))
	l.dev.Print(lcdBytes(s))
	return l.bus.take()
}

func (l *LCD) Display(on bool) error {
	l.dev.DisplayOn(on)
	return l.bus.take()
}

func (l *LCD) Backlight(on bool) error {
	l.dev.BacklightOn(on)
	return l.bus.take()
}

// lcdBytes maps s onto the controller's character ROM: ASCII as is, '°'
// to its degree glyph and anything else to '?'.
func lcdBytes(s string) []byte {
	b := make([]byte, 0, lcdCols)
	for _, r := range s {
		if len(b) == lcdCols {
			break
		}
		switch {
		case r == '°':
			b = append(b, glyphDegree)
		case r >= 0x20 && r < 0x7F:
			b = append(b, byte(r))
		default:
			b = append(b, '?')
		}
	}
	for len(b) < lcdCols {
		b = append(b, ' ')
	}
	return b
}

type errBus struct {
	drivers.I2C
	err error
}

func (b *errBus) Tx(addr uint16, w, r []byte) error {
	err := b.I2C.Tx(addr, w, r)
	if err != nil && b.err == nil {
		b.err = err
	}
	return err
}

func (b *errBus) take() error {
	err := b.err
	b.err = nil
	return err
}
