package twisim

import "sync"

// PCF8574 backpack wiring: data on P4-P7.
const (
	lcdRS        = 0x01
	lcdE         = 0x04
	lcdBacklight = 0x08
)

// LCD decodes HD44780 traffic written through a PCF8574 latch: a nibble is
// taken on every falling edge of E, the controller starts in 8-bit mode and
// switches to 4-bit on a function set with DL clear.
type LCD struct {
	*Latch

	mu        sync.Mutex
	prev      byte
	eightBit  bool
	half      byte
	haveHalf  bool
	rsHalf    bool
	ddram     [0x68]byte
	addr      int
	on        bool
	backlight bool
	clears    int
}

// NewLCD returns a latch-backed display model ready to be attached.
func NewLCD() *LCD {
	d := &LCD{Latch: NewLatch(), eightBit: true}
	d.blank()
	d.Latch.OnWrite(d.port)
	return d
}

func (d *LCD) blank() {
	for i := range d.ddram {
		d.ddram[i] = ' '
	}
	d.addr = 0
}

func (d *LCD) port(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = b&lcdBacklight != 0
	falling := d.prev&lcdE != 0 && b&lcdE == 0
	d.prev = b
	if !falling {
		return
	}
	nib := b >> 4
	rs := b&lcdRS != 0
	if d.eightBit {
		d.exec(nib<<4, rs)
		return
	}
	if !d.haveHalf {
		d.half, d.rsHalf, d.haveHalf = nib, rs, true
		return
	}
	d.haveHalf = false
	d.exec(d.half<<4|nib, d.rsHalf)
}

func (d *LCD) exec(v byte, data bool) {
	if data {
		if d.addr < len(d.ddram) {
			d.ddram[d.addr] = v
		}
		d.addr++
		return
	}
	// Decoded by the highest set bit.
	switch {
	case v&0x80 != 0:
		d.addr = int(v & 0x7F)
	case v&0x40 != 0:
		// CGRAM address: not modelled.
	case v&0x20 != 0:
		d.eightBit = v&0x10 != 0
		d.haveHalf = false
	case v&0x10 != 0:
		// cursor/display shift: not modelled.
	case v&0x08 != 0:
		d.on = v&0x04 != 0
	case v&0x04 != 0:
		// entry mode: increment is assumed.
	case v&0x02 != 0:
		d.addr = 0
	case v == 0x01:
		d.blank()
		d.clears++
	}
}

// Line returns the first 16 characters of row 0 or 1.
func (d *LCD) Line(row int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	base := 0
	if row == 1 {
		base = 0x40
	}
	return string(d.ddram[base : base+16])
}

func (d *LCD) On() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

func (d *LCD) Backlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backlight
}

// FourBit reports whether the init sequence reached 4-bit mode.
func (d *LCD) FourBit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.eightBit
}

// Clears counts clear-display instructions.
func (d *LCD) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}
