// Package ds1307 drives the DS1307 real-time clock over I2C.
//
// Every read goes back to the device; callers must not assume the clock only
// moves forward, since it can be set backwards at any time.
package ds1307

import (
	"growctl-go/errcode"

	"tinygo.org/x/drivers"
)

// Address is the fixed 7-bit device address.
const Address = 0x68

const (
	regSeconds = 0x00
	regHours   = 0x02
	regWeekday = 0x03
	regControl = 0x07
	ramStart   = 0x08

	// RAMSize is the battery-backed general-purpose storage in bytes.
	RAMSize = 56

	// Bounded by the engine payload, one byte of which is the pointer.
	chunk = 15
)

var (
	ErrInvalidReading = &errcode.E{C: errcode.InvalidReading, Op: "ds1307", Msg: "register out of range"}
	ErrInvalidTime    = &errcode.E{C: errcode.InvalidParams, Op: "ds1307", Msg: "time out of range"}
	ErrInvalidDate    = &errcode.E{C: errcode.InvalidParams, Op: "ds1307", Msg: "date out of range"}
	ErrRAMRange       = &errcode.E{C: errcode.InvalidParams, Op: "ds1307", Msg: "ram offset out of range"}
)

// Device wraps an I2C connection to a DS1307.
type Device struct {
	bus     drivers.I2C
	Address uint16

	// mode is used when writing the hours register; Read refreshes it.
	mode Mode
	buf  [chunk + 1]byte
}

// New creates a Device. It does not touch the bus.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Mode returns the hour encoding last seen on or written to the device.
func (d *Device) Mode() Mode { return d.mode }

// Read fetches the full time and date in one burst.
func (d *Device) Read() (Reading, error) {
	var raw [7]byte
	if err := d.readRegs(regSeconds, raw[:]); err != nil {
		return Reading{}, err
	}
	r, m, _, err := Decode(raw)
	if err != nil {
		return Reading{}, err
	}
	d.mode = m
	return r, nil
}

// Write sets time and date and starts the oscillator.
func (d *Device) Write(r Reading) error {
	if !r.ValidTime() {
		return ErrInvalidTime
	}
	if !r.ValidDate() {
		return ErrInvalidDate
	}
	raw := Encode(r, d.mode, false)
	return d.writeRegs(regSeconds, raw[:])
}

// ReadTime returns a Reading with only the time fields set.
func (d *Device) ReadTime() (Reading, error) {
	var raw [3]byte
	if err := d.readRegs(regSeconds, raw[:]); err != nil {
		return Reading{}, err
	}
	r, m, _, err := decodeTime(raw[:])
	if err != nil {
		return Reading{}, err
	}
	d.mode = m
	return r, nil
}

// WriteTime sets seconds, minutes and hours and clears the halt bit.
func (d *Device) WriteTime(r Reading) error {
	if !r.ValidTime() {
		return ErrInvalidTime
	}
	raw := Encode(r, d.mode, false)
	return d.writeRegs(regSeconds, raw[:3])
}

// ReadDate returns a Reading with only the date fields set.
func (d *Device) ReadDate() (Reading, error) {
	var raw [4]byte
	if err := d.readRegs(regWeekday, raw[:]); err != nil {
		return Reading{}, err
	}
	return decodeDate(raw[:])
}

// WriteDate sets weekday, day, month and year.
func (d *Device) WriteDate(r Reading) error {
	if !r.ValidDate() {
		return ErrInvalidDate
	}
	raw := Encode(r, d.mode, false)
	return d.writeRegs(regWeekday, raw[3:])
}

// Halted reports whether the oscillator is stopped.
func (d *Device) Halted() (bool, error) {
	var b [1]byte
	if err := d.readRegs(regSeconds, b[:]); err != nil {
		return false, err
	}
	return b[0]&clockHalt != 0, nil
}

// Start clears the clock-halt bit, keeping the current seconds.
func (d *Device) Start() error {
	var b [1]byte
	if err := d.readRegs(regSeconds, b[:]); err != nil {
		return err
	}
	if b[0]&clockHalt == 0 {
		return nil
	}
	return d.writeRegs(regSeconds, []byte{b[0] &^ clockHalt})
}

// SetHourMode re-encodes the current hour in m.
func (d *Device) SetHourMode(m Mode) error {
	var b [1]byte
	if err := d.readRegs(regHours, b[:]); err != nil {
		return err
	}
	h, cur := DecodeHour(b[0])
	if h > 23 {
		return ErrInvalidReading
	}
	if cur != m {
		if err := d.writeRegs(regHours, []byte{EncodeHour(h, m)}); err != nil {
			return err
		}
	}
	d.mode = m
	return nil
}

func (d *Device) ReadControl() (Control, error) {
	var b [1]byte
	if err := d.readRegs(regControl, b[:]); err != nil {
		return 0, err
	}
	return Control(b[0]), nil
}

func (d *Device) WriteControl(c Control) error {
	return d.writeRegs(regControl, []byte{byte(c)})
}

// ReadRAM fills p from battery-backed RAM starting at off.
func (d *Device) ReadRAM(off int, p []byte) error {
	if off < 0 || off+len(p) > RAMSize {
		return ErrRAMRange
	}
	for len(p) > 0 {
		n := min(len(p), chunk+1)
		if err := d.readRegs(byte(ramStart+off), p[:n]); err != nil {
			return err
		}
		off += n
		p = p[n:]
	}
	return nil
}

// WriteRAM stores p into battery-backed RAM starting at off.
func (d *Device) WriteRAM(off int, p []byte) error {
	if off < 0 || off+len(p) > RAMSize {
		return ErrRAMRange
	}
	for len(p) > 0 {
		n := min(len(p), chunk)
		if err := d.writeRegs(byte(ramStart+off), p[:n]); err != nil {
			return err
		}
		off += n
		p = p[n:]
	}
	return nil
}

// readRegs sets the register pointer then burst-reads len(p) bytes.
func (d *Device) readRegs(reg byte, p []byte) error {
	d.buf[0] = reg
	return d.bus.Tx(d.Address, d.buf[:1], p)
}

// writeRegs sends the pointer followed by p (at most chunk bytes).
func (d *Device) writeRegs(reg byte, p []byte) error {
	d.buf[0] = reg
	n := copy(d.buf[1:], p)
	return d.bus.Tx(d.Address, d.buf[:n+1], nil)
}
