package ds1307

// Hour register layout.
const (
	hour12Bit = 0x40 // set: 12-hour mode
	hourPMBit = 0x20 // 12-hour mode only
	clockHalt = 0x80 // seconds register
)

// Mode is the hour encoding held by the hours register.
type Mode uint8

const (
	Mode24 Mode = iota
	Mode12
)

func (m Mode) String() string {
	if m == Mode12 {
		return "12h"
	}
	return "24h"
}

// ToBCD packs 0..99 into two decimal nibbles.
func ToBCD(v uint8) uint8 { return (v/10)<<4 | v%10 }

// FromBCD unpacks two decimal nibbles.
func FromBCD(b uint8) uint8 { return (b>>4)*10 + b&0x0F }

func validBCD(b uint8) bool { return b&0x0F <= 9 && b>>4 <= 9 }

// EncodeHour packs a 0..23 hour for the given mode.
func EncodeHour(h uint8, m Mode) uint8 {
	if m == Mode24 {
		return ToBCD(h)
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	b := hour12Bit | ToBCD(h12)
	if h >= 12 {
		b |= hourPMBit
	}
	return b
}

// DecodeHour returns the hour as 0..23 together with the register's mode.
// 12 AM is 0 and 12 PM is 12.
func DecodeHour(b uint8) (uint8, Mode) {
	if b&hour12Bit == 0 {
		return FromBCD(b & 0x3F), Mode24
	}
	h := FromBCD(b & 0x1F)
	pm := b&hourPMBit != 0
	switch {
	case h == 12 && !pm:
		h = 0
	case pm && h != 12:
		h += 12
	}
	return h, Mode12
}

// Reading is one clock sample in 24-hour form with a two-digit year.
type Reading struct {
	Second  uint8
	Minute  uint8
	Hour    uint8
	Weekday uint8 // 1..7
	Day     uint8
	Month   uint8
	Year    uint8 // 0..99
}

// ValidTime reports whether the time fields are in range.
func (r Reading) ValidTime() bool {
	return r.Second <= 59 && r.Minute <= 59 && r.Hour <= 23
}

// ValidDate reports whether the date fields are in range. Day is checked
// against the month length, leap years included (2000..2099).
func (r Reading) ValidDate() bool {
	if r.Year > 99 || r.Month < 1 || r.Month > 12 || r.Weekday < 1 || r.Weekday > 7 {
		return false
	}
	return r.Day >= 1 && r.Day <= DaysIn(r.Month, r.Year)
}

// DaysIn returns the length of month in 20yy.
func DaysIn(month, year uint8) uint8 {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 {
			return 29
		}
		return 28
	}
	return 31
}

// Encode packs r into registers 0..6. halt sets the clock-halt bit.
func Encode(r Reading, m Mode, halt bool) [7]byte {
	var b [7]byte
	b[0] = ToBCD(r.Second)
	if halt {
		b[0] |= clockHalt
	}
	b[1] = ToBCD(r.Minute)
	b[2] = EncodeHour(r.Hour, m)
	b[3] = r.Weekday
	b[4] = ToBCD(r.Day)
	b[5] = ToBCD(r.Month)
	b[6] = ToBCD(r.Year)
	return b
}

// Decode unpacks registers 0..6. It reports the hour mode and whether the
// oscillator is halted, and rejects out-of-range or non-BCD fields.
func Decode(b [7]byte) (r Reading, m Mode, halted bool, err error) {
	if r, m, halted, err = decodeTime(b[:3]); err != nil {
		return
	}
	var d Reading
	if d, err = decodeDate(b[3:]); err != nil {
		return
	}
	r.Weekday, r.Day, r.Month, r.Year = d.Weekday, d.Day, d.Month, d.Year
	return
}

func decodeTime(b []byte) (Reading, Mode, bool, error) {
	sec := b[0] &^ clockHalt
	if !validBCD(sec) || !validBCD(b[1]) || !validBCD(b[2]&0x3F) {
		return Reading{}, 0, false, ErrInvalidReading
	}
	if b[2]&hour12Bit != 0 {
		if h12 := FromBCD(b[2] & 0x1F); h12 < 1 || h12 > 12 {
			return Reading{}, 0, false, ErrInvalidReading
		}
	}
	h, m := DecodeHour(b[2])
	r := Reading{Second: FromBCD(sec), Minute: FromBCD(b[1]), Hour: h}
	if !r.ValidTime() {
		return Reading{}, 0, false, ErrInvalidReading
	}
	return r, m, b[0]&clockHalt != 0, nil
}

func decodeDate(b []byte) (Reading, error) {
	if !validBCD(b[1]) || !validBCD(b[2]) || !validBCD(b[3]) {
		return Reading{}, ErrInvalidReading
	}
	r := Reading{Weekday: b[0] & 0x07, Day: FromBCD(b[1]), Month: FromBCD(b[2]), Year: FromBCD(b[3])}
	if !r.ValidDate() {
		return Reading{}, ErrInvalidReading
	}
	return r, nil
}

// -----------------------------------------------------------------------------
// Control register
// -----------------------------------------------------------------------------

// Rate selects the square-wave output frequency.
type Rate uint8

const (
	Rate1Hz Rate = iota
	Rate4096Hz
	Rate8192Hz
	Rate32768Hz
)

const (
	ctrlOut  = 0x80
	ctrlSQWE = 0x10
	ctrlRS   = 0x03
)

// Control is the control register value.
type Control uint8

func NewControl(out, squareWave bool, r Rate) Control {
	c := Control(r) & ctrlRS
	if out {
		c |= ctrlOut
	}
	if squareWave {
		c |= ctrlSQWE
	}
	return c
}

// Out is the SQW/OUT pin level while the square wave is disabled.
func (c Control) Out() bool        { return c&ctrlOut != 0 }
func (c Control) SquareWave() bool { return c&ctrlSQWE != 0 }
func (c Control) Rate() Rate       { return Rate(c & ctrlRS) }
