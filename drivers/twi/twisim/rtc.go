package twisim

import (
	"sync"
	"time"

	"growctl-go/drivers/ds1307"
)

// RTC models a DS1307: registers 0..6 are rendered from a running clock at
// the start of every transfer, and writes to them re-set the clock when the
// transfer stops. The control register and RAM are plain memory.
type RTC struct {
	mu  sync.Mutex
	now func() time.Time

	offset   time.Duration
	halted   bool
	frozen   time.Time
	mode     ds1307.Mode
	wdayAdj  int
	regs     [64]byte
	ptr      byte
	pointed  bool
	timeDirt bool
}

// NewRTC returns a running clock. A nil now uses time.Now.
func NewRTC(now func() time.Time) *RTC {
	if now == nil {
		now = time.Now
	}
	return &RTC{now: now}
}

// Set moves the clock to the wall time of t. The model itself keeps wall
// time in UTC.
func (r *RTC) Set(t time.Time) {
	r.mu.Lock()
	r.set(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC))
	r.mu.Unlock()
}

// Advance jumps the clock by d (negative moves it backwards).
func (r *RTC) Advance(d time.Duration) {
	r.mu.Lock()
	r.offset += d
	r.frozen = r.frozen.Add(d)
	r.mu.Unlock()
}

// Halt stops the oscillator, as on a fresh battery.
func (r *RTC) Halt() {
	r.mu.Lock()
	if !r.halted {
		r.frozen = r.current()
		r.halted = true
	}
	r.mu.Unlock()
}

// Now returns the clock's current time.
func (r *RTC) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current()
}

// Control returns the control register.
func (r *RTC) Control() ds1307.Control {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ds1307.Control(r.regs[7])
}

func (r *RTC) current() time.Time {
	if r.halted {
		return r.frozen
	}
	return r.now().Add(r.offset).UTC().Truncate(time.Second)
}

func (r *RTC) set(t time.Time) {
	r.offset = t.Sub(r.now())
	r.frozen = t
	r.wdayAdj = 0
}

func (r *RTC) render() {
	t := r.current()
	rd := ds1307.Reading{
		Second:  uint8(t.Second()),
		Minute:  uint8(t.Minute()),
		Hour:    uint8(t.Hour()),
		Weekday: uint8((int(t.Weekday())+r.wdayAdj)%7) + 1,
		Day:     uint8(t.Day()),
		Month:   uint8(t.Month()),
		Year:    uint8(t.Year() % 100),
	}
	raw := ds1307.Encode(rd, r.mode, r.halted)
	copy(r.regs[:7], raw[:])
}

func (r *RTC) Address(read bool) bool {
	r.mu.Lock()
	r.render()
	r.pointed = read
	r.mu.Unlock()
	return true
}

func (r *RTC) Receive(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pointed {
		r.ptr = b & 0x3F
		r.pointed = true
		return true
	}
	r.regs[r.ptr] = b
	if r.ptr < 7 {
		r.timeDirt = true
	}
	r.ptr = (r.ptr + 1) & 0x3F
	return true
}

func (r *RTC) Transmit() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.regs[r.ptr]
	r.ptr = (r.ptr + 1) & 0x3F
	return b
}

// Stop commits written time registers. Out-of-range values are normalised
// the way time.Date does.
func (r *RTC) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.timeDirt {
		return
	}
	r.timeDirt = false

	var raw [7]byte
	copy(raw[:], r.regs[:7])
	sec := ds1307.FromBCD(raw[0] & 0x7F)
	hour, mode := ds1307.DecodeHour(raw[2])
	t := time.Date(2000+int(ds1307.FromBCD(raw[6])), time.Month(ds1307.FromBCD(raw[5])),
		int(ds1307.FromBCD(raw[4])), int(hour), int(ds1307.FromBCD(raw[1])), int(sec), 0, time.UTC)

	r.mode = mode
	r.halted = false
	r.set(t)
	r.wdayAdj = ((int(raw[3]&0x07)-1-int(t.Weekday()))%7 + 7) % 7
	if raw[0]&0x80 != 0 {
		r.halted = true
	}
}

// RAM returns a copy of the battery-backed RAM.
func (r *RTC) RAM() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.regs[8:]...)
}
