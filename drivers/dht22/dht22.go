// Package dht22 reads the DHT22 (AM2302) single-wire temperature/humidity
// sensor.
//
// The bit window is timed by counting busy-wait loop iterations, so
// Config.LoopsPerMicro must be calibrated for the target. Run the read with
// interrupts masked (Config.Critical) on MCUs; a preempted read fails its
// timing or checksum and is reported as such.
package dht22

import (
	"time"

	"growctl-go/errcode"
)

// Line is the single data wire: open-drain with an external pull-up.
type Line interface {
	Drive(level bool) // switch to output at level
	Release()         // switch to input, the pull-up takes the line high
	Get() bool
}

var (
	ErrNoResponse     = &errcode.E{C: errcode.SensorProtocol, Op: "dht22", Msg: "no response"}
	ErrTimeout        = &errcode.E{C: errcode.SensorProtocol, Op: "dht22", Msg: "pulse timeout"}
	ErrChecksum       = &errcode.E{C: errcode.SensorProtocol, Op: "dht22", Msg: "checksum mismatch"}
	ErrInvalidReading = &errcode.E{C: errcode.InvalidReading, Op: "dht22", Msg: "value out of range"}
)

// Reading holds tenths of a unit.
type Reading struct {
	DeciC  int16
	DeciRH uint16
}

// WholeC truncates toward zero.
func (r Reading) WholeC() int { return int(r.DeciC) / 10 }

// WholeRH truncates toward zero.
func (r Reading) WholeRH() int { return int(r.DeciRH) / 10 }

type Config struct {
	// LoopsPerMicro is the number of pulse-measuring loop iterations that
	// take one microsecond. Default 1.
	LoopsPerMicro int
	// TimeoutMicros bounds any single pulse. Default 100.
	TimeoutMicros int
	// StartLow is how long the host holds the line low to request a sample.
	// Default 1.1 ms.
	StartLow time.Duration
	// MinInterval between sensor reads; sooner calls return the previous
	// result. Default 2 s.
	MinInterval time.Duration
	// Critical runs fn with interrupts masked. Default runs fn directly.
	Critical func(fn func())
	// Now and Sleep default to the time package.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Device is one sensor on one line. Not safe for concurrent use.
type Device struct {
	line  Line
	cfg   Config
	limit uint32

	pulses [80]uint32 // low, high per bit

	have    bool
	lastAt  time.Time
	lastErr error
	last    Reading
}

func New(line Line, cfg Config) *Device {
	if cfg.LoopsPerMicro <= 0 {
		cfg.LoopsPerMicro = 1
	}
	if cfg.TimeoutMicros <= 0 {
		cfg.TimeoutMicros = 100
	}
	if cfg.StartLow <= 0 {
		cfg.StartLow = 1100 * time.Microsecond
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if cfg.Critical == nil {
		cfg.Critical = func(fn func()) { fn() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	line.Release()
	return &Device{
		line:  line,
		cfg:   cfg,
		limit: uint32(cfg.LoopsPerMicro * cfg.TimeoutMicros),
	}
}

// Read samples the sensor, or returns the previous result when called
// within MinInterval of the last sample.
func (d *Device) Read() (Reading, error) {
	now := d.cfg.Now()
	if d.have && now.Sub(d.lastAt) < d.cfg.MinInterval {
		return d.last, d.lastErr
	}
	r, err := d.sample()
	d.have, d.lastAt, d.lastErr = true, now, err
	if err == nil {
		d.last = r
	}
	return r, err
}

func (d *Device) sample() (Reading, error) {
	d.line.Drive(false)
	d.cfg.Sleep(d.cfg.StartLow)

	var err error
	d.cfg.Critical(func() { err = d.capture() })
	d.line.Release()
	if err != nil {
		return Reading{}, err
	}

	var raw [5]byte
	for i := 0; i < 40; i++ {
		raw[i/8] <<= 1
		// A one is a high pulse longer than the preceding low.
		if d.pulses[2*i+1] > d.pulses[2*i] {
			raw[i/8] |= 1
		}
	}
	return Decode(raw)
}

// capture runs with interrupts masked; it only counts.
func (d *Device) capture() error {
	d.line.Release()
	// Pull-up high until the sensor answers.
	if _, ok := d.pulse(true); !ok {
		return ErrNoResponse
	}
	// 80 µs low, 80 µs high preamble.
	if _, ok := d.pulse(false); !ok {
		return ErrTimeout
	}
	if _, ok := d.pulse(true); !ok {
		return ErrTimeout
	}
	for i := 0; i < len(d.pulses); i += 2 {
		var ok bool
		if d.pulses[i], ok = d.pulse(false); !ok {
			return ErrTimeout
		}
		if d.pulses[i+1], ok = d.pulse(true); !ok {
			return ErrTimeout
		}
	}
	return nil
}

// pulse counts loop iterations while the line stays at level.
func (d *Device) pulse(level bool) (uint32, bool) {
	var n uint32
	for d.line.Get() == level {
		n++
		if n > d.limit {
			return n, false
		}
	}
	return n, true
}

// Decode validates and unpacks the 5-byte frame: humidity, temperature
// (sign in bit 15), checksum.
func Decode(b [5]byte) (Reading, error) {
	if b[0]+b[1]+b[2]+b[3] != b[4] {
		return Reading{}, ErrChecksum
	}
	rh := uint16(b[0])<<8 | uint16(b[1])
	tr := uint16(b[2])<<8 | uint16(b[3])
	t := int16(tr & 0x7FFF)
	if tr&0x8000 != 0 {
		t = -t
	}
	if rh > 1000 || t < -400 || t > 800 {
		return Reading{}, ErrInvalidReading
	}
	return Reading{DeciC: t, DeciRH: rh}, nil
}

// Encode builds the frame Decode accepts.
func Encode(r Reading) [5]byte {
	tr := uint16(r.DeciC)
	if r.DeciC < 0 {
		tr = uint16(-r.DeciC) | 0x8000
	}
	b := [5]byte{byte(r.DeciRH >> 8), byte(r.DeciRH), byte(tr >> 8), byte(tr)}
	b[4] = b[0] + b[1] + b[2] + b[3]
	return b
}
