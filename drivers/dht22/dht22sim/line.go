// Package dht22sim is a virtual DHT22 on a simulated data line. Time is
// virtual: every Get advances it by one microsecond, which matches a
// dht22.Config with LoopsPerMicro = 1.
package dht22sim

import (
	"sync"

	"growctl-go/drivers/dht22"
)

type Fault uint8

const (
	FaultNone     Fault = iota
	FaultSilent         // never answers the start pulse
	FaultStuck          // holds the line low mid-frame
	FaultChecksum       // corrupts the checksum byte
)

type seg struct {
	level bool
	us    int
}

// Line implements dht22.Line.
type Line struct {
	mu      sync.Mutex
	reading dht22.Reading
	fault   Fault
	driven  bool
	level   bool
	armed   bool
	wave    []seg
	t       int
	samples int
}

func New(r dht22.Reading) *Line { return &Line{reading: r} }

// Set changes what the sensor reports from the next sample on.
func (l *Line) Set(r dht22.Reading) {
	l.mu.Lock()
	l.reading = r
	l.mu.Unlock()
}

func (l *Line) Reading() dht22.Reading {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reading
}

func (l *Line) SetFault(f Fault) {
	l.mu.Lock()
	l.fault = f
	l.mu.Unlock()
}

// Samples counts start pulses answered or not.
func (l *Line) Samples() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.samples
}

func (l *Line) Drive(level bool) {
	l.mu.Lock()
	l.driven, l.level = true, level
	if !level {
		l.armed = true
	}
	l.mu.Unlock()
}

// Release ends a start pulse and begins the sensor's frame.
func (l *Line) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.driven = false
	l.wave, l.t = nil, 0
	if !l.armed {
		return
	}
	l.armed = false
	l.samples++
	l.wave = l.frame()
}

func (l *Line) Get() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.driven {
		return l.level
	}
	t := l.t
	l.t++
	for _, s := range l.wave {
		if t < s.us {
			return s.level
		}
		t -= s.us
	}
	return true
}

func (l *Line) frame() []seg {
	switch l.fault {
	case FaultSilent:
		return nil
	case FaultStuck:
		return []seg{{true, 30}, {false, 80}, {true, 80}, {false, 50}, {true, 70}, {false, 1 << 30}}
	}
	b := dht22.Encode(l.reading)
	if l.fault == FaultChecksum {
		b[4] ^= 0xFF
	}
	w := make([]seg, 0, 3+80+1)
	w = append(w, seg{true, 30}, seg{false, 80}, seg{true, 80})
	for i := 0; i < 40; i++ {
		high := 26
		if b[i/8]&(0x80>>(i%8)) != 0 {
			high = 70
		}
		w = append(w, seg{false, 50}, seg{true, high})
	}
	return append(w, seg{false, 50})
}
