// Package gpioirq turns pin interrupts into debounced edge events. The
// interrupt handler only samples the pin and does a non-blocking send; all
// filtering runs on the worker goroutine.
package gpioirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"growctl-go/services/hal"
)

// Event is one accepted edge, level after inversion.
type Event struct {
	Name  string
	Level bool
	Edge  hal.Edge
	TS    time.Time
}

type Worker struct {
	// Written by the ISR; never blocks it.
	isrQ    chan isrEvent
	outQ    chan Event
	stopped chan struct{}

	mu     sync.RWMutex
	inputs map[string]*watch

	drops atomic.Uint32
}

type isrEvent struct {
	name  string
	level bool // sampled in the ISR
}

type watch struct {
	name      string
	pin       hal.IRQPin
	edge      hal.Edge
	debounce  time.Duration
	invert    bool
	lastLevel bool
	lastEvent time.Time
	cancelIRQ func()
}

func New(isrBuf, outBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 16
	}
	if outBuf <= 0 {
		outBuf = 16
	}
	return &Worker{
		isrQ:    make(chan isrEvent, isrBuf),
		outQ:    make(chan Event, outBuf),
		stopped: make(chan struct{}),
		inputs:  map[string]*watch{},
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.isrQ:
				w.handleISR(ev)
			}
		}
	}()
}

// Done is closed once the worker goroutine exits.
func (w *Worker) Done() <-chan struct{} { return w.stopped }

func (w *Worker) Events() <-chan Event { return w.outQ }

// RegisterInput installs an interrupt handler on pin. The returned func
// removes it.
func (w *Worker) RegisterInput(name string, pin hal.IRQPin, edge hal.Edge, debounce time.Duration, invert bool) (func(), error) {
	if edge == hal.EdgeNone {
		return func() {}, nil
	}

	// Initial logical level, so later edges compare like-for-like.
	init := pin.Get() != invert
	wh := &watch{
		name:      name,
		pin:       pin,
		edge:      edge,
		debounce:  debounce,
		invert:    invert,
		lastLevel: init,
	}

	handler := func() {
		l := pin.Get()
		select {
		case w.isrQ <- isrEvent{name: name, level: l}:
		default:
			w.drops.Add(1)
		}
	}
	if err := pin.SetIRQ(edge, handler); err != nil {
		return nil, err
	}
	wh.cancelIRQ = func() { _ = pin.ClearIRQ() }

	w.mu.Lock()
	w.inputs[name] = wh
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if cur, ok := w.inputs[name]; ok {
			if cur.cancelIRQ != nil {
				cur.cancelIRQ()
			}
			delete(w.inputs, name)
		}
		w.mu.Unlock()
	}, nil
}

func (w *Worker) handleISR(ev isrEvent) {
	w.mu.RLock()
	wh := w.inputs[ev.name]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	level := ev.level != wh.invert
	now := time.Now()

	if !wh.lastEvent.IsZero() && now.Sub(wh.lastEvent) < wh.debounce {
		return
	}

	var e hal.Edge
	if wh.edge == hal.EdgeBoth {
		switch {
		case !wh.lastLevel && level:
			e = hal.EdgeRising
		case wh.lastLevel && !level:
			e = hal.EdgeFalling
		}
	} else {
		// Only the configured edge interrupts.
		e = wh.edge
	}

	if e != hal.EdgeNone {
		select {
		case w.outQ <- Event{Name: ev.name, Level: level, Edge: e, TS: now}:
		default:
			// consumer is slow
		}
	}

	wh.lastLevel = level
	wh.lastEvent = now
}

// ISRDrops counts interrupts lost because the ISR queue was full.
func (w *Worker) ISRDrops() uint32 { return w.drops.Load() }
