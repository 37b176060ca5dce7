// Package twisim simulates a TWI controller and the targets on its bus so
// the engine and its drivers run on a host.
package twisim

import (
	"sync"

	"growctl-go/drivers/twi"
)

// Target models one device on the simulated bus.
type Target interface {
	// Address is called when the target's address is sent; false NACKs it.
	Address(read bool) bool
	// Receive takes a data byte; false NACKs it.
	Receive(b byte) bool
	// Transmit supplies the next byte of a read.
	Transmit() byte
	// Stop ends the transfer.
	Stop()
}

type actionKind uint8

const (
	actStart actionKind = iota
	actWrite
	actRead
)

type action struct {
	kind actionKind
	b    byte
	ack  bool
}

// Controller implements twi.Controller. Each asynchronous action is processed
// by a worker goroutine which then calls the interrupt handler, so handler
// invocations never overlap.
type Controller struct {
	mu      sync.Mutex
	targets map[uint16]Target
	status  twi.Status
	data    byte
	rate    twi.BitRate

	inTx     bool
	needAddr bool
	reading  bool
	cur      Target

	addrNACK map[uint16]int
	dataNACK int
	arbLoss  int
	busErr   int
	hang     int
	starts   int

	handler func()
	q       chan action
	done    chan struct{}
	once    sync.Once
}

func New() *Controller {
	return &Controller{
		targets:  map[uint16]Target{},
		addrNACK: map[uint16]int{},
		status:   twi.StatusNoState,
		q:        make(chan action, 4),
		done:     make(chan struct{}),
	}
}

// Attach places t on the bus at a 7-bit address.
func (c *Controller) Attach(addr uint16, t Target) {
	c.mu.Lock()
	c.targets[addr] = t
	c.mu.Unlock()
}

// NACKAddress makes the next n address phases for addr go unacknowledged.
func (c *Controller) NACKAddress(addr uint16, n int) {
	c.mu.Lock()
	c.addrNACK[addr] += n
	c.mu.Unlock()
}

// NACKData makes the next n written data bytes go unacknowledged.
func (c *Controller) NACKData(n int) {
	c.mu.Lock()
	c.dataNACK += n
	c.mu.Unlock()
}

// LoseArbitration makes the next n START conditions lose arbitration.
func (c *Controller) LoseArbitration(n int) {
	c.mu.Lock()
	c.arbLoss += n
	c.mu.Unlock()
}

// InjectBusError makes the next START report an illegal bus condition.
func (c *Controller) InjectBusError() {
	c.mu.Lock()
	c.busErr++
	c.mu.Unlock()
}

// Hang swallows the interrupt of the next START, as an unresponsive bus would.
func (c *Controller) Hang() {
	c.mu.Lock()
	c.hang++
	c.mu.Unlock()
}

// Starts counts START conditions issued, restarts included.
func (c *Controller) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func (c *Controller) Rate() twi.BitRate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// Close stops the worker goroutine.
func (c *Controller) Close() { c.once.Do(func() { close(c.done) }) }

// -----------------------------------------------------------------------------
// twi.Controller
// -----------------------------------------------------------------------------

func (c *Controller) Enable(handler func()) error {
	c.mu.Lock()
	started := c.handler != nil
	c.handler = handler
	c.mu.Unlock()
	if !started {
		go c.loop()
	}
	return nil
}

func (c *Controller) SetBitRate(br twi.BitRate) {
	c.mu.Lock()
	c.rate = br
	c.mu.Unlock()
}

func (c *Controller) Start()        { c.q <- action{kind: actStart} }
func (c *Controller) Write(b byte)  { c.q <- action{kind: actWrite, b: b} }
func (c *Controller) Read(ack bool) { c.q <- action{kind: actRead, ack: ack} }

func (c *Controller) Data() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

func (c *Controller) Status() twi.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stop completes synchronously; STOP raises no interrupt.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		c.cur.Stop()
	}
	c.reset()
	c.status = twi.StatusNoState
}

func (c *Controller) reset() {
	c.inTx, c.needAddr, c.reading, c.cur = false, false, false, nil
}

// -----------------------------------------------------------------------------
// worker
// -----------------------------------------------------------------------------

func (c *Controller) loop() {
	for {
		select {
		case <-c.done:
			return
		case a := <-c.q:
			if !c.step(a) {
				continue
			}
			c.mu.Lock()
			h := c.handler
			c.mu.Unlock()
			h()
		}
	}
}

// step applies one action and reports whether an interrupt follows.
func (c *Controller) step(a action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch a.kind {
	case actStart:
		c.starts++
		switch {
		case c.hang > 0:
			c.hang--
			return false
		case c.busErr > 0:
			c.busErr--
			c.reset()
			c.status = twi.StatusBusError
			return true
		case c.arbLoss > 0:
			c.arbLoss--
			c.reset()
			c.status = twi.StatusArbLost
			return true
		}
		if c.inTx {
			c.status = twi.StatusRepStart
		} else {
			c.status = twi.StatusStart
		}
		c.inTx, c.needAddr, c.cur = true, true, nil

	case actWrite:
		if !c.inTx {
			c.status = twi.StatusBusError
			return true
		}
		if c.needAddr {
			c.needAddr = false
			c.addressPhase(uint16(a.b>>1), a.b&1 == 1)
			return true
		}
		ok := c.cur != nil && !c.reading && c.cur.Receive(a.b)
		if ok && c.dataNACK > 0 {
			c.dataNACK--
			ok = false
		}
		if ok {
			c.status = twi.StatusMTDataACK
		} else {
			c.status = twi.StatusMTDataNACK
		}

	case actRead:
		if c.cur == nil || !c.reading {
			c.status = twi.StatusBusError
			return true
		}
		c.data = c.cur.Transmit()
		if a.ack {
			c.status = twi.StatusMRDataACK
		} else {
			c.status = twi.StatusMRDataNACK
		}
	}
	return true
}

func (c *Controller) addressPhase(addr uint16, read bool) {
	t := c.targets[addr]
	ack := t != nil
	if n := c.addrNACK[addr]; n > 0 {
		c.addrNACK[addr] = n - 1
		ack = false
	}
	if ack {
		ack = t.Address(read)
	}
	switch {
	case !ack && read:
		c.status = twi.StatusMRAddrNACK
	case !ack:
		c.status = twi.StatusMTAddrNACK
	case read:
		c.status = twi.StatusMRAddrACK
	default:
		c.status = twi.StatusMTAddrACK
	}
	if ack {
		c.cur, c.reading = t, read
	}
}
