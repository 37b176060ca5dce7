package twi

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
)

type result uint32

const (
	resPending result = iota
	resOK
	resAddrNACK
	resDataNACK
	resArbLost
	resBusError
)

// Stats are cumulative counters, safe to read at any time.
type Stats struct {
	Transfers   uint32
	Retries     uint32
	NACKs       uint32
	ArbRestarts uint32
	BusErrors   uint32
	Timeouts    uint32
}

// Engine is the single-master transaction engine. It implements
// tinygo.org/x/drivers.I2C through Tx.
//
// Foreground callers are serialised by a mutex; the interrupt side never
// locks and only touches the buffer while busy is set.
type Engine struct {
	ctrl Controller
	cfg  Config
	rate BitRate

	mu  sync.Mutex // foreground only
	cur *Transaction

	// Shared with interrupt context.
	busy   atomic.Bool
	res    atomic.Uint32
	state  atomic.Uint32
	status atomic.Uint32
	arb    atomic.Uint32

	// Owned by the interrupt side while busy, by the foreground otherwise.
	buf  [MaxPayload + 1]byte
	size int
	ptr  int

	transfers, retries, nacks, arbRestarts, busErrors, timeouts atomic.Uint32
}

// New validates the clock setup, programs the bit rate and enables the
// controller. A bus speed that cannot be derived is a configuration error.
func New(ctrl Controller, cfg Config) (*Engine, error) {
	if cfg.CPU == 0 {
		cfg.CPU = 16 * physic.MegaHertz
	}
	if cfg.SCL == 0 {
		cfg.SCL = 100 * physic.KiloHertz
	}
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = 50 * time.Millisecond
	}
	if cfg.MaxArbRestarts <= 0 {
		cfg.MaxArbRestarts = 3
	}
	br, err := Divisor(cfg.CPU, cfg.SCL)
	if err != nil {
		return nil, err
	}
	e := &Engine{ctrl: ctrl, cfg: cfg, rate: br}
	ctrl.SetBitRate(br)
	if err := ctrl.Enable(e.HandleInterrupt); err != nil {
		return nil, err
	}
	return e, nil
}

// BitRate returns the programmed divisor.
func (e *Engine) BitRate() BitRate { return e.rate }

// State returns the protocol position as last set by either side.
func (e *Engine) State() State { return State(e.state.Load()) }

// LastStatus returns the most recent hardware status code.
func (e *Engine) LastStatus() Status { return Status(e.status.Load()) }

// Busy reports whether a transaction is in flight.
func (e *Engine) Busy() bool { return e.busy.Load() }

func (e *Engine) Stats() Stats {
	return Stats{
		Transfers:   e.transfers.Load(),
		Retries:     e.retries.Load(),
		NACKs:       e.nacks.Load(),
		ArbRestarts: e.arbRestarts.Load(),
		BusErrors:   e.busErrors.Load(),
		Timeouts:    e.timeouts.Load(),
	}
}

// -----------------------------------------------------------------------------
// Foreground API
// -----------------------------------------------------------------------------

// Submit runs one attempt of tx and blocks until the engine reports a
// terminal status. Write payloads are copied before the transfer starts.
// Must not be called from interrupt context.
func (e *Engine) Submit(tx *Transaction) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submit(tx)
}

// Retry re-issues the last submitted transaction from the internal buffer.
func (e *Engine) Retry() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retry()
}

// Transfer runs tx, retrying once when the address was not acknowledged or
// arbitration was lost. Bus errors and data NACKs are not retried.
func (e *Engine) Transfer(tx *Transaction) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.submit(tx)
	if errors.Is(err, ErrAddrNACK) || errors.Is(err, ErrArbitrationLost) {
		return e.retry()
	}
	return n, err
}

// Tx performs a write phase then a read phase, each as its own transaction
// with the retry-once policy. A nil w and r only addresses the target.
// On error the contents of r are undefined.
func (e *Engine) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		if _, err := e.Transfer(&Transaction{Addr: addr, Buf: w}); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}
	_, err := e.Transfer(&Transaction{Addr: addr, Read: true, Buf: r})
	return err
}

func (e *Engine) submit(tx *Transaction) (int, error) {
	if len(tx.Buf) > MaxPayload {
		return 0, ErrPayloadTooLarge
	}
	if err := e.waitIdle(); err != nil {
		return 0, err
	}
	sla := byte(tx.Addr<<1) & 0xFE
	if tx.Read {
		sla |= 1
	} else {
		copy(e.buf[1:], tx.Buf)
	}
	e.buf[0] = sla
	e.size = len(tx.Buf) + 1
	e.cur = tx
	e.transfers.Add(1)
	return e.run()
}

func (e *Engine) retry() (int, error) {
	if e.cur == nil {
		return 0, ErrNothingToRetry
	}
	if err := e.waitIdle(); err != nil {
		return 0, err
	}
	e.retries.Add(1)
	return e.run()
}

func (e *Engine) run() (int, error) {
	e.arb.Store(0)
	e.res.Store(uint32(resPending))
	e.state.Store(uint32(StartSent))
	e.busy.Store(true)
	e.ctrl.Start()

	if err := e.waitIdle(); err != nil {
		return 0, err
	}
	switch result(e.res.Load()) {
	case resOK:
		e.state.Store(uint32(Idle))
		n := e.size - 1
		if e.cur.Read {
			copy(e.cur.Buf, e.buf[1:e.size])
		}
		return n, nil
	case resAddrNACK:
		e.nacks.Add(1)
		return 0, ErrAddrNACK
	case resDataNACK:
		e.nacks.Add(1)
		return 0, ErrDataNACK
	case resArbLost:
		return 0, ErrArbitrationLost
	default:
		e.busErrors.Add(1)
		return 0, ErrBusError
	}
}

// waitIdle busy-polls until the in-flight transaction finishes. Once the poll
// budget is spent the transfer is abandoned with a STOP and ErrTimeout.
func (e *Engine) waitIdle() error {
	if !e.busy.Load() {
		return nil
	}
	deadline := time.Now().Add(e.cfg.PollBudget)
	for e.busy.Load() {
		if time.Now().After(deadline) {
			e.busy.Store(false)
			e.ctrl.Stop()
			e.state.Store(uint32(Idle))
			e.timeouts.Add(1)
			return ErrTimeout
		}
		runtime.Gosched()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Interrupt side
// -----------------------------------------------------------------------------

// HandleInterrupt advances the protocol state machine. It is the
// controller's interrupt handler: no locks, no allocation.
func (e *Engine) HandleInterrupt() {
	st := e.ctrl.Status()
	e.status.Store(uint32(st))
	if st == StatusNoState {
		return
	}
	if !e.busy.Load() {
		// Late interrupt for an abandoned transfer.
		e.ctrl.Stop()
		return
	}

	switch st {
	case StatusStart, StatusRepStart:
		e.ptr = 0
		e.state.Store(uint32(AddressSent))
		e.ctrl.Write(e.buf[0])
		e.ptr = 1

	case StatusMTAddrACK, StatusMTDataACK:
		if e.ptr < e.size {
			e.state.Store(uint32(DataTransfer))
			b := e.buf[e.ptr]
			e.ptr++
			e.ctrl.Write(b)
			return
		}
		e.finish(resOK, StopSent)

	case StatusMRDataACK:
		e.buf[e.ptr] = e.ctrl.Data()
		e.ptr++
		fallthrough
	case StatusMRAddrACK:
		e.state.Store(uint32(DataTransfer))
		// NACK the last byte so the target releases the bus.
		e.ctrl.Read(e.ptr < e.size-1)

	case StatusMRDataNACK:
		e.buf[e.ptr] = e.ctrl.Data()
		e.ptr++
		e.finish(resOK, StopSent)

	case StatusArbLost:
		e.state.Store(uint32(ArbitrationLost))
		if int(e.arb.Add(1)) > e.cfg.MaxArbRestarts {
			e.finish(resArbLost, ArbitrationLost)
			return
		}
		e.arbRestarts.Add(1)
		e.ctrl.Start()

	case StatusMTAddrNACK, StatusMRAddrNACK:
		e.finish(resAddrNACK, StopSent)

	case StatusMTDataNACK:
		e.finish(resDataNACK, StopSent)

	default:
		e.finish(resBusError, BusError)
	}
}

// finish releases the bus and publishes the result; busy is cleared last.
func (e *Engine) finish(r result, s State) {
	if r != resArbLost {
		e.ctrl.Stop()
	}
	e.state.Store(uint32(s))
	e.res.Store(uint32(r))
	e.busy.Store(false)
}
