package twisim

import "sync"

// Memory is a register-file target: the first byte of a write sets the
// pointer, further bytes store and advance it. Reads continue from the
// pointer. The pointer wraps at the end of the file.
type Memory struct {
	mu      sync.Mutex
	regs    []byte
	ptr     int
	pointed bool
}

func NewMemory(size int) *Memory { return &Memory{regs: make([]byte, size)} }

func (m *Memory) Address(read bool) bool {
	m.mu.Lock()
	m.pointed = read
	m.mu.Unlock()
	return true
}

func (m *Memory) Receive(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pointed {
		m.ptr = int(b) % len(m.regs)
		m.pointed = true
		return true
	}
	m.regs[m.ptr] = b
	m.ptr = (m.ptr + 1) % len(m.regs)
	return true
}

func (m *Memory) Transmit() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.regs[m.ptr]
	m.ptr = (m.ptr + 1) % len(m.regs)
	return b
}

func (m *Memory) Stop() {}

// Bytes returns a copy of the register file.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.regs...)
}

// Poke sets registers directly, bypassing the bus.
func (m *Memory) Poke(reg int, p ...byte) {
	m.mu.Lock()
	copy(m.regs[reg:], p)
	m.mu.Unlock()
}

// Latch models a PCF8574-style 8-bit port expander: every written byte
// becomes the port state; reads return it.
type Latch struct {
	mu     sync.Mutex
	port   byte
	rec    bool
	writes []byte
	onByte func(b byte)
}

func NewLatch() *Latch { return &Latch{port: 0xFF} }

// OnWrite installs an observer called with every port write.
func (l *Latch) OnWrite(fn func(b byte)) {
	l.mu.Lock()
	l.onByte = fn
	l.mu.Unlock()
}

func (l *Latch) Address(bool) bool { return true }

func (l *Latch) Receive(b byte) bool {
	l.mu.Lock()
	l.port = b
	if l.rec {
		l.writes = append(l.writes, b)
	}
	fn := l.onByte
	l.mu.Unlock()
	if fn != nil {
		fn(b)
	}
	return true
}

func (l *Latch) Transmit() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

func (l *Latch) Stop() {}

// Record starts keeping every port write for Writes.
func (l *Latch) Record() {
	l.mu.Lock()
	l.rec = true
	l.mu.Unlock()
}

// Writes returns and clears the recorded port writes.
func (l *Latch) Writes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.writes
	l.writes = nil
	return w
}
