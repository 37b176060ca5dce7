package cycle

import (
	"sync"

	"growctl-go/errcode"
)

// Store persists a single Record. Load on an empty store returns the zero
// (inactive) record and no error.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// MemoryStore keeps the record in RAM. Used by tests and by builds with no
// non-volatile storage.
type MemoryStore struct {
	mu    sync.Mutex
	rec   Record
	saves int
	err   error
}

func (m *MemoryStore) Load() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, m.err
}

func (m *MemoryStore) Save(r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rec = r
	m.saves++
	return nil
}

// Saves counts successful writes.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Fail makes every later call return err; nil clears it.
func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// RAM is battery-backed scratch memory, such as the clock chip's.
type RAM interface {
	ReadRAM(off int, p []byte) error
	WriteRAM(off int, p []byte) error
}

// ramMagic tags an initialised record; anything else reads as empty.
const ramMagic = 0xC7

// RAMStore keeps the record in RAM at Offset, behind one tag byte.
type RAMStore struct {
	RAM    RAM
	Offset int
}

func (s RAMStore) Load() (Record, error) {
	var b [1 + RecordSize]byte
	if err := s.RAM.ReadRAM(s.Offset, b[:]); err != nil {
		return Record{}, errcode.Wrap(errcode.Storage, "cycle.ram_load", err)
	}
	if b[0] != ramMagic {
		return Record{}, nil
	}
	var r Record
	if err := r.UnmarshalBinary(b[1:]); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s RAMStore) Save(r Record) error {
	p, _ := r.MarshalBinary()
	b := append([]byte{ramMagic}, p...)
	if err := s.RAM.WriteRAM(s.Offset, b); err != nil {
		return errcode.Wrap(errcode.Storage, "cycle.ram_save", err)
	}
	return nil
}
