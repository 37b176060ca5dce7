package datalog

import (
	"bytes"
	"errors"
	"sync"
)

// MemFS keeps files in memory. Used on boards without a card and in tests.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
	fail  error
}

// Fail makes later opens return err; nil clears it.
func (m *MemFS) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *MemFS) OpenAppend(name string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if m.files == nil {
		m.files = map[string]*bytes.Buffer{}
	}
	b, ok := m.files[name]
	if !ok {
		b = &bytes.Buffer{}
		m.files[name] = b
	}
	return &memFile{fs: m, buf: b}, nil
}

// Contents returns a copy of the named file.
func (m *MemFS) Contents(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	if !ok {
		return "", false
	}
	return b.String(), true
}

var errClosed = errors.New("file closed")

type memFile struct {
	fs     *MemFS
	buf    *bytes.Buffer
	closed bool
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, errClosed
	}
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return f.buf.Write(p)
}

func (f *memFile) Sync() error { return nil }

func (f *memFile) Close() error {
	if f.closed {
		return errClosed
	}
	f.closed = true
	return nil
}
