//go:build !(rp2040 || rp2350 || avr)

package datalog

import (
	"os"
	"path/filepath"
)

// DirFS keeps log files in a host directory.
type DirFS struct {
	Dir string
}

func (d DirFS) OpenAppend(name string) (File, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return f, nil
}
