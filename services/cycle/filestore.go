//go:build !(rp2040 || rp2350 || avr)

package cycle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"growctl-go/errcode"
)

// FileStore keeps the record in a small binary file, replaced atomically
// on each save.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (Record, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, errcode.Wrap(errcode.Storage, "cycle.file_load", err)
	}
	var r Record
	if err := r.UnmarshalBinary(b); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s FileStore) Save(r Record) error {
	b, _ := r.MarshalBinary()
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return errcode.Wrap(errcode.Storage, "cycle.file_save", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errcode.Wrap(errcode.Storage, "cycle.file_save", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return errcode.Wrap(errcode.Storage, "cycle.file_save", err)
	}
	return nil
}
