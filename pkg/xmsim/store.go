package xmsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WithStateFile loads the host persisted at path (a fresh one when the file
// does not exist), hands it to fn and writes it back. An exclusive flock on
// path serialises concurrent mock invocations.
func WithStateFile(path string, fn func(h *Host) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	state, err := readState(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	h := NewHost(state)
	fnErr := fn(h)

	if err := writeState(f, h.State()); err != nil {
		return errors.Join(fnErr, fmt.Errorf("save %s: %w", path, err))
	}
	return fnErr
}

func readState(f *os.File) (State, error) {
	fi, err := f.Stat()
	if err != nil {
		return State{}, err
	}
	if fi.Size() == 0 {
		return NewState(), nil
	}
	var st State
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return State{}, err
	}
	return st, nil
}

func writeState(f *os.File, st State) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
