package hidden

import (
	"os"
	"sync"
)

// Memory keeps hidden flags in a map. Paths must exist on disk for Hide and
// Unhide to succeed, mirroring the OS implementations. The Fail* fields make
// the corresponding operation return that error.
type Memory struct {
	mu    sync.Mutex
	flags map[string]bool
	calls []string

	FailHide   error
	FailUnhide error
	FailQuery  error
}

// NewMemory creates an empty Memory attribute.
func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) record(op, path string) {
	m.calls = append(m.calls, op+" "+path)
}

// Hide sets the flag for path.
func (m *Memory) Hide(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("hide", path)
	if m.FailHide != nil {
		return m.FailHide
	}
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	m.flags[path] = true
	return nil
}

// Unhide clears the flag for path.
func (m *Memory) Unhide(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("unhide", path)
	if m.FailUnhide != nil {
		return m.FailUnhide
	}
	if _, err := os.Lstat(path); err != nil {
		return err
	}
	delete(m.flags, path)
	return nil
}

// IsHidden reports the flag for path. Paths never hidden report false.
func (m *Memory) IsHidden(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailQuery != nil {
		return false, m.FailQuery
	}
	if _, err := os.Lstat(path); err != nil {
		return false, err
	}
	return m.flags[path], nil
}

// Calls returns the Hide/Unhide operations seen so far, in order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
