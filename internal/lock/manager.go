// Package lock serializes organize and revert runs that share a state
// directory.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/jvs-project/tidy/pkg/errclass"
)

// FileName is the lock file name inside the state directory.
const FileName = "tidy.lock"

// Holder describes the process holding the run lock.
type Holder struct {
	PID        int       `json:"pid"`
	RunID      string    `json:"run_id"`
	Purpose    string    `json:"purpose"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// State is the observed state of the run lock.
type State string

const (
	StateFree State = "free"
	StateHeld State = "held"
)

// Manager hands out the exclusive run lock for one state directory.
type Manager struct {
	stateDir string
}

// NewManager creates a new lock manager.
func NewManager(stateDir string) *Manager {
	return &Manager{stateDir: stateDir}
}

// Path returns the lock file location.
func (m *Manager) Path() string {
	return filepath.Join(m.stateDir, FileName)
}

// Lock is an acquired run lock.
type Lock struct {
	fl     *flock.Flock
	Holder Holder
}

// Acquire takes the lock without blocking. A lock held by another run
// yields ErrLockConflict.
func (m *Manager) Acquire(runID, purpose string) (*Lock, error) {
	if err := os.MkdirAll(m.stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	fl := flock.New(m.Path())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", m.Path(), err)
	}
	if !ok {
		msg := "another tidy run holds the lock"
		if h, err := m.readHolder(); err == nil {
			msg = fmt.Sprintf("locked by %s run %s (pid %d) since %s",
				h.Purpose, h.RunID, h.PID, h.AcquiredAt.Format(time.RFC3339))
		}
		return nil, errclass.ErrLockConflict.WithMessage(msg)
	}

	holder := Holder{
		PID:        os.Getpid(),
		RunID:      runID,
		Purpose:    purpose,
		AcquiredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(holder)
	if err == nil {
		// Holder info is diagnostic only; the flock is the lock.
		_ = os.WriteFile(m.Path(), data, 0644)
	}
	return &Lock{fl: fl, Holder: holder}, nil
}

// Release frees the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return nil
}

// Status reports whether the lock is currently held and, if so, by whom.
func (m *Manager) Status() (State, *Holder, error) {
	if _, err := os.Stat(m.Path()); os.IsNotExist(err) {
		return StateFree, nil, nil
	}

	fl := flock.New(m.Path())
	ok, err := fl.TryLock()
	if err != nil {
		return "", nil, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = fl.Unlock()
		return StateFree, nil, nil
	}
	h, err := m.readHolder()
	if err != nil {
		return StateHeld, nil, nil
	}
	return StateHeld, h, nil
}

func (m *Manager) readHolder() (*Holder, error) {
	data, err := os.ReadFile(m.Path())
	if err != nil {
		return nil, err
	}
	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
