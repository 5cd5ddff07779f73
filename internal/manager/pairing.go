package manager

import (
	"context"
	"time"

	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/thing"
)

// PairingResult is the single outcome of a pairing or unpairing session.
// Exactly one of Thing or Err is set.
type PairingResult struct {
	Thing *thing.Thing
	Err   error
}

// pairingMode is the session state. At most one session runs at a time
// across the whole gateway, never one per adapter.
type pairingMode int

const (
	modeIdle pairingMode = iota
	modeAdding
	modeRemoving
)

// session tracks the single in-flight pairing or unpairing operation.
// The result channel is buffered so the resolver never blocks on a
// consumer that has stopped listening.
type session struct {
	mode   pairingMode
	result chan PairingResult
	timer  *time.Timer
	done   bool
}

// AddNewThing opens a gateway-wide pairing session and arms every
// registered adapter's discovery window.
//
// The returned channel receives exactly one PairingResult: the first
// device to complete identification, ErrPairingCancelled, or
// ErrPairingTimeout. A timeout of zero leaves the session open until a
// device arrives or the caller cancels.
//
// Returns ErrOperationInProgress immediately if any session (pairing or
// unpairing) is already active.
func (m *Manager) AddNewThing(timeout time.Duration) (<-chan PairingResult, error) {
	return m.openSession(modeAdding, timeout)
}

// RemoveSomeThing opens a gateway-wide unpairing session and arms every
// registered adapter for removal detection. The consumer does not name
// the device up front; whichever device the user removes at the
// physical layer resolves the session.
//
// Semantics mirror AddNewThing: one result, mutual exclusion with any
// other session, optional timeout.
func (m *Manager) RemoveSomeThing(timeout time.Duration) (<-chan PairingResult, error) {
	return m.openSession(modeRemoving, timeout)
}

// CancelAddNewThing cancels an active pairing session. The session's
// result channel receives ErrPairingCancelled and every adapter's
// discovery window is closed. Calling it with no pairing session active
// is a no-op.
func (m *Manager) CancelAddNewThing() {
	m.cancelSession(modeAdding)
}

// CancelRemoveSomeThing cancels an active unpairing session.
// Idempotent in the same way as CancelAddNewThing.
func (m *Manager) CancelRemoveSomeThing() {
	m.cancelSession(modeRemoving)
}

// PairingActive reports whether a pairing or unpairing session is open.
func (m *Manager) PairingActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.mode != modeIdle
}

// openSession transitions Idle -> mode, arms the adapters and starts the
// expiry timer. Adapter calls happen after the state transition commits
// so an adapter that resolves synchronously finds the session open.
func (m *Manager) openSession(mode pairingMode, timeout time.Duration) (<-chan PairingResult, error) {
	m.mu.Lock()
	if m.session.mode != modeIdle {
		m.mu.Unlock()
		return nil, ErrOperationInProgress
	}

	m.session = session{
		mode:   mode,
		result: make(chan PairingResult, 1),
	}
	result := m.session.result
	if timeout > 0 {
		// The closure captures the result channel, not just the mode: a
		// timer whose callback is already in flight when its session
		// resolves must not expire a later session of the same mode.
		m.session.timer = time.AfterFunc(timeout, func() {
			m.expireSession(mode, result)
		})
	}

	adapters := m.adapterList()
	m.mu.Unlock()

	ctx := context.Background()
	for _, a := range adapters {
		var err error
		if mode == modeAdding {
			err = a.StartPairing(ctx, timeout)
		} else {
			err = a.StartUnpairing(ctx, timeout)
		}
		if err != nil {
			// One refusing adapter does not sink the session; the rest
			// keep their windows open.
			m.logger.Warn("adapter failed to arm", "adapter_id", a.ID(), "mode", modeName(mode), "error", err)
		}
	}

	m.logger.Info("session opened", "mode", modeName(mode), "timeout", timeout.String())
	return result, nil
}

// cancelSession resolves an active session of the given mode with
// ErrPairingCancelled and disarms all adapters.
func (m *Manager) cancelSession(mode pairingMode) {
	m.mu.Lock()
	if m.session.mode != mode {
		m.mu.Unlock()
		return
	}

	m.resolveSessionLocked(PairingResult{Err: ErrPairingCancelled})
	adapters := m.adapterList()
	m.mu.Unlock()

	m.disarmAdapters(adapters, mode)
	m.logger.Info("session cancelled", "mode", modeName(mode))
}

// expireSession resolves the session identified by result with
// ErrPairingTimeout. Fired by the session timer; by the time it runs a
// device may already have won, or a whole new session may occupy the
// slot, so the timer's own channel identifies which session it was
// armed for.
func (m *Manager) expireSession(mode pairingMode, result chan PairingResult) {
	m.mu.Lock()
	if m.session.result != result || m.session.done {
		m.mu.Unlock()
		return
	}

	m.resolveSessionLocked(PairingResult{Err: ErrPairingTimeout})
	adapters := m.adapterList()
	m.mu.Unlock()

	m.disarmAdapters(adapters, mode)
	m.logger.Info("session timed out", "mode", modeName(mode))
}

// resolveSessionLocked delivers the session's single result and returns
// the machine to Idle. The caller must hold m.mu. Safe to call when no
// session is active; the write happens at most once per session because
// the session is cleared here.
func (m *Manager) resolveSessionLocked(result PairingResult) {
	if m.session.mode == modeIdle || m.session.done {
		return
	}

	if m.session.timer != nil {
		m.session.timer.Stop()
	}

	m.session.done = true
	m.session.result <- result
	m.session = session{}
}

// disarmAdapters closes the discovery or removal window on each adapter.
func (m *Manager) disarmAdapters(adapters []adapter.Adapter, mode pairingMode) {
	for _, a := range adapters {
		if mode == modeAdding {
			a.CancelPairing()
		} else {
			a.CancelUnpairing()
		}
	}
}

func modeName(mode pairingMode) string {
	switch mode {
	case modeAdding:
		return "pairing"
	case modeRemoving:
		return "unpairing"
	default:
		return "idle"
	}
}
