package manager

import (
	"errors"
	"testing"
	"time"

	"github.com/emberhome/ember-core/internal/thing"
)

func TestAddNewThingMutualExclusion(t *testing.T) {
	m := New(NewMockStore())
	if err := m.AddAdapter(NewMockAdapter("virtual")); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	result, err := m.AddNewThing(0)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	t.Run("second pairing request rejected", func(t *testing.T) {
		if _, err := m.AddNewThing(0); !errors.Is(err, ErrOperationInProgress) {
			t.Errorf("AddNewThing() error = %v, want ErrOperationInProgress", err)
		}
	})

	t.Run("unpairing while pairing rejected", func(t *testing.T) {
		if _, err := m.RemoveSomeThing(0); !errors.Is(err, ErrOperationInProgress) {
			t.Errorf("RemoveSomeThing() error = %v, want ErrOperationInProgress", err)
		}
	})

	// The rejected requests must not have disturbed the open session.
	select {
	case r := <-result:
		t.Fatalf("session resolved unexpectedly: %+v", r)
	default:
	}

	m.CancelAddNewThing()
}

func TestAddNewThingResolution(t *testing.T) {
	m := New(NewMockStore())
	winner := NewMockAdapter("virtual")
	loser := NewMockAdapter("mqtt")
	if err := m.AddAdapter(winner); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}
	if err := m.AddAdapter(loser); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	subID, events := m.Subscribe()
	defer m.Unsubscribe(subID)

	result, err := m.AddNewThing(0)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	ps, _, _, _ := winner.counts()
	if ps != 1 {
		t.Errorf("winner StartPairing calls = %d, want 1", ps)
	}
	ps, _, _, _ = loser.counts()
	if ps != 1 {
		t.Errorf("loser StartPairing calls = %d, want 1", ps)
	}

	m.HandleDeviceAdded(testDevice("plug-7", "virtual"))

	select {
	case r := <-result:
		if r.Err != nil {
			t.Fatalf("result error = %v, want nil", r.Err)
		}
		if r.Thing == nil || r.Thing.ID != "plug-7" {
			t.Fatalf("result thing = %+v, want plug-7", r.Thing)
		}
		// The winning thing is already queryable when the result lands.
		if _, ok := m.Thing("plug-7"); !ok {
			t.Error("thing not in registry at session resolution")
		}
	case <-time.After(time.Second):
		t.Fatal("session did not resolve")
	}

	_, pc, _, _ := loser.counts()
	if pc != 1 {
		t.Errorf("loser CancelPairing calls = %d, want 1", pc)
	}
	_, pc, _, _ = winner.counts()
	if pc != 0 {
		t.Errorf("winner CancelPairing calls = %d, want 0", pc)
	}

	added := 0
	for drained := false; !drained; {
		select {
		case ev := <-events:
			if ev.Type == EventThingAdded {
				added++
			}
		default:
			drained = true
		}
	}
	if added != 1 {
		t.Errorf("thing-added events = %d, want exactly 1", added)
	}

	t.Run("second device does not re-resolve", func(t *testing.T) {
		m.HandleDeviceAdded(testDevice("plug-8", "virtual"))
		select {
		case r := <-result:
			t.Errorf("unexpected second result: %+v", r)
		default:
		}
	})

	t.Run("session slot is free again", func(t *testing.T) {
		next, err := m.AddNewThing(0)
		if err != nil {
			t.Fatalf("AddNewThing() after resolution error = %v", err)
		}
		m.CancelAddNewThing()
		if r := <-next; !errors.Is(r.Err, ErrPairingCancelled) {
			t.Errorf("result error = %v, want ErrPairingCancelled", r.Err)
		}
	})
}

func TestCancelAddNewThing(t *testing.T) {
	m := New(NewMockStore())
	a := NewMockAdapter("virtual")
	if err := m.AddAdapter(a); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	t.Run("cancel with no session is a no-op", func(t *testing.T) {
		m.CancelAddNewThing()
		_, pc, _, _ := a.counts()
		if pc != 0 {
			t.Errorf("CancelPairing calls = %d, want 0", pc)
		}
	})

	result, err := m.AddNewThing(0)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	m.CancelAddNewThing()

	select {
	case r := <-result:
		if !errors.Is(r.Err, ErrPairingCancelled) {
			t.Errorf("result error = %v, want ErrPairingCancelled", r.Err)
		}
		if r.Thing != nil {
			t.Errorf("cancelled result carries thing %+v", r.Thing)
		}
	case <-time.After(time.Second):
		t.Fatal("cancel did not resolve the session")
	}

	_, pc, _, _ := a.counts()
	if pc != 1 {
		t.Errorf("CancelPairing calls = %d, want 1", pc)
	}

	t.Run("repeat cancel is a no-op", func(t *testing.T) {
		m.CancelAddNewThing()
		_, pc, _, _ := a.counts()
		if pc != 1 {
			t.Errorf("CancelPairing calls after repeat = %d, want 1", pc)
		}
	})
}

func TestPairingTimeout(t *testing.T) {
	m := New(NewMockStore())
	a := NewMockAdapter("virtual")
	if err := m.AddAdapter(a); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	result, err := m.AddNewThing(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	select {
	case r := <-result:
		if !errors.Is(r.Err, ErrPairingTimeout) {
			t.Errorf("result error = %v, want ErrPairingTimeout", r.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session did not time out")
	}

	_, pc, _, _ := a.counts()
	if pc != 1 {
		t.Errorf("CancelPairing calls = %d, want 1", pc)
	}

	if m.PairingActive() {
		t.Error("session still active after timeout")
	}
}

func TestStaleTimerCannotExpireLaterSession(t *testing.T) {
	m := New(NewMockStore())
	if err := m.AddAdapter(NewMockAdapter("virtual")); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	// Session A resolves with a device while its expiry timer may still
	// be in flight.
	resultA, err := m.AddNewThing(time.Hour)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}
	staleCh := m.session.result
	m.HandleDeviceAdded(testDevice("plug-7", "virtual"))
	if r := <-resultA; r.Err != nil {
		t.Fatalf("session A error = %v, want nil", r.Err)
	}

	// Session B opens the same mode; A's timer fires afterwards.
	resultB, err := m.AddNewThing(time.Hour)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	m.expireSession(modeAdding, staleCh)

	select {
	case r := <-resultB:
		t.Fatalf("stale timer resolved session B: %+v", r)
	default:
	}
	if !m.PairingActive() {
		t.Error("session B closed by a stale timer")
	}

	// B still times out on its own timer.
	m.expireSession(modeAdding, m.session.result)
	if r := <-resultB; !errors.Is(r.Err, ErrPairingTimeout) {
		t.Errorf("session B error = %v, want ErrPairingTimeout", r.Err)
	}
}

func TestPairingZeroTimeoutNeverExpires(t *testing.T) {
	m := New(NewMockStore())
	if err := m.AddAdapter(NewMockAdapter("virtual")); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	result, err := m.AddNewThing(0)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v", err)
	}

	select {
	case r := <-result:
		t.Fatalf("session resolved without cause: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	m.CancelAddNewThing()
	if r := <-result; !errors.Is(r.Err, ErrPairingCancelled) {
		t.Errorf("result error = %v, want ErrPairingCancelled", r.Err)
	}
}

func TestRemoveSomeThing(t *testing.T) {
	m := New(NewMockStore())
	owner := NewMockAdapter("virtual")
	other := NewMockAdapter("mqtt")
	if err := m.AddAdapter(owner); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}
	if err := m.AddAdapter(other); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	m.HandleDeviceAdded(testDevice("plug-1", "virtual"))

	result, err := m.RemoveSomeThing(0)
	if err != nil {
		t.Fatalf("RemoveSomeThing() error = %v", err)
	}

	// Every adapter is armed; the consumer never names the device.
	_, _, us, _ := owner.counts()
	if us != 1 {
		t.Errorf("owner StartUnpairing calls = %d, want 1", us)
	}
	_, _, us, _ = other.counts()
	if us != 1 {
		t.Errorf("other StartUnpairing calls = %d, want 1", us)
	}

	m.HandleDeviceRemoved(&thing.Device{ID: "plug-1", AdapterID: "virtual"})

	select {
	case r := <-result:
		if r.Err != nil {
			t.Fatalf("result error = %v, want nil", r.Err)
		}
		if r.Thing == nil || r.Thing.ID != "plug-1" {
			t.Fatalf("result thing = %+v, want plug-1", r.Thing)
		}
		if r.Thing.Status != thing.StatusRemoved {
			t.Errorf("result thing status = %q, want removed", r.Thing.Status)
		}
		// The removal is already applied when the result lands.
		if _, ok := m.Thing("plug-1"); ok {
			t.Error("thing still registered at session resolution")
		}
	case <-time.After(time.Second):
		t.Fatal("session did not resolve")
	}

	_, _, _, uc := other.counts()
	if uc != 1 {
		t.Errorf("other CancelUnpairing calls = %d, want 1", uc)
	}
}

func TestCancelRemoveSomeThing(t *testing.T) {
	m := New(NewMockStore())
	a := NewMockAdapter("virtual")
	if err := m.AddAdapter(a); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	result, err := m.RemoveSomeThing(0)
	if err != nil {
		t.Fatalf("RemoveSomeThing() error = %v", err)
	}

	// Cancelling the wrong mode must not touch the session.
	m.CancelAddNewThing()
	select {
	case r := <-result:
		t.Fatalf("pairing cancel resolved unpairing session: %+v", r)
	default:
	}

	m.CancelRemoveSomeThing()
	if r := <-result; !errors.Is(r.Err, ErrPairingCancelled) {
		t.Errorf("result error = %v, want ErrPairingCancelled", r.Err)
	}

	_, _, _, uc := a.counts()
	if uc != 1 {
		t.Errorf("CancelUnpairing calls = %d, want 1", uc)
	}
}

func TestPairingArmsAdaptersDespiteFailure(t *testing.T) {
	m := New(NewMockStore())
	failing := NewMockAdapter("zwave")
	failing.startPairingErr = errors.New("radio absent")
	healthy := NewMockAdapter("virtual")
	if err := m.AddAdapter(failing); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}
	if err := m.AddAdapter(healthy); err != nil {
		t.Fatalf("AddAdapter() error = %v", err)
	}

	result, err := m.AddNewThing(0)
	if err != nil {
		t.Fatalf("AddNewThing() error = %v, want session despite failing adapter", err)
	}

	ps, _, _, _ := healthy.counts()
	if ps != 1 {
		t.Errorf("healthy adapter StartPairing calls = %d, want 1", ps)
	}

	m.HandleDeviceAdded(testDevice("plug-1", "virtual"))
	if r := <-result; r.Err != nil {
		t.Errorf("result error = %v, want nil", r.Err)
	}
}
