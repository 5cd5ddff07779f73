package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

const testToken = "test-bearer-token"

// fakeGateway implements the property HTTP contract for one thing.
type fakeGateway struct {
	mu         sync.Mutex
	values     map[string]any
	writeCode  int // 0 means accept
	refreshes  int
	writes     int
	lastWrite  map[string]any
	sawToken   string
	refreshErr bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{values: map[string]any{"on": false, "level": 40.0}}
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /things/plug-7/properties", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.refreshes++
		g.sawToken = r.Header.Get("Authorization")

		if g.refreshErr {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(g.values) //nolint:errcheck
	})

	mux.HandleFunc("PUT /things/plug-7/properties/{name}", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.writes++
		g.sawToken = r.Header.Get("Authorization")

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		g.lastWrite = body

		if g.writeCode != 0 {
			w.WriteHeader(g.writeCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	})

	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeGateway) {
	t.Helper()

	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL: srv.URL,
		Token:   testToken,
		ThingID: "plug-7",
	})
	return c, gw
}

func TestValueUnknownBeforeFirstRefresh(t *testing.T) {
	c, _ := newTestClient(t)

	v := c.Value("on")
	if v.State != StateUnknown {
		t.Errorf("state = %v, want unknown", v.State)
	}
	if v.Value != nil {
		t.Errorf("value = %v, want nil", v.Value)
	}
}

func TestRefreshConfirmsValues(t *testing.T) {
	c, gw := newTestClient(t)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if v := c.Value("on"); v.State != StateConfirmed || v.Value != false {
		t.Errorf("on = %+v, want confirmed false", v)
	}
	if v := c.Value("level"); v.State != StateConfirmed || v.Value != 40.0 {
		t.Errorf("level = %+v, want confirmed 40", v)
	}
	if gw.sawToken != "Bearer "+testToken {
		t.Errorf("Authorization = %q, want bearer token", gw.sawToken)
	}
}

func TestRefreshFailureLeavesViewUntouched(t *testing.T) {
	c, gw := newTestClient(t)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	gw.mu.Lock()
	gw.refreshErr = true
	gw.mu.Unlock()

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() error = nil, want error")
	}
	if v := c.Value("on"); v.State != StateConfirmed || v.Value != false {
		t.Errorf("on = %+v, want confirmed false after failed refresh", v)
	}
}

func TestSetOptimisticThenConfirmed(t *testing.T) {
	c, gw := newTestClient(t)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if err := c.Set(context.Background(), "on", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Accepted writes stay in-flight with the optimistic value until
	// the gateway proves them.
	if v := c.Value("on"); v.State != StateInFlight || v.Value != true {
		t.Errorf("on = %+v, want in-flight true", v)
	}

	gw.mu.Lock()
	if gw.lastWrite["on"] != true {
		t.Errorf("wire body = %v, want {on: true}", gw.lastWrite)
	}
	gw.values["on"] = true
	gw.mu.Unlock()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if v := c.Value("on"); v.State != StateConfirmed || v.Value != true {
		t.Errorf("on = %+v, want confirmed true after refresh", v)
	}
}

func TestSetRejectedReverts(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{name: "forbidden", code: http.StatusForbidden},
		{name: "bad request", code: http.StatusBadRequest},
		{name: "bad gateway", code: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, gw := newTestClient(t)
			if err := c.Refresh(context.Background()); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			gw.mu.Lock()
			gw.writeCode = tt.code
			gw.mu.Unlock()

			err := c.Set(context.Background(), "on", true)
			if !errors.Is(err, ErrWriteRejected) {
				t.Fatalf("Set() error = %v, want ErrWriteRejected", err)
			}

			if v := c.Value("on"); v.State != StateConfirmed || v.Value != false {
				t.Errorf("on = %+v, want reverted to confirmed false", v)
			}
		})
	}
}

func TestSetNeverConfirmedRevertsToUnknown(t *testing.T) {
	c, gw := newTestClient(t)

	gw.mu.Lock()
	gw.writeCode = http.StatusBadGateway
	gw.mu.Unlock()

	err := c.Set(context.Background(), "on", true)
	if !errors.Is(err, ErrWriteRejected) {
		t.Fatalf("Set() error = %v, want ErrWriteRejected", err)
	}
	if v := c.Value("on"); v.State != StateUnknown {
		t.Errorf("on = %+v, want unknown after failed first write", v)
	}
}

func TestSetTransportFailureReverts(t *testing.T) {
	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	c := New(Config{BaseURL: srv.URL, Token: testToken, ThingID: "plug-7"})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	srv.Close()

	if err := c.Set(context.Background(), "on", true); err == nil {
		t.Fatal("Set() error = nil, want transport error")
	}
	if v := c.Value("on"); v.State != StateConfirmed || v.Value != false {
		t.Errorf("on = %+v, want reverted to confirmed false", v)
	}
}

func TestApplyNotificationResolvesInFlight(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := c.Set(context.Background(), "on", true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	c.ApplyNotification("on", true)

	if v := c.Value("on"); v.State != StateConfirmed || v.Value != true {
		t.Errorf("on = %+v, want confirmed true after notification", v)
	}
}

func TestApplyNotificationNewProperty(t *testing.T) {
	c, _ := newTestClient(t)

	c.ApplyNotification("temperature", 21.5)

	if v := c.Value("temperature"); v.State != StateConfirmed || v.Value != 21.5 {
		t.Errorf("temperature = %+v, want confirmed 21.5", v)
	}
}

func TestViewsSnapshot(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	views := c.Views()
	if len(views) != 2 {
		t.Fatalf("Views() returned %d entries, want 2", len(views))
	}
	for _, v := range views {
		if v.State != StateConfirmed {
			t.Errorf("%s state = %v, want confirmed", v.Name, v.State)
		}
	}
}

func TestPollerRefreshesUntilCancelled(t *testing.T) {
	c, gw := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoller(c, rate.Every(10*time.Millisecond))
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		gw.mu.Lock()
		n := gw.refreshes
		gw.mu.Unlock()
		if n >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes before deadline, want >= 3", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestPollerSurvivesRefreshFailure(t *testing.T) {
	c, gw := newTestClient(t)

	gw.mu.Lock()
	gw.refreshErr = true
	gw.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoller(c, rate.Every(10*time.Millisecond))
	go p.Run(ctx)

	deadline := time.After(2 * time.Second)
	for {
		gw.mu.Lock()
		n := gw.refreshes
		gw.mu.Unlock()
		if n >= 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes before deadline, want >= 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
