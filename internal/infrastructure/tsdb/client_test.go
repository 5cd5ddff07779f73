package tsdb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/emberhome/ember-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: false,
	}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:19999",
		Token:   "test-token",
		Org:     "ember",
		Bucket:  "telemetry",
	}

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() expected error for unreachable server")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestWritePropertySample_NotConnected(t *testing.T) {
	// Writes on a disconnected client must be silently dropped,
	// never panic or block.
	client := &Client{}

	client.WritePropertySample("plug-7", "power", 23.0)
}

func TestSetOnError(t *testing.T) {
	client := &Client{}

	var mu sync.Mutex
	var got error

	client.SetOnError(func(err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	})

	client.mu.RLock()
	callback := client.onError
	client.mu.RUnlock()

	if callback == nil {
		t.Fatal("SetOnError did not register callback")
	}

	callback(ErrWriteFailed)

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(got, ErrWriteFailed) {
		t.Errorf("error callback received %v, want ErrWriteFailed", got)
	}
}
