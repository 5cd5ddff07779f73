package adapters

import (
	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/adapters/mdns"
	"github.com/emberhome/ember-core/internal/adapters/mqttbridge"
	"github.com/emberhome/ember-core/internal/adapters/virtual"
	"github.com/emberhome/ember-core/internal/infrastructure/config"
)

// Logger interface for dependency injection (avoids direct slog dependency).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registrar receives the built adapters. *manager.Manager satisfies it.
type Registrar interface {
	AddAdapter(a adapter.Adapter) error
}

// Deps carries the shared infrastructure adapters may need.
type Deps struct {
	// Registry receives device lifecycle callbacks from the adapters.
	Registry adapter.Registry

	// MQTTClient is the broker connection for the MQTT bridge. Nil when
	// the broker is disabled; the bridge is then skipped even if enabled
	// in configuration.
	MQTTClient mqttbridge.Client

	Logger Logger
}

// Load builds every enabled adapter from configuration and registers it.
//
// A factory that fails to initialise its driver is logged and skipped;
// one broken driver never takes the gateway down. Returns the number of
// adapters registered.
func Load(cfg config.AdaptersConfig, reg Registrar, deps Deps) int {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	type candidate struct {
		name    string
		enabled bool
		factory adapter.Factory
	}

	candidates := []candidate{
		{
			name:    virtual.AdapterID,
			enabled: cfg.Virtual.Enabled,
			factory: virtual.NewFactory(cfg.Virtual),
		},
		{
			name:    mqttbridge.AdapterID,
			enabled: cfg.MQTT.Enabled && deps.MQTTClient != nil,
			factory: mqttbridge.NewFactory(deps.MQTTClient, cfg.MQTT.TopicPrefix),
		},
		{
			name:    mdns.AdapterID,
			enabled: cfg.MDNS.Enabled,
			factory: mdns.NewFactory(cfg.MDNS),
		},
	}

	if cfg.MQTT.Enabled && deps.MQTTClient == nil {
		logger.Warn("mqtt adapter enabled but broker connection unavailable, skipping")
	}

	loaded := 0
	for _, c := range candidates {
		if !c.enabled {
			continue
		}

		a, err := c.factory(deps.Registry)
		if err != nil {
			logger.Error("adapter failed to initialise, skipping", "adapter", c.name, "error", err)
			continue
		}

		setLogger(a, logger)

		if err := reg.AddAdapter(a); err != nil {
			logger.Error("adapter registration failed, skipping", "adapter", c.name, "error", err)
			continue
		}

		logger.Info("adapter loaded", "adapter", c.name)
		loaded++
	}

	return loaded
}

// setLogger hands the shared logger to adapters that accept one.
func setLogger(a adapter.Adapter, logger Logger) {
	switch ad := a.(type) {
	case *virtual.Adapter:
		ad.SetLogger(logger)
	case *mqttbridge.Adapter:
		ad.SetLogger(logger)
	case *mdns.Adapter:
		ad.SetLogger(logger)
	}
}
