// Package tsdb provides time-series telemetry storage for Ember Core.
//
// This package wraps the InfluxDB v2 client to record numeric property
// samples as things report state changes. Writes are non-blocking and
// batched; a slow or unavailable InfluxDB never stalls the registry.
//
// # Architecture
//
//	property-changed events ──► WritePropertySample ──► batched write API ──► InfluxDB
//
// Telemetry is optional. When influxdb.enabled is false, Connect returns
// ErrDisabled and the caller runs without a telemetry sink.
//
// # Usage
//
//	client, err := tsdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, tsdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WritePropertySample("plug-7", "power", 23.0)
package tsdb
