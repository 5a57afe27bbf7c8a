package config

import (
	"os"
	"time"
)

// LoadTimeouts returns the timeout policy, with each value overridable
// through an environment variable holding a Go duration string.
//
// Environment variables:
//   - VIRTKUBE_TIMEOUT_NODE_READY (default: 10m)
//   - VIRTKUBE_TIMEOUT_FLEET_READY (default: 20m)
//   - VIRTKUBE_TIMEOUT_BOOTSTRAP (default: 15m)
//   - VIRTKUBE_TIMEOUT_JOIN (default: 5m)
//   - VIRTKUBE_PROBE_INTERVAL (default: 5s)
//
// Unset or unparseable variables fall back to the default.
func LoadTimeouts() *Timeouts {
	t := DefaultTimeouts()
	t.NodeReady = parseDuration("VIRTKUBE_TIMEOUT_NODE_READY", t.NodeReady)
	t.FleetReady = parseDuration("VIRTKUBE_TIMEOUT_FLEET_READY", t.FleetReady)
	t.Bootstrap = parseDuration("VIRTKUBE_TIMEOUT_BOOTSTRAP", t.Bootstrap)
	t.Join = parseDuration("VIRTKUBE_TIMEOUT_JOIN", t.Join)
	t.ProbeInterval = parseDuration("VIRTKUBE_PROBE_INTERVAL", t.ProbeInterval)
	return t
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
