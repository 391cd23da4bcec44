package application

import "expvar"

// Process counters exposed at /debug/vars.
var (
	MetricUpdates       = expvar.NewInt("bot_updates_total")
	MetricRelays        = expvar.NewInt("bot_relays_total")
	MetricRelayFailures = expvar.NewInt("bot_relay_failures_total")
	MetricVerifications = expvar.NewInt("bot_verifications_total")
	MetricGateDenials   = expvar.NewInt("bot_gate_denials_total")
)
