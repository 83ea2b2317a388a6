package gateway

import "expvar"

var (
	metricOpsTotal        = expvar.NewInt("gateway_ops_total")
	metricOpFailuresTotal = expvar.NewInt("gateway_op_failures_total")
	metricConnectsTotal   = expvar.NewInt("gateway_connects_total")
	metricDegradedTotal   = expvar.NewInt("gateway_degraded_total")
)
