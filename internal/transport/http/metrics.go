package httptransport

import "expvar"

var (
	metricKVReadTotal   = expvar.NewInt("kv_read_total")
	metricKVWriteTotal  = expvar.NewInt("kv_write_total")
	metricKVRemoveTotal = expvar.NewInt("kv_remove_total")
	metricKVErrors      = expvar.NewInt("kv_errors_total")
)
