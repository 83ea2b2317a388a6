package ws

import "expvar"

var (
	metricConnections   = expvar.NewInt("ws_connections")
	metricFramesIn      = expvar.NewInt("ws_frames_in_total")
	metricFramesOut     = expvar.NewInt("ws_frames_out_total")
	metricRequestErrors = expvar.NewInt("ws_request_errors_total")
)
