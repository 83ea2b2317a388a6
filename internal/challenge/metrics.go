package challenge

import "expvar"

var (
	metricChallengesCreated = expvar.NewInt("challenges_created_total")
	metricMailboxWrites     = expvar.NewInt("challenge_mailbox_writes_total")
	metricMirrorFailures    = expvar.NewInt("challenge_mirror_failures_total")
	metricMirrorRepairs     = expvar.NewInt("challenge_mirror_repairs_total")
	metricMirrorAdoptions   = expvar.NewInt("challenge_mirror_adoptions_total")
	metricRejections        = expvar.NewInt("challenge_rejections_total")
	metricMalformedDropped  = expvar.NewInt("challenge_malformed_dropped_total")
)
