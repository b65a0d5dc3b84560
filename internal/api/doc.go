// Package api is the client-side façade over the conversion service.
//
// RunBatch prefers a session on the running service, spawning one when
// needed; any failure along that path degrades to a self-contained one-shot
// batch executed in process, so the user's request never fails just because
// the service is unavailable.
package api
