// Package session tracks conversion sessions for the IPC service.
//
// A session accumulates a file queue while idle, hands it to the batch
// scheduler on start_processing and exposes an atomic progress snapshot to
// concurrent pollers. Sessions are destroyed explicitly by end_session; an
// optional reaper reclaims sessions whose clients disappeared.
package session
