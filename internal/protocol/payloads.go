package protocol

import "umservice/internal/batch"

// StartSessionData is empty; start_session carries no payload.
type StartSessionData struct{}

// SessionStartedData returns the allocated session handle.
type SessionStartedData struct {
	SessionID string `json:"session_id"`
}

// AddFilesData queues tasks on an idle session.
type AddFilesData struct {
	SessionID string           `json:"session_id"`
	Files     []batch.FileTask `json:"files"`
}

// FilesAddedData reports how many tasks were accepted.
type FilesAddedData struct {
	AddedCount int `json:"added_count"`
	TotalFiles int `json:"total_files"`
}

// StartProcessingData starts the queued batch with the given options.
type StartProcessingData struct {
	SessionID string        `json:"session_id"`
	Options   batch.Options `json:"options"`
}

// ProcessingStartedData acknowledges asynchronous dispatch.
type ProcessingStartedData struct {
	SessionID string `json:"session_id"`
	FileCount int    `json:"file_count"`
	Status    string `json:"status"`
}

// SessionRefData addresses an existing session.
type SessionRefData struct {
	SessionID string `json:"session_id"`
}

// ProgressUpdateData is the get_progress snapshot. Result is only present
// once the session reached a terminal status; its shape matches the one-shot
// batch response so callers handle both paths identically.
type ProgressUpdateData struct {
	SessionID      string          `json:"session_id"`
	Status         string          `json:"status"`
	TotalFiles     int             `json:"total_files"`
	ProcessedFiles int             `json:"processed_files"`
	Result         *batch.Response `json:"result,omitempty"`
}

// ProcessingStoppedData acknowledges a cooperative stop request.
type ProcessingStoppedData struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// SessionEndedData acknowledges session teardown.
type SessionEndedData struct {
	SessionID string `json:"session_id"`
}

// SessionSummary is one row of the list_sessions response.
type SessionSummary struct {
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	TotalFiles     int    `json:"total_files"`
	ProcessedFiles int    `json:"processed_files"`
	CreatedAtUnix  int64  `json:"created_at"`
}

// SessionListData enumerates live sessions, oldest first.
type SessionListData struct {
	Sessions []SessionSummary `json:"sessions"`
}

// PongData reports service liveness.
type PongData struct {
	PID            int `json:"pid"`
	ActiveSessions int `json:"active_sessions"`
	UptimeSeconds  int `json:"uptime_seconds"`
}
