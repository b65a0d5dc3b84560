package daemon

import (
	"context"
	"errors"
	"os"

	"umservice/internal/protocol"
	"umservice/internal/session"
)

// Handle implements ipc.Handler. Every request gets exactly one response;
// failures carry a stable code in the error text.
func (d *Daemon) Handle(_ context.Context, msg *protocol.Message) *protocol.Response {
	switch msg.Type {
	case protocol.TypeStartSession:
		return d.handleStartSession(msg)
	case protocol.TypeAddFiles:
		return d.handleAddFiles(msg)
	case protocol.TypeStartProcessing:
		return d.handleStartProcessing(msg)
	case protocol.TypeGetProgress:
		return d.handleGetProgress(msg)
	case protocol.TypeStopProcessing:
		return d.handleStopProcessing(msg)
	case protocol.TypeEndSession:
		return d.handleEndSession(msg)
	case protocol.TypeListSessions:
		return d.handleListSessions(msg)
	case protocol.TypePing:
		return d.handlePing(msg)
	case protocol.TypeShutdown:
		return d.handleShutdown(msg)
	default:
		return protocol.Failure(msg.ID, "unknown_message_type", msg.Type)
	}
}

func (d *Daemon) handleStartSession(msg *protocol.Message) *protocol.Response {
	id, err := d.manager.StartSession()
	if err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeSessionStarted, protocol.SessionStartedData{SessionID: id})
}

func (d *Daemon) handleAddFiles(msg *protocol.Message) *protocol.Response {
	var data protocol.AddFilesData
	if err := msg.DecodeData(&data); err != nil {
		return protocol.Failure(msg.ID, "malformed_request", err.Error())
	}
	added, total, err := d.manager.AddFiles(data.SessionID, data.Files)
	if err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeFilesAdded, protocol.FilesAddedData{
		AddedCount: added,
		TotalFiles: total,
	})
}

func (d *Daemon) handleStartProcessing(msg *protocol.Message) *protocol.Response {
	var data protocol.StartProcessingData
	if err := msg.DecodeData(&data); err != nil {
		return protocol.Failure(msg.ID, "malformed_request", err.Error())
	}
	count, err := d.manager.StartProcessing(data.SessionID, data.Options)
	if err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeProcessingStarted, protocol.ProcessingStartedData{
		SessionID: data.SessionID,
		FileCount: count,
		Status:    session.StatusRunning.String(),
	})
}

func (d *Daemon) handleGetProgress(msg *protocol.Message) *protocol.Response {
	var data protocol.SessionRefData
	if err := msg.DecodeData(&data); err != nil {
		return protocol.Failure(msg.ID, "malformed_request", err.Error())
	}
	snap, err := d.manager.Progress(data.SessionID)
	if err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeProgressUpdate, protocol.ProgressUpdateData{
		SessionID:      snap.SessionID,
		Status:         snap.Status.String(),
		TotalFiles:     snap.TotalFiles,
		ProcessedFiles: snap.ProcessedFiles,
		Result:         snap.Result,
	})
}

func (d *Daemon) handleStopProcessing(msg *protocol.Message) *protocol.Response {
	var data protocol.SessionRefData
	if err := msg.DecodeData(&data); err != nil {
		return protocol.Failure(msg.ID, "malformed_request", err.Error())
	}
	status, err := d.manager.StopProcessing(data.SessionID)
	if err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeProcessingStopped, protocol.ProcessingStoppedData{
		SessionID: data.SessionID,
		Status:    status.String(),
	})
}

func (d *Daemon) handleEndSession(msg *protocol.Message) *protocol.Response {
	var data protocol.SessionRefData
	if err := msg.DecodeData(&data); err != nil {
		return protocol.Failure(msg.ID, "malformed_request", err.Error())
	}
	if err := d.manager.EndSession(data.SessionID); err != nil {
		return failureFrom(msg.ID, err)
	}
	return successOrInternal(msg.ID, protocol.TypeSessionEnded, protocol.SessionEndedData{SessionID: data.SessionID})
}

func (d *Daemon) handleListSessions(msg *protocol.Message) *protocol.Response {
	snaps := d.manager.List()
	summaries := make([]protocol.SessionSummary, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, protocol.SessionSummary{
			SessionID:      snap.SessionID,
			Status:         snap.Status.String(),
			TotalFiles:     snap.TotalFiles,
			ProcessedFiles: snap.ProcessedFiles,
			CreatedAtUnix:  snap.CreatedAt.Unix(),
		})
	}
	return successOrInternal(msg.ID, protocol.TypeSessionList, protocol.SessionListData{Sessions: summaries})
}

func (d *Daemon) handlePing(msg *protocol.Message) *protocol.Response {
	return successOrInternal(msg.ID, protocol.TypePong, protocol.PongData{
		PID:            os.Getpid(),
		ActiveSessions: d.manager.ActiveCount(),
		UptimeSeconds:  int(d.Uptime().Seconds()),
	})
}

func (d *Daemon) handleShutdown(msg *protocol.Message) *protocol.Response {
	resp := successOrInternal(msg.ID, protocol.TypeShutdownScheduled, nil)
	d.triggerShutdown()
	return resp
}

// failureFrom maps a session error onto the wire without duplicating the
// code inside the detail text.
func failureFrom(msgID string, err error) *protocol.Response {
	var sessErr *session.Error
	if errors.As(err, &sessErr) {
		return protocol.Failure(msgID, sessErr.Code, sessErr.Message)
	}
	return protocol.Failure(msgID, session.CodeInternal, err.Error())
}

func successOrInternal(msgID, respType string, payload any) *protocol.Response {
	resp, err := protocol.Success(msgID, respType, payload)
	if err != nil {
		return protocol.Failure(msgID, session.CodeInternal, err.Error())
	}
	return resp
}
