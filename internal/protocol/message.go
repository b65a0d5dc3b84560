package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message types accepted by the service.
const (
	TypeStartSession    = "start_session"
	TypeAddFiles        = "add_files"
	TypeStartProcessing = "start_processing"
	TypeGetProgress     = "get_progress"
	TypeStopProcessing  = "stop_processing"
	TypeEndSession      = "end_session"
	TypeListSessions    = "list_sessions"
	TypePing            = "ping"
	TypeShutdown        = "shutdown"
)

// Response types emitted by the service.
const (
	TypeSessionStarted    = "session_started"
	TypeFilesAdded        = "files_added"
	TypeProcessingStarted = "processing_started"
	TypeProgressUpdate    = "progress_update"
	TypeProcessingStopped = "processing_stopped"
	TypeSessionEnded      = "session_ended"
	TypeSessionList       = "session_list"
	TypePong              = "pong"
	TypeShutdownScheduled = "shutdown_scheduled"
	TypeError             = "error"
)

// Message is the request envelope. Data is type-specific.
type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Response is the reply envelope. Exactly one Response is written per Message.
type Response struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// NewMessage builds a request envelope with a fresh UUID and the payload
// marshaled into the generic data map.
func NewMessage(msgType string, payload any) (*Message, error) {
	data, err := toDataMap(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Success builds a success response correlated to the request id.
func Success(requestID, respType string, payload any) (*Response, error) {
	data, err := toDataMap(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", respType, err)
	}
	return &Response{
		ID:        requestID,
		Type:      respType,
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Failure builds an error response. The error text starts with a stable
// machine-readable code followed by ": " and a human explanation.
func Failure(requestID, code, detail string) *Response {
	text := code
	if strings.TrimSpace(detail) != "" {
		text = code + ": " + detail
	}
	return &Response{
		ID:        requestID,
		Type:      TypeError,
		Success:   false,
		Error:     text,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorCode extracts the leading code from a response error string.
func ErrorCode(errText string) string {
	code, _, _ := strings.Cut(errText, ":")
	return strings.TrimSpace(code)
}

// DecodeData unmarshals the envelope's data map into a typed payload.
func (m *Message) DecodeData(v any) error {
	return decodeMap(m.Data, v)
}

// DecodeData unmarshals the response data map into a typed payload.
func (r *Response) DecodeData(v any) error {
	return decodeMap(r.Data, v)
}

func toDataMap(payload any) (map[string]any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	if m, ok := payload.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func decodeMap(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
