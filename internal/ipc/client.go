package ipc

import (
	"fmt"
	"net"
	"sync"
	"time"

	"umservice/internal/batch"
	"umservice/internal/protocol"
)

// RemoteError is a failure response surfaced by the service.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Client speaks the envelope protocol over one connection. Calls are
// serialized; the protocol is strictly request/response per connection.
type Client struct {
	mu    sync.Mutex
	conn  net.Conn
	codec *protocol.Codec
}

// Dial connects to the service endpoint within the timeout.
func Dial(endpoint string, timeout time.Duration) (*Client, error) {
	conn, err := dial(endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, codec: protocol.NewCodec(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Call sends one envelope and waits for its response. A failure response is
// returned as a *RemoteError.
func (c *Client) Call(msgType string, payload, result any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.codec.WriteMessage(msg); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	resp, err := c.codec.ReadResponse()
	if err != nil {
		return fmt.Errorf("receive %s response: %w", msgType, err)
	}
	if resp.ID != msg.ID {
		return fmt.Errorf("response id mismatch: sent %s, got %s", msg.ID, resp.ID)
	}
	if !resp.Success {
		return &RemoteError{Code: protocol.ErrorCode(resp.Error), Message: resp.Error}
	}
	if result != nil {
		if err := resp.DecodeData(result); err != nil {
			return fmt.Errorf("decode %s response: %w", msgType, err)
		}
	}
	return nil
}

// StartSession allocates a session and returns its id.
func (c *Client) StartSession() (string, error) {
	var data protocol.SessionStartedData
	if err := c.Call(protocol.TypeStartSession, protocol.StartSessionData{}, &data); err != nil {
		return "", err
	}
	return data.SessionID, nil
}

// AddFiles queues tasks on the session.
func (c *Client) AddFiles(sessionID string, files []batch.FileTask) (*protocol.FilesAddedData, error) {
	var data protocol.FilesAddedData
	err := c.Call(protocol.TypeAddFiles, protocol.AddFilesData{SessionID: sessionID, Files: files}, &data)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// StartProcessing dispatches the queued batch asynchronously.
func (c *Client) StartProcessing(sessionID string, opts batch.Options) (*protocol.ProcessingStartedData, error) {
	var data protocol.ProcessingStartedData
	err := c.Call(protocol.TypeStartProcessing, protocol.StartProcessingData{SessionID: sessionID, Options: opts}, &data)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// Progress fetches the session's progress snapshot.
func (c *Client) Progress(sessionID string) (*protocol.ProgressUpdateData, error) {
	var data protocol.ProgressUpdateData
	err := c.Call(protocol.TypeGetProgress, protocol.SessionRefData{SessionID: sessionID}, &data)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// StopProcessing requests cooperative cancellation.
func (c *Client) StopProcessing(sessionID string) error {
	return c.Call(protocol.TypeStopProcessing, protocol.SessionRefData{SessionID: sessionID}, nil)
}

// EndSession destroys the session.
func (c *Client) EndSession(sessionID string) error {
	return c.Call(protocol.TypeEndSession, protocol.SessionRefData{SessionID: sessionID}, nil)
}

// ListSessions enumerates live sessions on the service.
func (c *Client) ListSessions() (*protocol.SessionListData, error) {
	var data protocol.SessionListData
	if err := c.Call(protocol.TypeListSessions, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Ping checks service liveness and returns basic stats.
func (c *Client) Ping() (*protocol.PongData, error) {
	var data protocol.PongData
	if err := c.Call(protocol.TypePing, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Shutdown asks the service to exit once in-flight batches drain.
func (c *Client) Shutdown() error {
	return c.Call(protocol.TypeShutdown, nil, nil)
}
