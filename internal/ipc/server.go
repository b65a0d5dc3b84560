package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"runtime"
	"sync"

	"umservice/internal/logging"
	"umservice/internal/protocol"
)

// Handler processes one request envelope and always yields a response.
type Handler interface {
	Handle(ctx context.Context, msg *protocol.Message) *protocol.Response
}

// Server accepts connections on the local endpoint and dispatches envelopes
// to the handler one at a time per connection.
type Server struct {
	endpoint string
	handler  Handler
	logger   *slog.Logger
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the endpoint. Call Serve to start accepting.
func NewServer(ctx context.Context, endpoint string, handler Handler, logger *slog.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("ipc server requires a handler")
	}

	listener, err := listen(endpoint)
	if err != nil {
		return nil, err
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		endpoint: endpoint,
		handler:  handler,
		logger:   logging.NewComponentLogger(logger, "ipc"),
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Endpoint returns the bound socket path or pipe name.
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Serve starts accepting connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Info("ipc server listening", logging.String("endpoint", s.endpoint))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check endpoint permissions and restart the service if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.serveConn(c)
			}(conn)
		}
	}()
}

// Close stops accepting, waits for in-flight requests and removes the socket.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if runtime.GOOS != "windows" {
		if err := os.RemoveAll(s.endpoint); err != nil {
			s.logger.Warn("failed to remove socket",
				logging.String("endpoint", s.endpoint),
				logging.Error(err),
				logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
		}
	}
}

// serveConn runs the request loop for one connection. A malformed line gets
// an error response and terminates the connection, since framing can no
// longer be trusted.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	codec := protocol.NewCodec(conn)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msg, err := codec.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, protocol.ErrMalformed) {
				s.logger.Warn("malformed request", logging.Error(err))
				_ = codec.WriteResponse(protocol.Failure("", "malformed_request", err.Error()))
			}
			return
		}

		resp := s.handler.Handle(s.ctx, msg)
		if resp == nil {
			resp = protocol.Failure(msg.ID, "internal_error", "handler returned no response")
		}
		if err := codec.WriteResponse(resp); err != nil {
			s.logger.Warn("failed to write response",
				logging.String("type", msg.Type),
				logging.Error(err))
			return
		}
	}
}
