package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"whorl/internal/api"
	"whorl/internal/daemon"
	"whorl/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Whorl", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
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
					logging.String("socket", s.path),
					logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Bind = status.Bind
	resp.DatabasePath = status.DatabasePath
	resp.SocketPath = status.SocketPath
	resp.LockPath = status.LockFilePath
	resp.StartedAt = api.FormatTimestamp(status.StartedAt)
	resp.Totals = api.FromTotals(&status.Totals)
	return nil
}

func (s *service) Stats(req StatsRequest, resp *StatsResponse) error {
	out, err := s.daemon.Stats(s.ctx, req.Days)
	if err != nil {
		return err
	}
	if out != nil {
		*resp = *out
	}
	return nil
}

func (s *service) VisitorDescribe(req VisitorDescribeRequest, resp *VisitorDescribeResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("visitor id is required")
	}
	detail, err := s.daemon.DescribeVisitor(s.ctx, id)
	if err != nil {
		return err
	}
	if detail == nil {
		return fmt.Errorf("visitor %s not found", id)
	}
	resp.Visitor = *detail
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	*resp = s.daemon.DatabaseHealth(s.ctx)
	return nil
}

func (s *service) Flush(_ FlushRequest, resp *FlushResponse) error {
	s.log().Debug("flush requested")
	removed, err := s.daemon.Flush(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("visitor data flushed via IPC", logging.Int64("removed_count", removed))
	return nil
}
