package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"md5watch/internal/daemon"
	"md5watch/internal/ledger"
	"md5watch/internal/logging"
	"md5watch/internal/report"
)

const closeGrace = 2 * time.Second

// Server exposes watcher control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
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

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    svc.logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
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
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart md5watch if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server and removes the socket file. Clients get closeGrace
// to finish in-flight calls before their connections are dropped.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(closeGrace):
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		<-finished
	}
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may confuse md5watch status"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("stop requested over IPC")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Recent(req RecentRequest, resp *RecentResponse) error {
	filter := ledger.Filter{Name: req.Name, Since: req.Since}
	if req.Classification != "" {
		c, ok := report.ParseClassification(req.Classification)
		if !ok {
			return fmt.Errorf("unknown classification %q", req.Classification)
		}
		filter.Classification = c
	}
	items, err := s.daemon.Recent(s.ctx, req.Limit, filter)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.DatabaseHealth = health
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return err
	}
	resp.Sent = sent
	resp.Message = message
	return nil
}
