// Package server provides the TCP lifecycle for the FTP control
// listener: accept loop, client limiting, connection tracking and
// graceful shutdown. It knows nothing about the FTP protocol itself;
// the handler injected via Factory owns the wire conversation.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rakshithvk19/rax-ftp-server/internal/logger"
	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
)

// Handler serves one accepted control connection. Serve blocks until
// the conversation ends or the connection is closed out from under it
// during shutdown.
type Handler interface {
	Serve(ctx context.Context, conn net.Conn)
}

// Config holds the control-listener configuration.
type Config struct {
	// BindAddress is the IP address to bind to.
	BindAddress string

	// Port is the control port to listen on.
	Port int

	// MaxClients limits concurrent control connections. 0 means
	// unlimited. Connections over the limit are still accepted so the
	// OnReject hook can tell the client why, then closed immediately.
	MaxClients int

	// ShutdownTimeout bounds the wait for active sessions during
	// graceful shutdown; survivors are force-closed.
	ShutdownTimeout time.Duration

	// OnReject is called with an over-limit connection before it is
	// closed. May be nil.
	OnReject func(conn net.Conn)
}

// Server runs the control-connection accept loop.
type Server struct {
	config  Config
	handler Handler

	// Metrics may be nil.
	Metrics metrics.FTPMetrics

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed once the listener is bound. Tests use it
	// to synchronize with startup.
	ListenerReady chan struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once

	cancelSessions context.CancelFunc
	sessionCtx     context.Context

	activeSessions sync.WaitGroup
	sessionCount   atomic.Int32

	// conns maps remote address to net.Conn for shutdown interruption
	// and forced closure.
	conns sync.Map

	slots chan struct{}
}

// New creates a stopped server. Call Serve to start it.
func New(config Config, handler Handler, m metrics.FTPMetrics) *Server {
	var slots chan struct{}
	if config.MaxClients > 0 {
		slots = make(chan struct{}, config.MaxClients)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:         config,
		handler:        handler,
		Metrics:        m,
		ListenerReady:  make(chan struct{}),
		shutdown:       make(chan struct{}),
		sessionCtx:     ctx,
		cancelSessions: cancel,
		slots:          slots,
	}
}

// Serve binds the control listener and accepts connections until ctx
// is canceled or Stop is called. It returns nil on graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.BindAddress, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding control listener on %s: %w", addr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.ListenerReady)

	logger.Info("FTP server listening", logger.KeyDataAddr, listener.Addr().String())

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Accept failed", logger.KeyError, err)
				continue
			}
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		if !s.acquireSlot() {
			logger.Warn("Client limit reached, refusing connection",
				logger.KeyClientAddr, conn.RemoteAddr().String())
			if s.config.OnReject != nil {
				s.config.OnReject(conn)
			}
			_ = conn.Close()
			if s.Metrics != nil {
				s.Metrics.RecordSessionRejected()
			}
			continue
		}

		s.activeSessions.Add(1)
		active := s.sessionCount.Add(1)

		addr := conn.RemoteAddr().String()
		s.conns.Store(addr, conn)

		if s.Metrics != nil {
			s.Metrics.RecordSessionStarted()
		}
		logger.Debug("Connection accepted",
			logger.KeyClientAddr, addr, "active", active)

		go func(addr string, conn net.Conn) {
			defer func() {
				_ = conn.Close()
				s.conns.Delete(addr)
				s.activeSessions.Done()
				s.sessionCount.Add(-1)
				s.releaseSlot()
				if s.Metrics != nil {
					s.Metrics.RecordSessionClosed()
				}
			}()

			s.handler.Serve(s.sessionCtx, conn)
		}(addr, conn)
	}
}

// acquireSlot claims a client slot without blocking.
func (s *Server) acquireSlot() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseSlot() {
	if s.slots != nil {
		<-s.slots
	}
}

// initiateShutdown closes the listener, interrupts blocking reads on
// every active connection and cancels the session context. Safe to
// call multiple times.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.KeyError, err)
			}
		}
		s.listenerMu.Unlock()

		deadline := time.Now().Add(100 * time.Millisecond)
		s.conns.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				_ = conn.SetReadDeadline(deadline)
			}
			return true
		})

		s.cancelSessions()
	})
}

// gracefulShutdown waits for active sessions up to ShutdownTimeout,
// then force-closes the rest.
func (s *Server) gracefulShutdown() error {
	remaining := s.sessionCount.Load()
	logger.Info("Graceful shutdown: waiting for active sessions", "active", remaining)

	done := make(chan struct{})
	go func() {
		s.activeSessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete")
		return nil
	case <-time.After(s.config.ShutdownTimeout):
		remaining = s.sessionCount.Load()
		logger.Warn("Shutdown timeout exceeded, forcing closure", "active", remaining)
		s.forceClose()
		return fmt.Errorf("shutdown timeout: %d sessions force-closed", remaining)
	}
}

func (s *Server) forceClose() {
	s.conns.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.Close(); err != nil {
				logger.Debug("Error force-closing connection",
					logger.KeyClientAddr, key, logger.KeyError, err)
			}
		}
		return true
	})
}

// Stop initiates shutdown and waits for sessions to drain, bounded by
// ShutdownTimeout. Safe to call multiple times and concurrently with
// Serve.
func (s *Server) Stop() error {
	s.initiateShutdown()
	return s.gracefulShutdown()
}

// Addr returns the bound listener address. It blocks until the
// listener is ready, making it safe for tests using port 0.
func (s *Server) Addr() string {
	<-s.ListenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveSessions returns the number of currently served connections.
func (s *Server) ActiveSessions() int32 {
	return s.sessionCount.Load()
}
