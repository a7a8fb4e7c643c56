// Package central implements the Central Directory Server (spec §4.1): the
// root of the three-tier hierarchy, accepting long-lived client sessions,
// routing auth/store/dev requests, and owning the lobby-process table.
package central

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/packages"
	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

// Server is the Central Directory Server.
type Server struct {
	host string
	port int

	store    metadata.Store
	packages *packages.Store
	lobbies  *lobbyTable
	sessions *sessionTable

	logger  *slog.Logger
	metrics *metrics.CentralMetrics

	listener net.Listener
}

// Config configures a Server's dependencies (the pieces cmd/central wires
// together from pkg/config.CentralConfig).
type Config struct {
	Host          string
	Port          int
	Store         metadata.Store
	Packages      *packages.Store
	LobbyBinPath  string
	LobbyBasePort int
	Logger        *slog.Logger
	Metrics       *metrics.CentralMetrics
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	return &Server{
		host:     cfg.Host,
		port:     cfg.Port,
		store:    cfg.Store,
		packages: cfg.Packages,
		lobbies:  newLobbyTable(cfg.Host, cfg.LobbyBasePort, cfg.LobbyBinPath, cfg.Logger, cfg.Metrics),
		sessions: newSessionTable(),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// ListenAndServe binds the TCP listener and accepts connections until the
// listener is closed.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("central: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed. Tests that need the
// bound address before Accept starts can create ln themselves and call this
// directly.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.logger.Info("central server listening", "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept error", "error", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	sess := s.sessions.register(conn)
	s.logger.Debug("connection accepted", "session_id", sess.id, "remote_addr", conn.RemoteAddr())

	defer func() {
		s.sessions.remove(sess)
		conn.Close()
		s.metrics.SessionsActive.Set(float64(s.sessions.activeCount()))
		s.logger.Debug("connection closed", "session_id", sess.id)
	}()

	for {
		req, err := sess.wireConn.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("read error, closing session", "session_id", sess.id, "error", err)
			}
			return
		}
		s.dispatch(sess, req)
	}
}

func (s *Server) dispatch(sess *session, req wire.Request) {
	switch req.Type {
	case "auth":
		s.handleAuth(sess, req)
	case "store":
		s.handleStore(sess, req)
	case "dev":
		s.handleDev(sess, req)
	default:
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUnknownType, "unknown request type"))
	}
}

func (s *Server) reply(sess *session, resp wire.Response) {
	if err := sess.wireConn.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "session_id", sess.id, "error", err)
	}
}

func (s *Server) requireAuth(sess *session, reqType, action string) bool {
	if sess.state != stateAuth {
		s.reply(sess, wire.Err(reqType, action, wire.CodeNotAuthenticated, "this action requires an authenticated session"))
		return false
	}
	return true
}
