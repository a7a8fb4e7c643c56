package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

// Server is the grid-game room server: one process per match, holding a
// single GameState shared by up to two connections.
type Server struct {
	host       string
	port       int
	roomID     string
	gameName   string
	maxPlayers int

	state *GameState

	connsMu sync.Mutex
	conns   map[string]net.Conn // username -> raw connection, for shutdown

	logger   *slog.Logger
	metrics  *metrics.RoomMetrics
	listener net.Listener
}

// Config configures a Server's dependencies.
type Config struct {
	Host       string
	Port       int
	RoomID     string
	GameName   string
	MaxPlayers int
	Logger     *slog.Logger
	Metrics    *metrics.RoomMetrics
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 2
	}
	return &Server{
		host:       cfg.Host,
		port:       cfg.Port,
		roomID:     cfg.RoomID,
		gameName:   cfg.GameName,
		maxPlayers: cfg.MaxPlayers,
		state:      newGameState(),
		conns:      make(map[string]net.Conn),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// ListenAndServe binds the TCP listener and serves until the match ends or
// the listener is closed.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("room: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, exiting (without error) once the match
// has been deactivated by a play-again "no" vote, or once ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.logger.Info("room server listening", "room_id", s.roomID, "game_name", s.gameName, "addr", ln.Addr())

	for s.state.isActive() {
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
	return nil
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// shutdown marks the match inactive, closes every connected socket, and
// closes the listener so Serve returns and the process can exit (spec
// §4.4 "Play again": any false vote terminates the room).
func (s *Server) shutdown() {
	s.state.deactivate()
	s.connsMu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()
	s.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	c := wire.NewConn(conn)
	var username string

	defer func() {
		if username != "" {
			s.state.removePlayer(username)
			s.metrics.PlayersSeated.Dec()
			s.connsMu.Lock()
			delete(s.conns, username)
			s.connsMu.Unlock()
			s.broadcastState()
			s.logger.Info("player disconnected", "room_id", s.roomID, "username", username)
		}
	}()

	for {
		req, err := c.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("read error, closing connection", "error", err)
			}
			return
		}
		if req.Type != "room" {
			s.reply(c, wire.Err(req.Type, req.Action, wire.CodeUnknownType, "unknown request type"))
			continue
		}

		switch req.Action {
		case "join":
			if done := s.handleJoin(c, req, &username); done {
				return
			}
			if username != "" {
				s.connsMu.Lock()
				s.conns[username] = conn
				s.connsMu.Unlock()
			}
		case "move":
			s.handleMove(c, req, username)
		case "play_again":
			if done := s.handlePlayAgain(c, req, username); done {
				return
			}
		default:
			s.reply(c, wire.Err(req.Type, req.Action, wire.CodeUnsupported, "unsupported room action"))
		}
	}
}

func (s *Server) reply(c *wire.Conn, resp wire.Response) {
	if err := c.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
	}
}

// broadcastState serializes the current snapshot once and sends it to every
// connected player, pruning connections whose send fails (treated as a
// disconnect), per spec §4.4 "Broadcast".
func (s *Server) broadcastState() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	data, err := json.Marshal(wire.OK("room", "state", s.state.snapshotLocked()))
	if err != nil {
		s.logger.Warn("state snapshot encode failed", "error", err)
		return
	}
	data = append(data, '\n')

	var dead []string
	for user, conn := range s.state.connections {
		if err := conn.WriteExact(data); err != nil {
			dead = append(dead, user)
		}
	}
	for _, user := range dead {
		s.state.removePlayerLocked(user)
	}
}
