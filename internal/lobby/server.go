// Package lobby implements the Game Lobby Server (spec §4.3): one process
// per game, owning that title's room table and spawning room-server
// children.
package lobby

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"sync"

	"github.com/playforge/gamehost/internal/portalloc"
	"github.com/playforge/gamehost/internal/supervisor"
	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

// Server is a Game Lobby Server process.
type Server struct {
	host          string
	port          int
	roomPortStart int
	gameDir       string
	gameName      string
	builtinBinary string
	builtinKind   string

	rooms *roomTable
	ports *portalloc.Allocator

	mu sync.Mutex // serializes create_room/join_room/leave_room (spec §5)

	logger   *slog.Logger
	metrics  *metrics.LobbyMetrics
	listener net.Listener
}

// Config configures a Server's dependencies.
type Config struct {
	Host          string
	Port          int
	RoomPortStart int
	GameDir       string
	GameName      string
	BuiltinBinary string // fallback room server binary when the package has none
	BuiltinKind   string // --kind passed to the fallback binary
	Logger        *slog.Logger
	Metrics       *metrics.LobbyMetrics
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	s := &Server{
		host:          cfg.Host,
		port:          cfg.Port,
		roomPortStart: cfg.RoomPortStart,
		gameDir:       cfg.GameDir,
		gameName:      cfg.GameName,
		builtinBinary: cfg.BuiltinBinary,
		builtinKind:   cfg.BuiltinKind,
		ports:         portalloc.New(cfg.Host),
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
	sv := supervisor.New(cfg.Logger, s.onRoomServerExit)
	s.rooms = newRoomTable(sv)
	return s
}

func (s *Server) onRoomServerExit(roomID string, child *supervisor.Child) {
	s.rooms.onRoomServerExit(roomID, child)
	s.metrics.RoomsClosed.Inc()
	s.metrics.RoomsActive.Set(float64(s.activeRoomCount()))
}

func (s *Server) activeRoomCount() int {
	count := 0
	for _, r := range s.rooms.list() {
		if r.Status == roomWaiting {
			count++
		}
	}
	return count
}

// ListenAndServe binds the TCP listener and accepts connections until it is
// closed.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("lobby: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.logger.Info("lobby server listening", "game_name", s.gameName, "addr", ln.Addr())

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
	defer conn.Close()
	c := wire.NewConn(conn)

	for {
		req, err := c.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("read error, closing connection", "error", err)
			}
			return
		}
		s.dispatch(c, req)
	}
}

func (s *Server) dispatch(c *wire.Conn, req wire.Request) {
	if req.Type != "lobby" {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeUnknownType, "unknown request type"))
		return
	}
	switch req.Action {
	case "list_rooms":
		s.handleListRooms(c, req)
	case "create_room":
		s.handleCreateRoom(c, req)
	case "join_room":
		s.handleJoinRoom(c, req)
	case "leave_room":
		s.handleLeaveRoom(c, req)
	default:
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeUnsupported, "unsupported lobby action"))
	}
}

func (s *Server) reply(c *wire.Conn, resp wire.Response) {
	if err := c.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
	}
}

// spawnRoomServer allocates a port and starts the room-server child,
// preferring the game package's own entry point and falling back to the
// built-in reference binary (spec §4.3 "create_room").
func (s *Server) spawnRoomServer(roomID string, maxPlayers int) (host string, port int, err error) {
	port, err = s.ports.Allocate(s.roomPortStart)
	if err != nil {
		return "", 0, fmt.Errorf("allocate room port: %w", err)
	}

	var cmd *exec.Cmd
	if entry, ok := resolveRoomServerEntry(s.gameDir); ok {
		cmd = exec.Command(entry,
			"--host", s.host,
			"--port", strconv.Itoa(port),
			"--max-players", strconv.Itoa(maxPlayers),
			"--game-name", s.gameName,
			"--room-id", roomID,
		)
	} else if s.builtinBinary != "" {
		cmd = exec.Command(s.builtinBinary,
			"--host", s.host,
			"--port", strconv.Itoa(port),
			"--max-players", strconv.Itoa(maxPlayers),
			"--game-name", s.gameName,
			"--room-id", roomID,
			"--kind", s.builtinKind,
		)
	} else {
		s.ports.Release(port)
		return "", 0, errRoomServerMissing
	}

	if _, err := s.rooms.supervisor.Spawn(roomID, cmd); err != nil {
		s.ports.Release(port)
		s.metrics.RoomSpawns.WithLabelValues("error").Inc()
		return "", 0, fmt.Errorf("%w: %v", errRoomServerFailed, err)
	}
	s.metrics.RoomSpawns.WithLabelValues("ok").Inc()
	return s.host, port, nil
}
