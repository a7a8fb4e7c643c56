package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

// Server is a tick-based room server: a single World stepped at a fixed
// rate and broadcast to every connected player (spec §4.4 "Reference
// framing").
type Server struct {
	host       string
	port       int
	roomID     string
	gameName   string
	maxPlayers int
	tickRateHz int

	world *World

	connsMu sync.Mutex
	conns   map[string]*wire.Conn

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
	TickRateHz int
	Logger     *slog.Logger
	Metrics    *metrics.RoomMetrics
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 4
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 30
	}
	return &Server{
		host:       cfg.Host,
		port:       cfg.Port,
		roomID:     cfg.RoomID,
		gameName:   cfg.GameName,
		maxPlayers: cfg.MaxPlayers,
		tickRateHz: cfg.TickRateHz,
		world:      newWorld(),
		conns:      make(map[string]*wire.Conn),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// ListenAndServe binds the TCP listener and serves until it is closed.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("room/runner: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and runs the tick loop until ln is
// closed.
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.logger.Info("tick room server listening",
		"room_id", s.roomID, "game_name", s.gameName, "addr", ln.Addr(), "tick_rate_hz", s.tickRateHz)

	stop := make(chan struct{})
	go s.tickLoop(stop)
	defer close(stop)

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

func (s *Server) tickLoop(stop <-chan struct{}) {
	interval := time.Second / time.Duration(s.tickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dt := interval.Seconds()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.world.step(dt)
			s.metrics.TicksTotal.Inc()
			s.broadcastState()
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	c := wire.NewConn(conn)
	var username string

	defer func() {
		if username != "" {
			s.world.removePlayer(username)
			s.metrics.PlayersSeated.Dec()
			s.connsMu.Lock()
			delete(s.conns, username)
			s.connsMu.Unlock()
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
			var body struct {
				Username string `json:"username"`
			}
			if err := json.Unmarshal(req.Data, &body); err != nil {
				s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
				continue
			}
			s.connsMu.Lock()
			full := len(s.conns) >= s.maxPlayers
			if !full {
				username = body.Username
				s.conns[username] = c
			}
			s.connsMu.Unlock()
			if full {
				s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomFull, "room is full"))
				return
			}
			s.world.addPlayer(username)
			s.reply(c, wire.OK(req.Type, req.Action, map[string]string{"message": "WELCOME"}))
			s.metrics.PlayersSeated.Inc()
		case "input":
			if username == "" {
				continue
			}
			var body struct {
				Move        [2]float64 `json:"move"`
				TurretDelta float64    `json:"turret_delta"`
				Fire        bool       `json:"fire"`
			}
			if err := json.Unmarshal(req.Data, &body); err != nil {
				continue
			}
			s.world.setInput(username, Input{
				MoveX: body.Move[0], MoveY: body.Move[1],
				TurretDelta: body.TurretDelta, Fire: body.Fire,
			})
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

func (s *Server) broadcastState() {
	snap := s.world.snapshot()
	resp := wire.OK("room", "state", snap)

	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	var dead []string
	for user, conn := range s.conns {
		if err := conn.WriteResponse(resp); err != nil {
			dead = append(dead, user)
		}
	}
	for _, user := range dead {
		delete(s.conns, user)
		s.world.removePlayer(user)
	}
}
