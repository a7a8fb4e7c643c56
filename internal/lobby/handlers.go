package lobby

import (
	"encoding/json"
	"errors"

	"github.com/playforge/gamehost/internal/wire"
)

func (s *Server) handleListRooms(c *wire.Conn, req wire.Request) {
	rooms := s.rooms.list()
	s.reply(c, wire.OK(req.Type, req.Action, map[string]interface{}{"rooms": roomsWithCounts(rooms)}))
}

type roomView struct {
	room
	PlayersCount int `json:"players_count"`
}

// roomsWithCounts annotates each room with players_count, the summary field
// the original lobby's CLI client computes inline (SPEC_FULL.md).
func roomsWithCounts(rooms []room) []roomView {
	out := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomView{room: r, PlayersCount: len(r.Players)})
	}
	return out
}

type createRoomRequest struct {
	Username   string `json:"username"`
	MaxPlayers int    `json:"max_players"`
	Version    string `json:"version"`
}

type roomAddress struct {
	RoomID         string `json:"room_id"`
	GameName       string `json:"game_name"`
	Version        string `json:"version"`
	RoomServerHost string `json:"room_server_host"`
	RoomServerPort int    `json:"room_server_port"`
}

func (s *Server) handleCreateRoom(c *wire.Conn, req wire.Request) {
	var body createRoomRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rooms.inWaitingRoom(body.Username) {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeAlreadyInRoom, "already seated in another waiting room"))
		return
	}

	s.rooms.mu.Lock()
	roomID := s.rooms.nextRoomID()
	s.rooms.mu.Unlock()

	host, port, err := s.spawnRoomServer(roomID, body.MaxPlayers)
	if err != nil {
		switch {
		case errors.Is(err, errRoomServerMissing):
			s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomServerMissing, err.Error()))
		default:
			s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomServerFailed, err.Error()))
		}
		return
	}

	s.rooms.mu.Lock()
	s.rooms.rooms[roomID] = &room{
		RoomID:         roomID,
		GameName:       s.gameName,
		Version:        body.Version,
		HostUsername:   body.Username,
		MaxPlayers:     body.MaxPlayers,
		Players:        []string{body.Username},
		RoomServerHost: host,
		RoomServerPort: port,
		Status:         roomWaiting,
	}
	s.rooms.mu.Unlock()

	s.metrics.RoomsCreated.Inc()
	s.metrics.RoomsActive.Set(float64(s.activeRoomCount()))

	s.reply(c, wire.OK(req.Type, req.Action, roomAddress{
		RoomID: roomID, GameName: s.gameName, Version: body.Version,
		RoomServerHost: host, RoomServerPort: port,
	}))
}

type joinRoomRequest struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

func (s *Server) handleJoinRoom(c *wire.Conn, req wire.Request) {
	var body joinRoomRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms.mu.Lock()
	r, ok := s.rooms.rooms[body.RoomID]
	s.rooms.mu.Unlock()
	if !ok {
		s.metrics.RoomJoinDenied.WithLabelValues("not_found").Inc()
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomNotFound, "no such room"))
		return
	}

	alreadyHere := contains(r.Players, body.Username)
	if !alreadyHere && s.rooms.inWaitingRoom(body.Username) {
		s.metrics.RoomJoinDenied.WithLabelValues("already_in_room").Inc()
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeAlreadyInRoom, "already seated in another waiting room"))
		return
	}

	s.rooms.mu.Lock()
	defer s.rooms.mu.Unlock()

	if r.Status != roomWaiting {
		s.metrics.RoomJoinDenied.WithLabelValues("not_joinable").Inc()
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomNotJoinable, "room is not accepting players"))
		return
	}
	if !alreadyHere && len(r.Players) >= r.MaxPlayers {
		s.metrics.RoomJoinDenied.WithLabelValues("full").Inc()
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomFull, "room is full"))
		return
	}
	if !alreadyHere {
		r.Players = append(r.Players, body.Username)
	}

	s.metrics.RoomJoins.Inc()
	s.reply(c, wire.OK(req.Type, req.Action, roomAddress{
		RoomID: r.RoomID, GameName: r.GameName, Version: r.Version,
		RoomServerHost: r.RoomServerHost, RoomServerPort: r.RoomServerPort,
	}))
}

type leaveRoomRequest struct {
	RoomID   string `json:"room_id,omitempty"`
	Username string `json:"username"`
}

// handleLeaveRoom removes the user from the named room, or from any room in
// the lobby if room_id is omitted (spec §4.3 "leave_room"). The child
// process is not touched.
func (s *Server) handleLeaveRoom(c *wire.Conn, req wire.Request) {
	var body leaveRoomRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms.mu.Lock()
	defer s.rooms.mu.Unlock()

	if body.RoomID != "" {
		if r, ok := s.rooms.rooms[body.RoomID]; ok {
			r.Players = removeString(r.Players, body.Username)
		}
	} else {
		for _, r := range s.rooms.rooms {
			r.Players = removeString(r.Players, body.Username)
		}
	}
	s.reply(c, wire.OK(req.Type, req.Action, nil))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
