package grid

import (
	"encoding/json"

	"github.com/playforge/gamehost/internal/wire"
)

type joinRequest struct {
	Username string `json:"username"`
}

type joinResponse struct {
	Symbol   string `json:"symbol"`
	Username string `json:"username"`
}

// handleJoin seats the connection under a username. Returns done=true when
// the connection should be closed (room already full).
func (s *Server) handleJoin(c *wire.Conn, req wire.Request, username *string) (done bool) {
	var body joinRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return false
	}

	symbol, ok := s.state.addPlayer(body.Username, c)
	if !ok {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeRoomFull, "room is full"))
		return true
	}
	*username = body.Username
	s.reply(c, wire.OK(req.Type, req.Action, joinResponse{Symbol: symbol, Username: body.Username}))
	s.metrics.PlayersSeated.Inc()
	s.broadcastState()
	return false
}

type moveRequest struct {
	Cell int `json:"cell"`
}

// handleMove applies a move if legal and always acknowledges the request;
// a broadcast only follows when the board actually changed (spec §4.4
// "Move" is silently ignored otherwise).
func (s *Server) handleMove(c *wire.Conn, req wire.Request, username string) {
	var body moveRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if username == "" {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeNotInRoom, "join before moving"))
		return
	}

	applied := s.state.applyMove(username, body.Cell)
	s.reply(c, wire.OK(req.Type, req.Action, map[string]bool{"applied": applied}))
	if applied {
		s.metrics.MovesTotal.Inc()
		s.broadcastState()
		s.state.mu.Lock()
		winner := s.state.winner
		s.state.mu.Unlock()
		if winner != nil {
			outcome := "win"
			if *winner == "" {
				outcome = "draw"
			}
			s.metrics.MatchesTotal.WithLabelValues(outcome).Inc()
		}
	}
}

type playAgainRequest struct {
	Again bool `json:"again"`
}

// handlePlayAgain records username's vote. Once every seated player has
// voted, either the match resets (all true) or the room terminates (any
// false), per spec §4.4 "Play again".
func (s *Server) handlePlayAgain(c *wire.Conn, req wire.Request, username string) (done bool) {
	var body playAgainRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return false
	}
	if username == "" {
		s.reply(c, wire.Err(req.Type, req.Action, wire.CodeNotInRoom, "join before voting"))
		return false
	}

	s.reply(c, wire.OK(req.Type, req.Action, nil))

	ready, allAgree := s.state.registerVote(username, body.Again)
	if !ready {
		return false
	}
	if !allAgree {
		s.logger.Info("room terminating: play-again declined", "room_id", s.roomID)
		s.shutdown()
		return false
	}
	s.state.resetForRematch()
	s.broadcastState()
	return false
}
