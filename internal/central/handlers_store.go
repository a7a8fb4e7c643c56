package central

import (
	"encoding/json"
	"os"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/wire"
)

type gameSummary struct {
	GameName   string `json:"game_name"`
	Version    string `json:"version"`
	Author     string `json:"author"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	LobbyHost  string `json:"lobby_host,omitempty"`
	LobbyPort  int    `json:"lobby_port,omitempty"`
}

func (s *Server) summarize(g metadata.Game) gameSummary {
	sum := gameSummary{
		GameName: g.GameName, Version: g.Version, Author: g.Author,
		MinPlayers: g.MinPlayers, MaxPlayers: g.MaxPlayers,
	}
	if host, port, ok := s.lobbies.Lookup(g.GameName); ok {
		sum.LobbyHost = host
		sum.LobbyPort = port
	}
	return sum
}

// resolveDescription reads description from game_config.json when the
// record's own field is empty (spec §4.1 "list_games, get_game_detail").
func (s *Server) resolveDescription(g metadata.Game) string {
	if g.Description != "" {
		return g.Description
	}
	if g.ExtractedPath == "" {
		return ""
	}
	return s.packages.ReadDescription(g.ExtractedPath)
}

func (s *Server) handleStore(sess *session, req wire.Request) {
	if !s.requireAuth(sess, req.Type, req.Action) {
		return
	}
	switch req.Action {
	case "list_games":
		s.handleListGames(sess, req)
	case "get_game_detail":
		s.handleGetGameDetail(sess, req)
	case "download_game_file":
		s.handleDownloadGameFile(sess, req)
	case "add_comment":
		s.handleAddComment(sess, req)
	case "mark_owned":
		s.handleMarkOwned(sess, req)
	default:
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUnsupported, "unsupported store action"))
	}
}

func (s *Server) handleListGames(sess *session, req wire.Request) {
	games, err := s.store.ListGames()
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	summaries := make([]gameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, s.summarize(g))
	}
	s.reply(sess, wire.OK(req.Type, req.Action, map[string]interface{}{"games": summaries}))
}

type gameDetailRequest struct {
	GameName string `json:"game_name"`
}

type gameDetail struct {
	gameSummary
	Description string             `json:"description"`
	Comments    []metadata.Comment `json:"comments"`
	Rating      *float64           `json:"rating"`
}

func (s *Server) handleGetGameDetail(sess *session, req wire.Request) {
	var body gameDetailRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	game, ok, err := s.store.GetGame(body.GameName)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	if !ok {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameNotFound, "no such game"))
		return
	}
	comments, err := s.store.ListComments(body.GameName)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	detail := gameDetail{
		gameSummary: s.summarize(*game),
		Description: s.resolveDescription(*game),
		Comments:    comments,
	}
	if value, ok := metadata.Rating(comments); ok {
		detail.Rating = &value
	}
	s.reply(sess, wire.OK(req.Type, req.Action, detail))
}

type downloadRequest struct {
	GameName string `json:"game_name"`
}

type downloadHeader struct {
	GameName string `json:"game_name"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Version  string `json:"version"`
}

// handleDownloadGameFile streams the archive after a JSON header (spec §4.1
// "Download flow", §6 framing switch).
func (s *Server) handleDownloadGameFile(sess *session, req wire.Request) {
	var body downloadRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	game, ok, err := s.store.GetGame(body.GameName)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	if !ok {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameOrVersionNF, "no such game"))
		return
	}
	archivePath, err := s.packages.ArchivePath(game.GameName, game.Filename)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameOrVersionNF, "package storage unavailable"))
		return
	}
	data, err := os.ReadFile(archivePath)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameOrVersionNF, "package file missing on disk"))
		return
	}

	header := wire.OK(req.Type, req.Action, downloadHeader{
		GameName: game.GameName, Filename: game.Filename, Filesize: int64(len(data)), Version: game.Version,
	})
	if err := sess.wireConn.WriteResponse(header); err != nil {
		s.logger.Debug("download header write failed", "session_id", sess.id, "error", err)
		return
	}
	if err := sess.wireConn.WriteExact(data); err != nil {
		s.logger.Debug("download stream failed", "session_id", sess.id, "error", err)
		return
	}
	s.metrics.DownloadsTotal.Inc()
	s.metrics.DownloadBytes.Add(float64(len(data)))

	if err := s.store.RecordDownload(sess.username, game.GameName); err != nil {
		s.logger.Warn("failed to record download", "username", sess.username, "game_name", game.GameName, "error", err)
	}
}

type addCommentRequest struct {
	GameName string `json:"game_name"`
	Score    int    `json:"score"`
	Comment  string `json:"comment"`
}

func (s *Server) handleAddComment(sess *session, req wire.Request) {
	var body addCommentRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if body.Score < 1 || body.Score > 5 {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidScore, "score must be between 1 and 5"))
		return
	}
	if _, ok, err := s.store.GetGame(body.GameName); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	} else if !ok {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameNotFound, "no such game"))
		return
	}
	err := s.store.AddComment(metadata.Comment{
		GameName: body.GameName, Username: sess.username, Score: body.Score, Comment: body.Comment,
	})
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, nil))
}

type markOwnedRequest struct {
	GameName string `json:"game_name"`
}

// handleMarkOwned lets a client retroactively mark a downloaded game as
// owned, for clients that separate "download" from "install".
func (s *Server) handleMarkOwned(sess *session, req wire.Request) {
	var body markOwnedRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if _, ok, err := s.store.GetGame(body.GameName); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	} else if !ok {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameNotFound, "no such game"))
		return
	}
	if err := s.store.RecordDownload(sess.username, body.GameName); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, nil))
}
