package central

import (
	"encoding/json"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/wire"
)

func (s *Server) handleDev(sess *session, req wire.Request) {
	if !s.requireAuth(sess, req.Type, req.Action) {
		return
	}
	switch req.Action {
	case "upload_game_file":
		s.handleUploadGameFile(sess, req)
	case "launch_game_server":
		s.handleLaunchGameServer(sess, req)
	case "stop_game_server":
		s.handleStopGameServer(sess, req)
	case "delete_game":
		s.handleDeleteGame(sess, req)
	default:
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUnsupported, "unsupported dev action"))
	}
}

type uploadHeader struct {
	GameName   string `json:"game_name"`
	Version    string `json:"version"`
	Filename   string `json:"filename"`
	Filesize   int64  `json:"filesize"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

// handleUploadGameFile reads exactly filesize raw bytes after the JSON
// header, extracts the archive, and upserts the game record (spec §4.1
// "Upload flow").
func (s *Server) handleUploadGameFile(sess *session, req wire.Request) {
	var hdr uploadHeader
	if err := json.Unmarshal(req.Data, &hdr); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if hdr.MinPlayers < 1 || hdr.MaxPlayers < hdr.MinPlayers {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidPlayers, "min_players/max_players must satisfy 1<=min<=max"))
		return
	}

	existing, ok, err := s.store.GetGame(hdr.GameName)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	if ok && existing.Author != "" && existing.Author != sess.username {
		// Still have to drain the payload so the connection's framing stays
		// in sync for the next request.
		if _, drainErr := sess.wireConn.ReadExact(hdr.Filesize); drainErr != nil {
			s.logger.Debug("upload drain failed", "session_id", sess.id, "error", drainErr)
			return
		}
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeGameExistsOtherAuth, "a game with this name already exists under another author"))
		return
	}

	payload, err := sess.wireConn.ReadExact(hdr.Filesize)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUploadFailed, "connection lost during upload"))
		return
	}

	archivePath, err := s.packages.StoreArchive(hdr.GameName, hdr.Filename, payload)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUploadFailed, err.Error()))
		return
	}
	extractedDir, err := s.packages.Extract(hdr.GameName, archivePath)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUnzipFailed, err.Error()))
		return
	}
	description := s.packages.ReadDescription(extractedDir)

	game, err := s.store.UpsertGame(metadata.Game{
		GameName:      hdr.GameName,
		Version:       hdr.Version,
		Filename:      hdr.Filename,
		StoragePath:   archivePath,
		ExtractedPath: extractedDir,
		Description:   description,
		Author:        sess.username,
		MinPlayers:    hdr.MinPlayers,
		MaxPlayers:    hdr.MaxPlayers,
	})
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}

	s.metrics.UploadsTotal.Inc()
	s.metrics.UploadBytes.Add(float64(len(payload)))
	s.logger.Info("stored game package", "game_name", game.GameName, "version", game.Version, "bytes", len(payload))
	s.reply(sess, wire.OK(req.Type, req.Action, map[string]string{
		"game_name":     game.GameName,
		"version":       game.Version,
		"stored_path":   game.StoragePath,
		"extracted_path": game.ExtractedPath,
	}))
}

type launchRequest struct {
	GameName string `json:"game_name"`
}

type launchResponse struct {
	LobbyHost string `json:"lobby_host"`
	LobbyPort int    `json:"lobby_port"`
}

func (s *Server) handleLaunchGameServer(sess *session, req wire.Request) {
	var body launchRequest
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
	host, port, err := s.lobbies.Launch(*game, s.packages)
	if err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeLaunchFailed, err.Error()))
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, launchResponse{LobbyHost: host, LobbyPort: port}))
}

type stopRequest struct {
	GameName string `json:"game_name"`
}

func (s *Server) handleStopGameServer(sess *session, req wire.Request) {
	var body stopRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if err := s.lobbies.Stop(body.GameName); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeStopFailed, err.Error()))
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, nil))
}

type deleteRequest struct {
	GameName string `json:"game_name"`
}

// handleDeleteGame requires the caller to be the author; cascades to the
// lobby, storage tree, and metadata (spec §4.1 "Deletion").
func (s *Server) handleDeleteGame(sess *session, req wire.Request) {
	var body deleteRequest
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
	if game.Author != sess.username {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeNotOwner, "only the author may delete this game"))
		return
	}

	if err := s.lobbies.Stop(body.GameName); err != nil {
		s.logger.Debug("no lobby to stop before delete", "game_name", body.GameName, "error", err)
	}

	if err := s.store.RemoveGame(body.GameName); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, map[string]interface{}{
		"game_name": body.GameName,
		"deleted":   true,
	}))
}
