package central

import (
	"encoding/json"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/wire"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAuth(sess *session, req wire.Request) {
	switch req.Action {
	case "register":
		s.handleRegister(sess, req)
	case "login":
		s.handleLogin(sess, req)
	case "logout":
		s.handleLogout(sess, req)
	default:
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUnsupported, "unsupported auth action"))
	}
}

// handleRegister is allowed in any session state and does not change it
// (spec §4.1 "Session state machine").
func (s *Server) handleRegister(sess *session, req wire.Request) {
	var body registerRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if err := s.store.RegisterUser(body.Username, body.Password); err != nil {
		switch {
		case metadata.IsInvalidUsername(err):
			s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidUsername, err.Error()))
		case metadata.IsUsernameExists(err):
			s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUsernameExists, err.Error()))
		default:
			s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidRequest, err.Error()))
		}
		return
	}
	s.reply(sess, wire.OK(req.Type, req.Action, map[string]string{"username": body.Username}))
}

// handleLogin requires UNAUTH and an unclaimed username (spec §4.1).
func (s *Server) handleLogin(sess *session, req wire.Request) {
	var body loginRequest
	if err := json.Unmarshal(req.Data, &body); err != nil {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidJSON, "malformed request body"))
		return
	}
	if !s.store.AuthenticateUser(body.Username, body.Password) {
		s.metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeInvalidCredentials, "invalid username or password"))
		return
	}
	if !s.sessions.login(sess, body.Username) {
		s.metrics.LoginsTotal.WithLabelValues("already_logged_in").Inc()
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeUserAlreadyLoggedIn, "this user is already logged in"))
		return
	}
	s.metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.metrics.SessionsActive.Set(float64(s.sessions.activeCount()))
	s.reply(sess, wire.OK(req.Type, req.Action, map[string]string{"username": body.Username}))
}

// handleLogout requires AUTH (spec §4.1).
func (s *Server) handleLogout(sess *session, req wire.Request) {
	if sess.state != stateAuth {
		s.reply(sess, wire.Err(req.Type, req.Action, wire.CodeNotLoggedIn, "no active session to log out of"))
		return
	}
	s.sessions.logout(sess)
	s.metrics.SessionsActive.Set(float64(s.sessions.activeCount()))
	s.reply(sess, wire.OK(req.Type, req.Action, nil))
}
