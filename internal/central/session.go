package central

import (
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/playforge/gamehost/internal/wire"
)

// sessionState is the central session state machine (spec §4.1).
type sessionState int

const (
	stateUnauth sessionState = iota
	stateAuth
)

// session is the per-connection {connection, username|null} record (spec §3).
type session struct {
	id       string
	conn     net.Conn
	wireConn *wire.Conn
	state    sessionState
	username string
}

// sessionTable is the process-wide clients+active_usernames table, guarded
// by one exclusive critical section (spec §5).
type sessionTable struct {
	mu              sync.Mutex
	byID            map[string]*session
	activeUsernames map[string]string // username -> session id
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		byID:            make(map[string]*session),
		activeUsernames: make(map[string]string),
	}
}

func (t *sessionTable) register(conn net.Conn) *session {
	s := &session{
		id:       uuid.New().String(),
		conn:     conn,
		wireConn: wire.NewConn(conn),
		state:    stateUnauth,
	}
	t.mu.Lock()
	t.byID[s.id] = s
	t.mu.Unlock()
	return s
}

// login binds username to s if no other session already holds it.
func (t *sessionTable) login(s *session, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, taken := t.activeUsernames[username]; taken {
		return false
	}
	t.activeUsernames[username] = s.id
	s.state = stateAuth
	s.username = username
	return true
}

// logout releases s's username, if any, without removing its table entry.
func (t *sessionTable) logout(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.username != "" {
		delete(t.activeUsernames, s.username)
	}
	s.state = stateUnauth
	s.username = ""
}

// remove releases the session's username (if any) and drops its table
// entry, called on socket close from either side (spec §4.1).
func (t *sessionTable) remove(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.username != "" {
		delete(t.activeUsernames, s.username)
	}
	delete(t.byID, s.id)
}

func (t *sessionTable) activeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.activeUsernames)
}
