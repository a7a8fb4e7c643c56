// Package grid implements the reference room server: a 3x3 grid game
// (spec §4.4). It is the built-in fallback spawned by a lobby when a game
// package ships no room-server entry point of its own.
package grid

import (
	"sync"

	"github.com/playforge/gamehost/internal/wire"
)

const boardSize = 9

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// GameState is the authoritative state for one match: board marks, seated
// players, their live connections, whose turn it is, and the winner once
// decided (nil in progress, "" for a draw, a username otherwise).
type GameState struct {
	mu             sync.Mutex
	board          [boardSize]string
	players        map[string]string // username -> symbol
	connections    map[string]*wire.Conn
	joinOrder      []string
	turn           string
	hasTurn        bool
	winner         *string
	playAgainVotes map[string]bool
	active         bool
}

func newGameState() *GameState {
	return &GameState{
		players:        make(map[string]string),
		connections:    make(map[string]*wire.Conn),
		playAgainVotes: make(map[string]bool),
		active:         true,
	}
}

// stateSnapshot is the wire shape broadcast after every mutation.
type stateSnapshot struct {
	Board            [boardSize]string `json:"board"`
	Turn             string            `json:"turn"`
	Winner           *string           `json:"winner"`
	Players          map[string]string `json:"players"`
	PlayersNeeded    int               `json:"players_needed"`
	PlayAgainWaiting bool              `json:"play_again_waiting"`
}

// addPlayer seats username, assigning "X" to the first player and "O" to
// the second. Returns ok=false when two players are already seated.
func (g *GameState) addPlayer(username string, conn *wire.Conn) (symbol string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= 2 {
		return "", false
	}
	symbol = "X"
	for _, s := range g.players {
		if s == "X" {
			symbol = "O"
		}
	}
	g.players[username] = symbol
	g.connections[username] = conn
	g.joinOrder = append(g.joinOrder, username)

	// Turn starts only once the second player has joined.
	if len(g.players) == 2 && !g.hasTurn {
		g.turn = g.firstJoinedLocked()
		g.hasTurn = true
	}
	return symbol, true
}

func (g *GameState) firstJoinedLocked() string {
	for _, u := range g.joinOrder {
		if _, ok := g.players[u]; ok {
			return u
		}
	}
	return ""
}

// removePlayer clears username from the match. If fewer than two players
// remain afterward, the board and turn reset to the waiting state.
func (g *GameState) removePlayer(username string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removePlayerLocked(username)
}

func (g *GameState) removePlayerLocked(username string) {
	delete(g.players, username)
	delete(g.connections, username)
	delete(g.playAgainVotes, username)
	for i, u := range g.joinOrder {
		if u == username {
			g.joinOrder = append(g.joinOrder[:i], g.joinOrder[i+1:]...)
			break
		}
	}
	if g.turn == username {
		g.turn = ""
		g.hasTurn = false
	}
	if len(g.players) < 2 {
		g.board = [boardSize]string{}
		g.winner = nil
		g.playAgainVotes = make(map[string]bool)
		g.turn = ""
		g.hasTurn = false
	}
}

// applyMove validates and applies a move from username, returning true iff
// the board changed.
func (g *GameState) applyMove(username string, cell int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) < 2 {
		return false
	}
	if g.winner != nil {
		return false
	}
	if cell < 0 || cell >= boardSize {
		return false
	}
	if g.turn != username {
		return false
	}
	if g.board[cell] != "" {
		return false
	}

	g.board[cell] = g.players[username]
	g.turn = ""
	for _, u := range g.joinOrder {
		if u != username {
			if _, ok := g.players[u]; ok {
				g.turn = u
				break
			}
		}
	}

	if winSymbol := checkWinner(g.board); winSymbol != "" {
		for u, sym := range g.players {
			if sym == winSymbol {
				w := u
				g.winner = &w
				break
			}
		}
	} else if boardFull(g.board) {
		draw := ""
		g.winner = &draw
	}
	return true
}

// registerVote records username's play-again choice. done reports whether
// every seated player has now voted; allAgree is only meaningful when done.
func (g *GameState) registerVote(username string, again bool) (done bool, allAgree bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.playAgainVotes[username] = again
	if len(g.playAgainVotes) < len(g.players) {
		return false, false
	}
	for _, v := range g.playAgainVotes {
		if !v {
			return true, false
		}
	}
	return true, true
}

// resetForRematch clears the board and hands the first turn back to "X"
// (or the first joined player, if symbols are uneven).
func (g *GameState) resetForRematch() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.board = [boardSize]string{}
	g.winner = nil
	g.playAgainVotes = make(map[string]bool)

	turn := ""
	for u, sym := range g.players {
		if sym == "X" {
			turn = u
			break
		}
	}
	if turn == "" {
		turn = g.firstJoinedLocked()
	}
	g.turn = turn
	g.hasTurn = turn != ""
}

func (g *GameState) deactivate() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
}

func (g *GameState) isActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *GameState) snapshotLocked() stateSnapshot {
	players := make(map[string]string, len(g.players))
	for u, s := range g.players {
		players[u] = s
	}
	waiting := g.winner != nil || boardFull(g.board)
	return stateSnapshot{
		Board:            g.board,
		Turn:             g.turn,
		Winner:           g.winner,
		Players:          players,
		PlayersNeeded:    max(0, 2-len(g.players)),
		PlayAgainWaiting: waiting,
	}
}

func checkWinner(board [boardSize]string) string {
	for _, line := range winLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != "" && a == b && b == c {
			return a
		}
	}
	return ""
}

func boardFull(board [boardSize]string) bool {
	for _, cell := range board {
		if cell == "" {
			return false
		}
	}
	return true
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
