package lobby

import (
	"fmt"
	"sync"

	"github.com/playforge/gamehost/internal/supervisor"
)

// roomStatus is a Room's lifecycle state (spec §3).
type roomStatus string

const (
	roomWaiting roomStatus = "waiting"
	roomClosed  roomStatus = "closed"
)

// room is the Room record (spec §3). The room server child process is
// tracked by the lobby's supervisor under the room ID, not in this record;
// once it exits the room is marked closed and the entry itself is kept for
// post-mortem listing (spec §4.3 "list_rooms").
type room struct {
	RoomID         string     `json:"room_id"`
	GameName       string     `json:"game_name"`
	Version        string     `json:"version"`
	HostUsername   string     `json:"host_username"`
	MaxPlayers     int        `json:"max_players"`
	Players        []string   `json:"players"`
	RoomServerHost string     `json:"room_server_host"`
	RoomServerPort int        `json:"room_server_port"`
	Status         roomStatus `json:"status"`
}

// roomTable is the lobby-owned, per-lobby-exclusive rooms table (spec §3,
// §5): mutated only by the owning lobby, with a monotonic room_counter
// yielding R1, R2, ….
type roomTable struct {
	mu      sync.Mutex
	rooms   map[string]*room
	counter int

	supervisor *supervisor.Supervisor
}

func newRoomTable(sv *supervisor.Supervisor) *roomTable {
	return &roomTable{rooms: make(map[string]*room), supervisor: sv}
}

func (t *roomTable) nextRoomID() string {
	t.counter++
	return fmt.Sprintf("R%d", t.counter)
}

// inWaitingRoom reports whether username is already seated in a waiting
// room on this lobby (spec §4.3 "ALREADY_IN_ROOM").
func (t *roomTable) inWaitingRoom(username string) bool {
	for _, r := range t.rooms {
		if r.Status != roomWaiting {
			continue
		}
		for _, p := range r.Players {
			if p == username {
				return true
			}
		}
	}
	return false
}

func (t *roomTable) get(roomID string) (*room, bool) {
	r, ok := t.rooms[roomID]
	return r, ok
}

// onRoomServerExit marks a room closed when its child process exits
// (spec §4.5 "Supervisor"). The room entry is not removed (kept for
// post-mortem listing).
func (t *roomTable) onRoomServerExit(roomID string, _ *supervisor.Child) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.rooms[roomID]; ok {
		r.Status = roomClosed
	}
}

func (t *roomTable) list() []room {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]room, 0, len(t.rooms))
	for _, r := range t.rooms {
		out = append(out, *r)
	}
	return out
}
