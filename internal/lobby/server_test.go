package lobby

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

func newTestLobby(t *testing.T, gameDir string) (*Server, func()) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(Config{
		Host:          "127.0.0.1",
		Port:          0,
		RoomPortStart: 31000,
		GameDir:       gameDir,
		GameName:      "ttt",
		BuiltinBinary: "/bin/sleep",
		BuiltinKind:   "grid",
		Logger:        logger,
		Metrics:       metrics.NewLobbyMetrics(),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	srv.listener = ln
	go srv.Serve(ln)

	return srv, func() { srv.Close() }
}

func dialLobby(t *testing.T, srv *Server) *wire.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return wire.NewConn(conn)
}

func roundTrip(t *testing.T, c *wire.Conn, action string, data interface{}) wire.Response {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := c.WriteRequest(wire.Request{Type: "lobby", Action: action, Data: raw}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

func TestCreateAndJoinRoom(t *testing.T) {
	srv, closeFn := newTestLobby(t, t.TempDir())
	defer closeFn()

	conn := dialLobby(t, srv)
	resp := roundTrip(t, conn, "create_room", map[string]interface{}{
		"username": "alice", "max_players": 2, "version": "1",
	})
	if resp.Status != "ok" {
		t.Fatalf("create_room: expected ok, got %+v", resp)
	}
	data, _ := json.Marshal(resp.Data)
	var addr roomAddress
	json.Unmarshal(data, &addr)
	if addr.RoomID != "R1" {
		t.Errorf("expected first room id R1, got %q", addr.RoomID)
	}

	resp = roundTrip(t, conn, "join_room", map[string]interface{}{"room_id": addr.RoomID, "username": "bob"})
	if resp.Status != "ok" {
		t.Fatalf("join_room: expected ok, got %+v", resp)
	}
}

func TestCreateRoomRejectsDoubleSeat(t *testing.T) {
	srv, closeFn := newTestLobby(t, t.TempDir())
	defer closeFn()

	conn := dialLobby(t, srv)
	resp := roundTrip(t, conn, "create_room", map[string]interface{}{
		"username": "alice", "max_players": 2, "version": "1",
	})
	if resp.Status != "ok" {
		t.Fatalf("first create_room: expected ok, got %+v", resp)
	}

	resp = roundTrip(t, conn, "create_room", map[string]interface{}{
		"username": "alice", "max_players": 2, "version": "1",
	})
	if resp.Status != "error" || resp.Error.Code != wire.CodeAlreadyInRoom {
		t.Fatalf("expected ALREADY_IN_ROOM, got %+v", resp)
	}
}

func TestJoinRoomFullRejected(t *testing.T) {
	srv, closeFn := newTestLobby(t, t.TempDir())
	defer closeFn()

	conn := dialLobby(t, srv)
	resp := roundTrip(t, conn, "create_room", map[string]interface{}{
		"username": "alice", "max_players": 1, "version": "1",
	})
	data, _ := json.Marshal(resp.Data)
	var addr roomAddress
	json.Unmarshal(data, &addr)

	resp = roundTrip(t, conn, "join_room", map[string]interface{}{"room_id": addr.RoomID, "username": "bob"})
	if resp.Status != "error" || resp.Error.Code != wire.CodeRoomFull {
		t.Fatalf("expected ROOM_FULL, got %+v", resp)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	srv, closeFn := newTestLobby(t, t.TempDir())
	defer closeFn()

	conn := dialLobby(t, srv)
	resp := roundTrip(t, conn, "join_room", map[string]interface{}{"room_id": "R99", "username": "bob"})
	if resp.Status != "error" || resp.Error.Code != wire.CodeRoomNotFound {
		t.Fatalf("expected ROOM_NOT_FOUND, got %+v", resp)
	}
}

func TestLeaveRoomWithoutRoomIDRemovesFromAll(t *testing.T) {
	srv, closeFn := newTestLobby(t, t.TempDir())
	defer closeFn()

	conn := dialLobby(t, srv)
	resp := roundTrip(t, conn, "create_room", map[string]interface{}{
		"username": "alice", "max_players": 2, "version": "1",
	})
	data, _ := json.Marshal(resp.Data)
	var addr roomAddress
	json.Unmarshal(data, &addr)

	resp = roundTrip(t, conn, "leave_room", map[string]interface{}{"username": "alice"})
	if resp.Status != "ok" {
		t.Fatalf("leave_room: expected ok, got %+v", resp)
	}

	resp = roundTrip(t, conn, "list_rooms", map[string]interface{}{})
	if resp.Status != "ok" {
		t.Fatalf("list_rooms: expected ok, got %+v", resp)
	}
}
