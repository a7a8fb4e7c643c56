package runner

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

func newTestRunnerRoom(t *testing.T, maxPlayers int) (*Server, func()) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(Config{
		Host: "127.0.0.1", Port: 0, RoomID: "R1", GameName: "tank",
		MaxPlayers: maxPlayers, TickRateHz: 60,
		Logger: logger, Metrics: metrics.NewRoomMetrics(),
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	srv.listener = ln
	go srv.Serve(ln)
	return srv, func() { srv.Close() }
}

func dialRunner(t *testing.T, srv *Server) *wire.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return wire.NewConn(conn)
}

func TestJoinWelcomesAndRejectsWhenFull(t *testing.T) {
	srv, closeFn := newTestRunnerRoom(t, 1)
	defer closeFn()

	a := dialRunner(t, srv)
	if err := a.WriteRequest(wire.Request{Type: "room", Action: "join", Data: mustJSONRunner(t, map[string]string{"username": "alice"})}); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := a.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok join, got %+v", resp)
	}

	b := dialRunner(t, srv)
	if err := b.WriteRequest(wire.Request{Type: "room", Action: "join", Data: mustJSONRunner(t, map[string]string{"username": "bob"})}); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err = b.ReadResponse()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Status != "error" || resp.Error.Code != wire.CodeRoomFull {
		t.Fatalf("expected ROOM_FULL for second joiner, got %+v", resp)
	}
}

func TestBroadcastDeliversStateSnapshots(t *testing.T) {
	srv, closeFn := newTestRunnerRoom(t, 2)
	defer closeFn()

	a := dialRunner(t, srv)
	if err := a.WriteRequest(wire.Request{Type: "room", Action: "join", Data: mustJSONRunner(t, map[string]string{"username": "alice"})}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := a.ReadResponse(); err != nil {
		t.Fatalf("read join response: %v", err)
	}

	resp, err := a.ReadResponse()
	if err != nil {
		t.Fatalf("expected a broadcast state message, got error: %v", err)
	}
	if resp.Action != "state" {
		t.Fatalf("expected a state broadcast, got %+v", resp)
	}
}

func mustJSONRunner(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
