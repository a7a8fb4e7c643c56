package central

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/packages"
	"github.com/playforge/gamehost/internal/wire"
	"github.com/playforge/gamehost/pkg/metrics"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := metadata.NewJSONStore(dir, logger)
	if err := store.InitializeStorage(); err != nil {
		t.Fatalf("InitializeStorage: %v", err)
	}
	pkgStore := packages.NewStore(dir+"/storage", logger)

	srv := New(Config{
		Host:          "127.0.0.1",
		Port:          0,
		Store:         store,
		Packages:      pkgStore,
		LobbyBinPath:  "/bin/true",
		LobbyBasePort: 30000,
		Logger:        logger,
		Metrics:       metrics.NewCentralMetrics(),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	srv.listener = ln
	go srv.Serve(ln)

	return srv, func() { srv.Close() }
}

func dial(t *testing.T, srv *Server) *wire.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.listener.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return wire.NewConn(conn)
}

func roundTrip(t *testing.T, c *wire.Conn, reqType, action string, data interface{}) wire.Response {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal request data: %v", err)
	}
	if err := c.WriteRequest(wire.Request{Type: reqType, Action: action, Data: raw}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp
}

func TestRegisterLoginDuplicate(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	a := dial(t, srv)
	resp := roundTrip(t, a, "auth", "register", map[string]string{"username": "alice", "password": "pw"})
	if resp.Status != "ok" {
		t.Fatalf("register: expected ok, got %+v", resp)
	}

	resp = roundTrip(t, a, "auth", "login", map[string]string{"username": "alice", "password": "pw"})
	if resp.Status != "ok" {
		t.Fatalf("login on A: expected ok, got %+v", resp)
	}

	b := dial(t, srv)
	resp = roundTrip(t, b, "auth", "login", map[string]string{"username": "alice", "password": "pw"})
	if resp.Status != "error" || resp.Error.Code != wire.CodeUserAlreadyLoggedIn {
		t.Fatalf("login on B: expected USER_ALREADY_LOGGED_IN, got %+v", resp)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip.Create: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip.Close: %v", err)
	}
	return buf.Bytes()
}

func registerAndLogin(t *testing.T, c *wire.Conn, username string) {
	t.Helper()
	resp := roundTrip(t, c, "auth", "register", map[string]string{"username": username, "password": "pw"})
	if resp.Status != "ok" {
		t.Fatalf("register %s: %+v", username, resp)
	}
	resp = roundTrip(t, c, "auth", "login", map[string]string{"username": username, "password": "pw"})
	if resp.Status != "ok" {
		t.Fatalf("login %s: %+v", username, resp)
	}
}

func TestUploadAndList(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	conn := dial(t, srv)
	registerAndLogin(t, conn, "alice")

	payload := buildZip(t, map[string]string{"run_room_server.py": "# stub"})
	header, _ := json.Marshal(map[string]interface{}{
		"game_name": "g", "version": "1", "filename": "g.zip",
		"filesize": len(payload), "min_players": 2, "max_players": 4,
	})
	if err := conn.WriteRequest(wire.Request{Type: "dev", Action: "upload_game_file", Data: header}); err != nil {
		t.Fatalf("write upload header: %v", err)
	}
	if err := conn.WriteExact(payload); err != nil {
		t.Fatalf("write upload payload: %v", err)
	}
	resp, err := conn.ReadResponse()
	if err != nil {
		t.Fatalf("read upload response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("upload: expected ok, got %+v", resp)
	}

	resp = roundTrip(t, conn, "store", "list_games", map[string]string{})
	if resp.Status != "ok" {
		t.Fatalf("list_games: expected ok, got %+v", resp)
	}
}

func TestDownloadRequiresExistingGame(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	conn := dial(t, srv)
	registerAndLogin(t, conn, "alice")

	resp := roundTrip(t, conn, "store", "download_game_file", map[string]string{"game_name": "nope"})
	if resp.Status != "error" || resp.Error.Code != wire.CodeGameOrVersionNF {
		t.Fatalf("expected GAME_OR_VERSION_NOT_FOUND, got %+v", resp)
	}
}

func TestStoreActionsRequireAuthentication(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	conn := dial(t, srv)
	resp := roundTrip(t, conn, "store", "list_games", map[string]string{})
	if resp.Status != "error" || resp.Error.Code != wire.CodeNotAuthenticated {
		t.Fatalf("expected NOT_AUTHENTICATED, got %+v", resp)
	}
}
