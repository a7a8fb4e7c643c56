package central

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/internal/packages"
	"github.com/playforge/gamehost/internal/portalloc"
	"github.com/playforge/gamehost/internal/supervisor"
	"github.com/playforge/gamehost/pkg/metrics"
)

// lobbyEntry is the Running Lobby record (spec §3).
type lobbyEntry struct {
	GameName string
	Host     string
	Port     int
}

// lobbyTable is the process-wide, per-game-exclusive lobbies table (spec
// §3, §5): mutated only by the central server, serialized on its own
// critical section so that a second launch_game_server for the same game
// while one is running returns the existing endpoint instead of spawning
// another.
type lobbyTable struct {
	mu       sync.Mutex
	entries  map[string]*lobbyEntry
	host     string
	basePort int
	binPath  string

	ports      *portalloc.Allocator
	supervisor *supervisor.Supervisor
	logger     *slog.Logger
	metrics    *metrics.CentralMetrics
}

func newLobbyTable(host string, basePort int, binPath string, logger *slog.Logger, m *metrics.CentralMetrics) *lobbyTable {
	t := &lobbyTable{
		entries:  make(map[string]*lobbyEntry),
		host:     host,
		basePort: basePort,
		binPath:  binPath,
		ports:    portalloc.New(host),
		logger:   logger,
		metrics:  m,
	}
	t.supervisor = supervisor.New(logger, t.onChildExit)
	return t
}

func (t *lobbyTable) onChildExit(name string, child *supervisor.Child) {
	t.mu.Lock()
	entry := t.entries[name]
	if entry != nil {
		delete(t.entries, name)
	}
	t.mu.Unlock()

	if entry == nil {
		return
	}
	t.ports.Release(entry.Port)
	if code := child.ExitCode(); code != 0 {
		t.metrics.LobbyCrashes.Inc()
		t.logger.Warn("lobby process exited unexpectedly", "game_name", name, "exit_code", code)
	}
}

// Launch ensures a lobby is running for game, extracting its package if
// needed, and returns its (host, port) (spec §4.1 "Lobby control").
func (t *lobbyTable) Launch(game metadata.Game, store *packages.Store) (string, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[game.GameName]; ok {
		return existing.Host, existing.Port, nil
	}

	extractedPath := game.ExtractedPath
	if extractedPath == "" {
		archivePath, err := store.ArchivePath(game.GameName, game.Filename)
		if err != nil {
			return "", 0, fmt.Errorf("resolve archive path: %w", err)
		}
		extractedPath, err = store.Extract(game.GameName, archivePath)
		if err != nil {
			return "", 0, fmt.Errorf("re-extract package: %w", err)
		}
	}

	port, err := t.ports.Allocate(t.basePort)
	if err != nil {
		t.metrics.PortAllocations.WithLabelValues("error").Inc()
		return "", 0, fmt.Errorf("allocate lobby port: %w", err)
	}
	t.metrics.PortAllocations.WithLabelValues("ok").Inc()

	cmd := exec.Command(t.binPath,
		"--host", t.host,
		"--port", strconv.Itoa(port),
		"--room-port-start", strconv.Itoa(t.basePort+1000),
		"--game-dir", extractedPath,
		"--game-name", game.GameName,
	)
	if _, err := t.supervisor.Spawn(game.GameName, cmd); err != nil {
		t.ports.Release(port)
		return "", 0, fmt.Errorf("spawn lobby: %w", err)
	}

	t.entries[game.GameName] = &lobbyEntry{GameName: game.GameName, Host: t.host, Port: port}
	t.metrics.LobbyLaunches.Inc()
	t.logger.Info("launched lobby", "game_name", game.GameName, "host", t.host, "port", port)
	return t.host, port, nil
}

// Stop terminates the running lobby for game, if any (spec §4.1 "Lobby
// control"). Returns an error if no lobby is running.
func (t *lobbyTable) Stop(gameName string) error {
	t.mu.Lock()
	_, ok := t.entries[gameName]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("no lobby is running for %s", gameName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.supervisor.Stop(ctx, gameName, 5*time.Second); err != nil {
		return err
	}
	t.metrics.LobbyStops.Inc()
	return nil
}

// Lookup returns the running lobby entry for game, if any.
func (t *lobbyTable) Lookup(gameName string) (string, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[gameName]
	if !ok {
		return "", 0, false
	}
	return entry.Host, entry.Port, true
}
