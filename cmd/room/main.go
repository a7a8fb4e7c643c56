// Command room runs a Room Server process (spec §4.4): one process per
// match, authoritative over that room's game state. The CLI contract
// (--host, --port, --max-players, --game-name, --room-id) is what every
// game package's own room-server entry point must also honor.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/playforge/gamehost/internal/room/grid"
	"github.com/playforge/gamehost/internal/room/runner"
	"github.com/playforge/gamehost/pkg/config"
	"github.com/playforge/gamehost/pkg/logging"
	"github.com/playforge/gamehost/pkg/metrics"
)

var version string = "dev"

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		host        = flag.String("host", "", "Listen host")
		port        = flag.Int("port", 0, "Listen port")
		maxPlayers  = flag.Int("max-players", 0, "Maximum seated players")
		gameName    = flag.String("game-name", "", "Owning game name")
		roomID      = flag.String("room-id", "", "Lobby-scoped room id")
		kind        = flag.String("kind", "", "Reference room kind: grid or runner")
		tickRateHz  = flag.Int("tick-rate-hz", 0, "Tick rate for the runner kind")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gamehost room %s\n", version)
		return
	}

	cfg := config.DefaultRoomConfig()
	if err := config.LoadYAML(*configFile, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *maxPlayers != 0 {
		cfg.MaxPlayers = *maxPlayers
	}
	if *kind != "" {
		cfg.Kind = *kind
	}
	if *tickRateHz != 0 {
		cfg.TickRateHz = *tickRateHz
	}
	cfg.RoomID = *roomID

	logger := logging.NewServiceLogger("room", cfg.Kind, cfg.Logging.ToLoggingConfig())
	roomMetrics := metrics.NewRoomMetrics()

	var listenFn func() error
	switch cfg.Kind {
	case "", "grid":
		srv := grid.New(grid.Config{
			Host: cfg.Host, Port: cfg.Port, RoomID: cfg.RoomID, GameName: *gameName,
			MaxPlayers: cfg.MaxPlayers, Logger: logger, Metrics: roomMetrics,
		})
		listenFn = srv.ListenAndServe
	case "runner":
		srv := runner.New(runner.Config{
			Host: cfg.Host, Port: cfg.Port, RoomID: cfg.RoomID, GameName: *gameName,
			MaxPlayers: cfg.MaxPlayers, TickRateHz: cfg.TickRateHz, Logger: logger, Metrics: roomMetrics,
		})
		listenFn = srv.ListenAndServe
	default:
		logger.Error("unknown room kind", "kind", cfg.Kind)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- listenFn() }()
	logger.Info("room server listening", "kind", cfg.Kind, "room_id", cfg.RoomID, "host", cfg.Host, "port", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("room server interrupted")
		os.Exit(0)
	case err := <-errCh:
		if err != nil {
			logger.Error("room server error", "error", err)
			os.Exit(1)
		}
	}
}
