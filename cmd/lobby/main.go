// Command lobby runs a Game Lobby Server process (spec §4.1): one process
// per game, spawned by the central server, owning that title's room table
// and spawning room-server children.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/playforge/gamehost/internal/lobby"
	"github.com/playforge/gamehost/pkg/config"
	"github.com/playforge/gamehost/pkg/logging"
	"github.com/playforge/gamehost/pkg/metrics"
)

var version string = "dev"

func main() {
	var (
		configFile    = flag.String("config", "", "Path to configuration file")
		host          = flag.String("host", "", "Listen host")
		port          = flag.Int("port", 0, "Listen port")
		roomPortStart = flag.Int("room-port-start", 0, "Base port for room-server children")
		gameDir       = flag.String("game-dir", "", "Extracted game package directory")
		gameName      = flag.String("game-name", "", "Game name this lobby owns")
		showVersion   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gamehost lobby %s\n", version)
		return
	}

	cfg := config.DefaultLobbyConfig()
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
	if *roomPortStart != 0 {
		cfg.RoomPortStart = *roomPortStart
	}
	if *gameDir != "" {
		cfg.GameDir = *gameDir
	}
	if *gameName != "" {
		cfg.GameName = *gameName
	}
	if cfg.Room.BinaryPath == "" {
		cfg.Room.BinaryPath = builtinRoomBinary()
	}

	logger := logging.NewServiceLogger("lobby", cfg.GameName, cfg.Logging.ToLoggingConfig())

	registry := metrics.NewRegistry("lobby", logger)
	if cfg.Monitoring.Enabled {
		go func() {
			if err := registry.Start(cfg.Monitoring.Port); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	srv := lobby.New(lobby.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		RoomPortStart: cfg.RoomPortStart,
		GameDir:       cfg.GameDir,
		GameName:      cfg.GameName,
		BuiltinBinary: cfg.Room.BinaryPath,
		BuiltinKind:   cfg.Room.Kind,
		Logger:        logger,
		Metrics:       metrics.NewLobbyMetrics(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("lobby server error", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("lobby server listening", "game_name", cfg.GameName, "host", cfg.Host, "port", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down gracefully")
	srv.Close()
	logger.Info("lobby server stopped")
}

// builtinRoomBinary resolves the reference room-server binary colocated
// with this one, used as a fallback when a game package ships no
// entry_room_server of its own.
func builtinRoomBinary() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), "room")
	}
	return "room"
}
