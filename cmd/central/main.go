// Command central runs the Central Directory Server (spec §4.1): the root
// of the process hierarchy, serving register/login, the game catalog,
// upload/download, and lobby lifecycle control.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/playforge/gamehost/internal/central"
	"github.com/playforge/gamehost/internal/packages"
	"github.com/playforge/gamehost/internal/storeinit"
	"github.com/playforge/gamehost/pkg/config"
	"github.com/playforge/gamehost/pkg/logging"
	"github.com/playforge/gamehost/pkg/metrics"
)

var (
	version string = "dev"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/central.yaml", "Path to configuration file")
		host        = flag.String("host", "", "Override listen host")
		port        = flag.Int("port", 0, "Override listen port")
		lobbyBase   = flag.Int("lobby-base-port", 0, "Override lobby base port")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gamehost central %s\n", version)
		return
	}

	cfg := config.DefaultCentralConfig()
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
	if *lobbyBase != 0 {
		cfg.Lobby.BasePort = *lobbyBase
	}
	if cfg.Lobby.BinaryPath == "" {
		cfg.Lobby.BinaryPath = builtinLobbyBinary()
	}

	logger := logging.NewServiceLogger("central", "", cfg.Logging.ToLoggingConfig())
	logger.Info("starting central directory server", "version", version)

	store, err := storeinit.Open(cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	if err := store.InitializeStorage(); err != nil {
		logger.Error("failed to initialize metadata store", "error", err)
		os.Exit(1)
	}

	pkgStore := packages.NewStore(filepath.Join(cfg.Storage.Root, "db", "storage"), logger)

	registry := metrics.NewRegistry("central", logger)
	if cfg.Monitoring.Enabled {
		go func() {
			if err := registry.Start(cfg.Monitoring.Port); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	srv := central.New(central.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Store:         store,
		Packages:      pkgStore,
		LobbyBinPath:  cfg.Lobby.BinaryPath,
		LobbyBasePort: cfg.Lobby.BasePort,
		Logger:        logger,
		Metrics:       metrics.NewCentralMetrics(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("central server error", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("central directory server listening", "host", cfg.Host, "port", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down gracefully")

	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	logger.Info("central directory server stopped")
}

// builtinLobbyBinary resolves the lobby binary colocated with this one, the
// process the central server spawns for each game (spec §4.1 "launch").
func builtinLobbyBinary() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), "lobby")
	}
	return "lobby"
}
