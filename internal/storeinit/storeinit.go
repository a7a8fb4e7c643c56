// Package storeinit resolves a pkg/config.StorageConfig into a concrete
// metadata.Store, isolating cmd/central from the backend-selection
// branching (spec §4.2 "Persistence is an implementation choice").
package storeinit

import (
	"fmt"
	"log/slog"

	"github.com/playforge/gamehost/internal/metadata"
	"github.com/playforge/gamehost/pkg/config"
	"github.com/playforge/gamehost/pkg/database"
)

// Open builds the metadata.Store named by cfg.Backend, rooted at cfg.Root
// for the "json" backend.
func Open(cfg config.StorageConfig, logger *slog.Logger) (metadata.Store, error) {
	switch cfg.Backend {
	case "", "json":
		return metadata.NewJSONStore(cfg.Root, logger), nil
	case "sqlite", "postgres", "mysql":
		if cfg.SQL == nil {
			return nil, fmt.Errorf("storeinit: backend %q requires a sql config block", cfg.Backend)
		}
		conn, err := database.Open(database.Config{
			Driver:          cfg.Backend,
			DSN:             cfg.SQL.DSN,
			MaxOpenConns:    cfg.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.SQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("storeinit: open %s: %w", cfg.Backend, err)
		}
		return metadata.NewSQLStore(conn)
	default:
		return nil, fmt.Errorf("storeinit: unknown backend %q", cfg.Backend)
	}
}
