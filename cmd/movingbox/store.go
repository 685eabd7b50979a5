package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/movingbox/inventory-archive/internal/config"
	"github.com/movingbox/inventory-archive/internal/inventory"
	"github.com/movingbox/inventory-archive/internal/store/memory"
	"github.com/movingbox/inventory-archive/internal/store/sqlstore"
)

// openStore connects the store selected by cfg. The returned func releases it.
func openStore(ctx context.Context, cfg config.StoreConfig) (inventory.Store, func() error, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		slog.Warn("using the in-memory store; nothing is persisted")
		return memory.New(), func() error { return nil }, nil

	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Options{
			Driver:          strings.ToLower(cfg.Driver),
			Path:            cfg.Path,
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		slog.Debug("store opened", "driver", s.Driver())
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
