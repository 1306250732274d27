package statestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalcampus/ijazah-ledger/pkg/config"
	"github.com/digitalcampus/ijazah-ledger/pkg/db"
	"github.com/digitalcampus/ijazah-ledger/pkg/logger"
	redisclient "github.com/digitalcampus/ijazah-ledger/pkg/redis"
)

// NewFromConfig maps the configured backend name to a live Backend. The
// returned closer releases whatever connection the backend holds; for the
// memory backend it is a no-op.
func NewFromConfig(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.StateStore.Backend)) {
	case config.StateBackendMemory:
		return NewMemory(), noop, nil

	case config.StateBackendGorm:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("state backend gorm: %w", err)
		}
		backend, err := NewGorm(client.DB())
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		// sqlite deployments are dev/test; schema for postgres comes from
		// the goose migrations.
		if cfg.DB.UseSQLite {
			if err := backend.AutoMigrate(ctx); err != nil {
				client.Close()
				return nil, nil, fmt.Errorf("state backend gorm: %w", err)
			}
		}
		return backend, client.Close, nil

	case config.StateBackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("state backend redis: %w", err)
		}
		backend, err := NewRedis(client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return backend, client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown state backend %q (expected memory|gorm|redis)", cfg.StateStore.Backend)
}
