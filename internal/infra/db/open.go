package db

import (
	"context"
	"errors"
	"fmt"

	"qr-ticket-system/internal/config"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/db/memory"
	pg "qr-ticket-system/internal/infra/db/postgres"
	"qr-ticket-system/internal/infra/db/sqlite"
	red "qr-ticket-system/internal/infra/redis"
)

// Store is an opened credential store plus its lifecycle hooks.
type Store struct {
	Repo repository.CredentialRepository
	// Stats reports connection pool counters; nil for the memory driver.
	Stats func() (total, idle, inUse int32)
	Close func()
}

// Open builds the store selected by cfg.Store.Driver, wrapped with metrics.
// redisClient is required only for the redis driver.
func Open(ctx context.Context, cfg *config.Config, redisClient *red.Client) (*Store, error) {
	st := &Store{Close: func() {}}
	driver := cfg.Store.Driver

	switch driver {
	case "memory":
		st.Repo = memory.NewCredentialRepo()

	case "sqlite":
		sdb, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		st.Repo = sqlite.NewCredentialRepo(sdb)
		st.Stats = func() (int32, int32, int32) {
			s := sdb.Reader.Stats()
			return int32(s.OpenConnections), int32(s.Idle), int32(s.InUse)
		}
		st.Close = func() { _ = sdb.Close() }

	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.Repo = pg.NewCredentialRepo(pool)
		st.Stats = func() (int32, int32, int32) {
			s := pool.Stat()
			return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
		}
		st.Close = pool.Close

	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis store selected but redis.url is empty")
		}
		st.Repo = red.NewCredentialRepo(redisClient)
		st.Stats = func() (int32, int32, int32) {
			s := redisClient.PoolStats()
			return int32(s.TotalConns), int32(s.IdleConns), int32(s.TotalConns - s.IdleConns)
		}

	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	st.Repo = NewMeteredRepo(st.Repo, driver)
	return st, nil
}
