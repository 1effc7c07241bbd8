// Package app is the composition root: it wires configuration, storage, the
// audit ledger, the record store, and the retention scheduler together.
package app

import (
	"context"
	"fmt"

	"chartvault.io/vault/internal/config"
	"chartvault.io/vault/internal/crypt"
	"chartvault.io/vault/internal/infrastructure"
	"chartvault.io/vault/internal/ledger"
	"chartvault.io/vault/internal/pkg/worker"
	"chartvault.io/vault/internal/retention"
	"chartvault.io/vault/internal/store"
)

// Application holds composed application dependencies.
type Application struct {
	Config    *config.Config
	DB        *infrastructure.Database
	Ledger    *ledger.Ledger
	Store     *store.Store
	Retention *retention.Coordinator
	Scheduler *retention.Scheduler
	Pools     *worker.Pools
}

// Bootstrap initializes all dependencies with manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	db, err := infrastructure.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate schema: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:     cfg.Worker.GeneralPoolSize,
		MaintenancePoolSize: cfg.Worker.MaintenancePoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	l := ledger.New(db.DB,
		ledger.WithRetentionYears(cfg.Retention.Years),
		ledger.WithBackupDir(cfg.Backup.Dir),
	)

	storeOpts := []store.Option{}
	if cfg.Security.FieldEncryption {
		cipher, err := crypt.NewFieldCipher(
			cfg.Security.EncryptionPassphrase,
			cfg.Security.EncryptionSalt,
		)
		if err != nil {
			pools.Shutdown()
			db.Close()
			return nil, fmt.Errorf("init field cipher: %w", err)
		}
		storeOpts = append(storeOpts, store.WithCipher(cipher))
	}
	s := store.New(db.DB, l, storeOpts...)

	coordinator := retention.NewCoordinator(s, l)

	return &Application{
		Config:    cfg,
		DB:        db,
		Ledger:    l,
		Store:     s,
		Retention: coordinator,
		Scheduler: retention.NewScheduler(coordinator, l, cfg.Cleanup),
		Pools:     pools,
	}, nil
}
