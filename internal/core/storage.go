package core

import (
	"context"
	"fmt"

	"doglog/internal/config"
	"doglog/internal/docstore"
	"doglog/internal/infra/persistence/firestore"
	"doglog/internal/infra/persistence/memory"
	"doglog/internal/infra/persistence/postgres"
	"doglog/internal/infra/persistence/sqlite"
)

// OpenStore selects a document store backend from cfg. Defaults to sqlite
// when no driver is set.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (docstore.Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = docstore.DriverSQLite
	}
	switch driver {
	case docstore.DriverMemory:
		return memory.NewStore(), nil
	case docstore.DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case docstore.DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case docstore.DriverFirestore:
		return firestore.New(ctx, firestore.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			DatabaseID:      cfg.Firestore.DatabaseID,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
