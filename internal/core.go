package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/uxr/internal/assets"
	"github.com/starford/uxr/internal/categories"
	"github.com/starford/uxr/internal/index"
	"github.com/starford/uxr/internal/reportservice"
	"github.com/starford/uxr/internal/storage"
)

// Core is the storage, index and services every front end shares.
type Core struct {
	Store   *storage.FS
	DB      *index.DB
	Service *reportservice.Service
	Assets  *assets.Store
}

// Open prepares the reports root and the index and builds the report
// service on top of them.
func Open(cfg *Config, logger *slog.Logger, opts ...reportservice.Option) (*Core, error) {
	store, err := storage.NewFS(cfg.Reports.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	dbPath := cfg.IndexPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	cats, err := categories.Open(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init categories: %w", err)
	}

	return &Core{
		Store:   store,
		DB:      db,
		Service: reportservice.NewService(store, db, cats, logger, opts...),
		Assets:  assets.NewStore(store.Root()),
	}, nil
}

// Close releases the index.
func (c *Core) Close() error {
	return c.DB.Close()
}
