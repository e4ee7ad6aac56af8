package directory

import (
	"fmt"
	"log/slog"
)

// Open creates the directory store selected by the config.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "", "sqlite":
		store, err := OpenSQLite(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("directory opened", "backend", "sqlite", "path", cfg.Path)
		return store, nil

	case "postgres", "postgresql":
		store, err := OpenPostgres(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("directory opened", "backend", "postgres")
		return store, nil

	case "memory":
		logger.Info("directory opened", "backend", "memory")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown directory backend %q", cfg.Type)
	}
}
