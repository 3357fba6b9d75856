// Package storage selects and opens the annotation repository backend.
package storage

import (
	"fmt"
	"io"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/pkg/storage/badger"
	"github.com/absmach/roadlens/pkg/storage/postgres"
	"github.com/absmach/roadlens/pkg/storage/sqlite"
)

const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Badger   = "badger"
)

type Config struct {
	Type string `env:"STORAGE_TYPE" envDefault:"memory"`

	PostgresHost    string `env:"POSTGRES_HOST"    envDefault:"localhost"`
	PostgresPort    string `env:"POSTGRES_PORT"    envDefault:"5432"`
	PostgresUser    string `env:"POSTGRES_USER"    envDefault:"roadlens"`
	PostgresPass    string `env:"POSTGRES_PASS"    envDefault:"roadlens"`
	PostgresDB      string `env:"POSTGRES_DB"      envDefault:"roadlens"`
	PostgresSSLMode string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"./roadlens.db"`

	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/badger"`
}

type Repositories struct {
	Annotations annotation.Repository
	// Closer closes the underlying persistent storage connection.
	// It is nil for the in-memory backend.
	Closer io.Closer
}

func NewRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case Postgres:
		db, err := postgres.NewDatabase(
			cfg.PostgresHost,
			cfg.PostgresPort,
			cfg.PostgresUser,
			cfg.PostgresPass,
			cfg.PostgresDB,
			cfg.PostgresSSLMode,
		)
		if err != nil {
			return nil, err
		}

		return &Repositories{Annotations: postgres.NewAnnotationRepository(db), Closer: db}, nil
	case SQLite:
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		return &Repositories{Annotations: sqlite.NewAnnotationRepository(db), Closer: db}, nil
	case Badger:
		db, err := badger.NewDatabase(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}

		return &Repositories{Annotations: badger.NewAnnotationRepository(db), Closer: db}, nil
	case Memory, "":
		return &Repositories{Annotations: NewInMemoryRepository()}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
