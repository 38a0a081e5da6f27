// Package storage picks the repository backend for a database URL.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/postgres"
	"github.com/blackmichael/blogdemo/internal/sqlite"
)

// Repository is every persistence port plus lifecycle hooks.
type Repository interface {
	domain.PostRepository
	domain.CommentRepository
	domain.UserRepository
	domain.SessionRepository

	Migrate(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// BackendFor reports which backend serves databaseURL.
func BackendFor(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return BackendPostgres
	}
	return BackendSQLite
}

// Open connects to databaseURL and applies pending migrations. Postgres
// URLs go to the postgres backend; anything else is a SQLite file path.
func Open(databaseURL string) (Repository, error) {
	switch BackendFor(databaseURL) {
	case BackendPostgres:
		repo, err := postgres.NewRepository(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return repo, nil
	default:
		store, err := sqlite.Open(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	}
}
