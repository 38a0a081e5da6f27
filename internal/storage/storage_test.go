package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendFor(t *testing.T) {
	assert.Equal(t, BackendPostgres, BackendFor("postgres://u:p@db/blog"))
	assert.Equal(t, BackendPostgres, BackendFor("postgresql://db/blog"))
	assert.Equal(t, BackendSQLite, BackendFor("blog.db"))
	assert.Equal(t, BackendSQLite, BackendFor("/var/lib/blog/postgres.db"))
}

func TestOpenSQLite(t *testing.T) {
	repo, err := Open(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(context.Background()))

	applied, err := repo.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	_, err = Open("postgres://blog@127.0.0.1:1/blog?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}
