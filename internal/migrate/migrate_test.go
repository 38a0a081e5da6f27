package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyRunsEachFileOnce(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"migrations/0002_notes.sql": {Data: []byte("-- +migrate Up\nALTER TABLE things ADD COLUMN note TEXT;\n-- +migrate Down\nDROP TABLE nothing;\n")},
		"migrations/0001_init.sql":  {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"migrations/README.md":      {Data: []byte("not sql")},
		"migrations/0003_empty.sql": {Data: []byte("-- +migrate Up\n\n-- +migrate Down\nDROP TABLE things;\n")},
	}

	applied, err := Apply(context.Background(), db, fsys, "migrations", SQLite)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_notes.sql"}, applied)

	_, err = db.Exec(`INSERT INTO things (id, note) VALUES (1, 'hi')`)
	require.NoError(t, err)

	applied, err = Apply(context.Background(), db, fsys, "migrations", SQLite)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestApplyStopsOnBrokenMigration(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"0001_ok.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"0002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	}

	applied, err := Apply(context.Background(), db, fsys, "", SQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0002_broken.sql")
	assert.Equal(t, []string{"0001_ok.sql"}, applied)

	var found int
	err = db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = '0002_broken.sql'`).Scan(&found)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestApplyErrors(t *testing.T) {
	_, err := Apply(context.Background(), nil, fstest.MapFS{}, ".", SQLite)
	require.Error(t, err)

	_, err = Apply(context.Background(), openDB(t), fstest.MapFS{}, "missing", SQLite)
	require.Error(t, err)
}

func TestExtractUp(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE a (id INT);", "CREATE TABLE a (id INT);"},
		{"up only", "-- +migrate Up\nCREATE TABLE a (id INT);", "\nCREATE TABLE a (id INT);"},
		{"up and down", "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;", "\nCREATE TABLE a (id INT);\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUp(tt.content))
		})
	}
}

func TestApplyRollsBackPartialMigration(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"0001_partial.sql": {Data: []byte("CREATE TABLE partial (id INTEGER);\nCREATE TABLE partial (id INTEGER);\nCREATE TABLE never (id INTEGER);")},
	}

	applied, err := Apply(context.Background(), db, fsys, ".", SQLite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Empty(t, applied)

	var found int
	err = db.QueryRow(`SELECT 1 FROM schema_migrations WHERE name = '0001_partial.sql'`).Scan(&found)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	err = db.QueryRow(`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'partial'`).Scan(&found)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
