// ABOUTME: Tests for opening the SQLite database
// ABOUTME: Verifies file creation, WAL mode and idempotent schema setup
package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dealpulse.db")

	database, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	defer database.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")

	var mode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenDatabaseInvalidPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	_, err := OpenDatabase(filepath.Join(blocker, "dealpulse.db"))
	assert.Error(t, err)
}

func TestOpenDatabaseTwice(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dealpulse.db")

	first, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenDatabase(dbPath)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count))
	assert.Equal(t, 4, count)
}
