package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/arflow/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add users table", "add_users_table"},
		{"Add-Users-Table", "add_users_table"},
		{"add__sync__logs", "add_sync_logs"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add payment notes", "Adds notes to payments")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_payment_notes.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_payment_notes.down.sql"), first.DownPath)

	body, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- Migration: add_payment_notes")
	assert.Contains(t, string(body), "-- Adds notes to payments")

	second, err := CreateMigration(dir, "Index Sync Logs", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	list, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, "add_payment_notes"}, {2, "index_sync_logs"}}, list)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		list, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("orders by version and skips unnumbered files", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000010_later.up.sql", "000002_early.up.sql", "000002_early.down.sql",
			"readme.up.sql", "notes.txt",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		list, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []Entry{{2, "early"}, {10, "later"}}, list)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := migrations.FS.Open(down)
		assert.NoError(t, err, "missing rollback for %s", up)
	}
}
