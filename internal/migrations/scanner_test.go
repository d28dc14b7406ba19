package migrations

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "billing-tools/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "db/migration/V1__init.sql", "CREATE TABLE a (id INT);")
	touch(t, root, "db/migration/V2__more.sql", "CREATE TABLE b (id INT);")
	touch(t, root, "services/billing/src/main/resources/db/migration/V1__invoice.sql", "CREATE TABLE invoice (id BIGINT);")
	touch(t, root, "db/migration/README.md", "docs")
	touch(t, root, "db/migration/nested/V9__deep.sql", "SELECT 1;")
	touch(t, root, "db/migrations/V1__wrong_dir.sql", "SELECT 1;")
	touch(t, root, ".git/db/migration/V1__hidden.sql", "SELECT 1;")
	touch(t, root, "db/migration/.V3__hidden.sql", "SELECT 1;")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "db/migration/V4__dir.sql"), 0o755))

	files, err := Scan(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"db/migration/V1__init.sql",
		"db/migration/V2__more.sql",
		"services/billing/src/main/resources/db/migration/V1__invoice.sql",
	}, files)
}

func TestScan_Empty(t *testing.T) {
	files, err := Scan(t.TempDir(), DefaultPattern)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_Errors(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "file.txt", "x")

	tests := []struct {
		name    string
		root    string
		pattern string
	}{
		{name: "missing root", root: filepath.Join(root, "missing"), pattern: DefaultPattern},
		{name: "root is a file", root: filepath.Join(root, "file.txt"), pattern: DefaultPattern},
		{name: "bad pattern", root: root, pattern: "db/[migration/*.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scan(tt.root, tt.pattern)
			require.Error(t, err)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeMigrationScanFailed, stdErr.Code)
		})
	}
}
