package migrations

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "billing-tools/internal/common/errors"
)

// DefaultPattern matches versioned SQL migrations anywhere below the root.
const DefaultPattern = "**/db/migration/*.sql"

// Scan returns the files below root matching pattern, as sorted slash-separated
// paths relative to root. Entries whose name starts with a dot, and everything
// below them, are ignored.
func Scan(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, apperrors.NewMigrationScanFailedError(root, doublestar.ErrBadPattern)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.NewMigrationScanFailedError(root, err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewMigrationScanFailedError(root, fmt.Errorf("not a directory"))
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, apperrors.NewMigrationScanFailedError(root, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if isHidden(m) {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

func isHidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}
