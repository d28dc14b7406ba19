package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	apperrors "billing-tools/internal/common/errors"
	"billing-tools/internal/common/logger"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// HistoryReader reads applied migrations from the migration tool's history table.
type HistoryReader struct {
	db     *sql.DB
	table  string
	query  string
	logger logger.Logger
}

// NewHistoryReader rejects table names that are not plain, optionally
// schema-qualified identifiers.
func NewHistoryReader(db *sql.DB, table string, log logger.Logger) (*HistoryReader, error) {
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	return &HistoryReader{
		db:    db,
		table: table,
		query: fmt.Sprintf(
			"SELECT script, checksum FROM %s WHERE success AND checksum IS NOT NULL ORDER BY installed_rank",
			quoted,
		),
		logger: log.WithFields(map[string]interface{}{"historyTable": table}),
	}, nil
}

// Applied returns the recorded checksum per script name. When a script was
// applied more than once the latest row wins.
func (r *HistoryReader) Applied(ctx context.Context) (map[string]int32, error) {
	rows, err := r.db.QueryContext(ctx, r.query)
	if err != nil {
		return nil, apperrors.NewMigrationHistoryQueryFailedError(r.table, err)
	}
	defer rows.Close()

	applied := make(map[string]int32)
	for rows.Next() {
		var (
			script string
			sum    int32
		)
		if err := rows.Scan(&script, &sum); err != nil {
			return nil, apperrors.NewMigrationHistoryQueryFailedError(r.table, err)
		}
		applied[script] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewMigrationHistoryQueryFailedError(r.table, err)
	}

	r.logger.Debug("loaded migration history", map[string]interface{}{
		"scripts": len(applied),
	})
	return applied, nil
}

func quoteTable(table string) (string, error) {
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("invalid history table name %q", table)
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}
