package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

// BulkRepository turns normalized row sets into idempotent multi-row
// inserts. It is the only component allowed destructive writes: a reset
// load deletes the destination and restarts its identity sequence before
// inserting, all inside one transaction so a mid-sequence failure leaves
// the table in its pre-reset state.
type BulkRepository struct {
	db        *sqlx.DB
	batchSize int
}

// NewBulkRepository creates a bulk loader against the record store.
func NewBulkRepository(db *sqlx.DB, batchSize int) *BulkRepository {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &BulkRepository{db: db, batchSize: batchSize}
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// TableExists checks the destination in information_schema.
func (r *BulkRepository) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, table); err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

// Load inserts rows into the destination table. With reset set and an
// existing destination, all rows are deleted and the identity sequence
// restarted first; reset against a table that has never been populated
// silently downgrades to a plain append.
func (r *BulkRepository) Load(ctx context.Context, table string, columns []string, rows [][]interface{}, reset bool) (int, error) {
	if !identifierPattern.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns for table %s", table)
	}
	for _, col := range columns {
		if !identifierPattern.MatchString(col) {
			return 0, fmt.Errorf("invalid column name %q", col)
		}
	}

	if reset {
		exists, err := r.TableExists(ctx, table)
		if err != nil {
			return 0, err
		}
		if !exists {
			reset = false
		}
	}
	if len(rows) == 0 && !reset {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk load: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if reset {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return 0, fmt.Errorf("reset %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER SEQUENCE %s_id_seq RESTART", table)); err != nil {
			return 0, fmt.Errorf("restart %s sequence: %w", table, err)
		}
	}

	// Postgres caps bind parameters per statement at 65535.
	chunk := r.batchSize
	if max := 65535 / len(columns); chunk > max {
		chunk = max
	}

	inserted := 0
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		if err := r.insertChunk(ctx, tx, table, columns, rows[start:end]); err != nil {
			return 0, err
		}
		inserted += end - start
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk load: %w", err)
	}
	return inserted, nil
}

func (r *BulkRepository) insertChunk(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]interface{}) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]interface{}, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("bulk insert into %s: %w", table, err)
	}
	return nil
}
