package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// identRe matches the table and column names the generic surface accepts.
// Values always go through placeholders; only identifiers are interpolated,
// and only after passing this check.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Query executes a SELECT and returns each row as a column-to-value map.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// InsertRecord inserts data into table and returns the last insert id.
// Columns are ordered by name so the generated SQL is deterministic.
func (s *Store) InsertRecord(ctx context.Context, table string, data map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validIdent(table); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("no columns to insert")
	}

	columns := make([]string, 0, len(data))
	for col := range data {
		if err := validIdent(col); err != nil {
			return 0, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = data[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateRecords updates rows of table matching where and returns the number
// of rows affected.
func (s *Store) UpdateRecords(ctx context.Context, table string, data map[string]any, where string, whereArgs ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validIdent(table); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("no columns to update")
	}
	if strings.TrimSpace(where) == "" {
		return 0, fmt.Errorf("where clause is required")
	}

	columns := make([]string, 0, len(data))
	for col := range data {
		if err := validIdent(col); err != nil {
			return 0, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(whereArgs))
	for i, col := range columns {
		sets[i] = col + " = ?"
		args = append(args, data[col])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// DeleteRecords deletes rows of table matching where and returns the number
// of rows affected.
func (s *Store) DeleteRecords(ctx context.Context, table string, where string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validIdent(table); err != nil {
		return 0, err
	}
	if strings.TrimSpace(where) == "" {
		return 0, fmt.Errorf("where clause is required")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// CreateIndex creates an index named idx_<table>_<columns> over the given
// columns, optionally unique.
func (s *Store) CreateIndex(ctx context.Context, table string, columns []string, unique bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validIdent(table); err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("no index columns")
	}
	for _, col := range columns {
		if err := validIdent(col); err != nil {
			return err
		}
	}

	indexType := ""
	if unique {
		indexType = "UNIQUE "
	}
	indexName := "idx_" + table + "_" + strings.Join(columns, "_")
	query := fmt.Sprintf(
		"CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		indexType, indexName, table, strings.Join(columns, ", "),
	)
	if _, err := s.sqlDB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create index %s: %w", indexName, err)
	}
	return nil
}
