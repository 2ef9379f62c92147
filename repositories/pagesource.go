package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/stream-follow/pagination"
)

// keysetSource is the shared pagination.Source implementation for SQL-backed
// collections. Each repository builds one per listing, supplying the filtered
// query, the two order columns and a row scanner; the seek predicates and
// LIMIT handling live here once.
type keysetSource[T any] struct {
	db SQLExecutor

	selectCols string        // columns of the SELECT list
	from       string        // FROM clause, joins included
	where      string        // filter condition, "" for none
	args       []interface{} // arguments of the filter condition ($1..$n)

	primaryCol  string // qualified primary order column, e.g. "m.time"
	primaryCast string // SQL cast for the cursor value, e.g. "::timestamptz"
	idCol       string // qualified tiebreak id column, e.g. "m.id"

	scan func(*sql.Rows) (T, error)
	key  func(T) pagination.Cursor
}

func (s *keysetSource[T]) FetchAfter(ctx context.Context, after *pagination.Cursor, limit int) ([]T, error) {
	return s.fetch(ctx, after, limit, false)
}

func (s *keysetSource[T]) FetchBefore(ctx context.Context, before pagination.Cursor, limit int) ([]T, error) {
	return s.fetch(ctx, &before, limit, true)
}

func (s *keysetSource[T]) fetch(ctx context.Context, cursor *pagination.Cursor, limit int, descending bool) ([]T, error) {
	var b strings.Builder
	args := append([]interface{}(nil), s.args...)

	b.WriteString("SELECT ")
	b.WriteString(s.selectCols)
	b.WriteString(" FROM ")
	b.WriteString(s.from)

	conditions := make([]string, 0, 2)
	if s.where != "" {
		conditions = append(conditions, s.where)
	}
	if cursor != nil {
		op := ">"
		if descending {
			op = "<"
		}
		conditions = append(conditions, fmt.Sprintf("(%s, %s) %s ($%d%s, $%d)",
			s.primaryCol, s.idCol, op, len(args)+1, s.primaryCast, len(args)+2))
		args = append(args, cursor.Primary, cursor.ID)
	}
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}

	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s %s LIMIT $%d", s.primaryCol, dir, s.idCol, dir, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page: %w", err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page rows: %w", err)
	}
	return items, nil
}

func (s *keysetSource[T]) Bounds(ctx context.Context) (int, int, bool, error) {
	firstID, ok, err := s.boundaryID(ctx, "ASC")
	if err != nil || !ok {
		return 0, 0, false, err
	}
	lastID, _, err := s.boundaryID(ctx, "DESC")
	if err != nil {
		return 0, 0, false, err
	}
	return firstID, lastID, true, nil
}

func (s *keysetSource[T]) boundaryID(ctx context.Context, dir string) (int, bool, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.idCol)
	b.WriteString(" FROM ")
	b.WriteString(s.from)
	if s.where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(s.where)
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s %s LIMIT 1", s.primaryCol, dir, s.idCol, dir)

	var id int
	err := s.db.QueryRowContext(ctx, b.String(), s.args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query collection boundary: %w", err)
	}
	return id, true, nil
}

func (s *keysetSource[T]) Key(item T) pagination.Cursor {
	return s.key(item)
}
