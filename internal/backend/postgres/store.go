// Package postgres implements backend.RecordStore against a directly owned
// Postgres database, for self-hosted deployments that skip the hosted REST
// layer. The SQL is built from the same query descriptor the hosted store
// encodes into URL parameters.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/axelsjewelry/storefront/internal/backend"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Select(ctx context.Context, table string, q backend.Query) ([]backend.Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM " + table)
	args, err := appendWhere(&b, q.Filters, nil)
	if err != nil {
		return nil, err
	}

	if len(q.Ordering) > 0 {
		parts := make([]string, 0, len(q.Ordering))
		for _, o := range q.Ordering {
			if err := checkIdent(o.Column); err != nil {
				return nil, err
			}
			dir := " ASC"
			if o.Desc {
				dir = " DESC"
			}
			parts = append(parts, o.Column+dir)
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.LimitRows > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.LimitRows))
	}
	if q.OffsetRows > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.OffsetRows))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) Insert(ctx context.Context, table string, values backend.Record) (backend.Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	cols := sortedColumns(values)
	placeholders := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		placeholders = append(placeholders, "$"+strconv.Itoa(i+1))
		arg, err := toArg(values[c])
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, backend.ErrNoRows
	}
	return recs[0], nil
}

func (s *Store) Update(ctx context.Context, table string, q backend.Query, values backend.Record) ([]backend.Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}

	cols := sortedColumns(values)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		sets = append(sets, c+" = $"+strconv.Itoa(i+1))
		arg, err := toArg(values[c])
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	var b strings.Builder
	b.WriteString("UPDATE " + table + " SET " + strings.Join(sets, ", "))
	args, err := appendWhere(&b, q.Filters, args)
	if err != nil {
		return nil, err
	}
	b.WriteString(" RETURNING *")

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) Delete(ctx context.Context, table string, q backend.Query) error {
	if err := checkIdent(table); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM " + table)
	args, err := appendWhere(&b, q.Filters, nil)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, b.String(), args...)
	return err
}

func appendWhere(b *strings.Builder, filters []backend.Filter, args []any) ([]any, error) {
	if len(filters) == 0 {
		return args, nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := checkIdent(f.Column); err != nil {
			return nil, err
		}
		n := strconv.Itoa(len(args) + 1)
		switch f.Op {
		case backend.OpIn:
			vals, _ := f.Value.([]string)
			conds = append(conds, f.Column+" = ANY($"+n+")")
			args = append(args, pq.Array(vals))
		default:
			conds = append(conds, f.Column+" = $"+n)
			args = append(args, f.Value)
		}
	}
	b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	return args, nil
}

func scanRecords(rows *sql.Rows) ([]backend.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []backend.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(backend.Record, len(cols))
		for i, c := range cols {
			rec[c] = normalize(vals[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// normalize makes scanned values JSON-friendly: text arrives as []byte, and
// jsonb columns decode into their structured form.
func normalize(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if len(s) > 0 && (s[0] == '{' || s[0] == '[') {
		var decoded any
		if err := json.Unmarshal(b, &decoded); err == nil {
			return decoded
		}
	}
	return s
}

// toArg converts structured record values (maps, slices) to JSON for jsonb
// columns; scalars pass through.
func toArg(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte, time.Time:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record value: %w", err)
	}
	return b, nil
}

func sortedColumns(values backend.Record) []string {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// checkIdent rejects anything that is not a plain SQL identifier. Tables and
// columns come from code, never from request input; this is a guard against
// accidents, not an escaping scheme.
func checkIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}
