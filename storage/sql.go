package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ncobase/lamet/types"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

const columns = "name, value, tags, type, unit, count, recorded_at, created_at, updated_at"

const columnCount = 9

// SQLStore persists records to a relational table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	closer  func() error
}

// NewSQLStore wraps db for the named dialect (postgres, mysql or sqlite).
// closer runs on Close; nil closes db.
func NewSQLStore(db *sql.DB, dialectName, table string, closer func() error) (*SQLStore, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("storage: unsupported sql dialect %q", dialectName)
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("storage: invalid table name %q", table)
	}
	if closer == nil {
		closer = db.Close
	}
	return &SQLStore{db: db, dialect: d, table: table, closer: closer}, nil
}

// Dialect returns the SQL dialect name.
func (s *SQLStore) Dialect() string {
	return s.dialect.name
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *SQLStore) BulkInsert(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	perStmt := s.dialect.maxParams / columnCount
	for start := 0; start < len(records); start += perStmt {
		end := min(start+perStmt, len(records))
		query, args, err := s.insertStatement(records[start:end])
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("storage: insert into %s: %w", s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) insertStatement(records []types.Record) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", s.table, columns)

	args := make([]any, 0, len(records)*columnCount)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(s.dialect.placeholders(len(args)+1, columnCount))
		b.WriteString(")")

		tags, err := marshalTags(r.Tags)
		if err != nil {
			return "", nil, err
		}
		var unit any
		if r.Unit != "" {
			unit = r.Unit
		}
		args = append(args,
			r.Name,
			r.Value,
			tags,
			string(r.Kind.OrDefault()),
			unit,
			r.Count,
			s.dialect.timeArg(r.RecordedAt),
			s.dialect.timeArg(r.CreatedAt),
			s.dialect.timeArg(r.UpdatedAt),
		)
	}
	return b.String(), args, nil
}

func marshalTags(tags types.Tags) (string, error) {
	if tags == nil {
		tags = types.Tags{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("storage: encode tags: %w", err)
	}
	return string(b), nil
}

func (s *SQLStore) deleteStatement() string {
	return fmt.Sprintf("DELETE FROM %s WHERE recorded_at < %s", s.table, s.dialect.placeholder(1))
}

func (s *SQLStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.deleteStatement(), s.dialect.timeArg(cutoff))
	if err != nil {
		return 0, fmt.Errorf("storage: delete from %s: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLStore) DescribeDeleteBefore(cutoff time.Time) string {
	bindings, _ := json.Marshal([]string{cutoff.UTC().Format(time.RFC3339Nano)})
	return s.deleteStatement() + ", " + string(bindings)
}

func (s *SQLStore) Query(ctx context.Context, filter Filter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, cond+" "+s.dialect.placeholder(len(args)))
	}
	if filter.Name != "" {
		add("name =", filter.Name)
	}
	if filter.Kind != "" {
		add("type =", filter.Kind)
	}
	if filter.From != nil {
		add("recorded_at >=", s.dialect.timeArg(*filter.From))
	}
	if filter.To != nil {
		add("recorded_at <=", s.dialect.timeArg(*filter.To))
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s", columns, s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := make([]types.Record, 0)
	for rows.Next() {
		var (
			r                    types.Record
			tags                 []byte
			kind                 string
			unit                 sql.NullString
			createdAt, updatedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Value, &tags, &kind, &unit, &r.Count, &r.RecordedAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &r.Tags); err != nil {
				return nil, fmt.Errorf("storage: decode tags of %d: %w", r.ID, err)
			}
		}
		r.Kind = types.Kind(kind)
		r.Unit = unit.String
		r.RecordedAt = r.RecordedAt.UTC()
		r.CreatedAt = createdAt.Time.UTC()
		r.UpdatedAt = updatedAt.Time.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	return s.closer()
}
