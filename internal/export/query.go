package export

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/ephysio/epictree/internal/logging"
)

var queryLog = logging.Component("export.query")

// identRegex constrains column names interpolated into SQL. Values always go
// through placeholders; only identifiers need this gate.
var identRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// QueryService answers SQL queries over an exported Parquet file using an
// in-memory DuckDB instance with read_parquet.
type QueryService struct {
	db   *sql.DB
	path string
}

// NewQueryService opens an in-memory DuckDB over the export at path.
func NewQueryService(path string) (*QueryService, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &QueryService{db: db, path: path}, nil
}

// Close closes the database.
func (s *QueryService) Close() error {
	return s.db.Close()
}

// TotalRows returns the number of exported epochs.
func (s *QueryService) TotalRows(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM read_parquet(?)", s.path).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// SelectedCount returns how many exported epochs carried the selection flag.
func (s *QueryService) SelectedCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM read_parquet(?) WHERE selected", s.path).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count selected: %w", err)
	}
	return n, nil
}

// FieldCount is one bucket of a group-by query.
type FieldCount struct {
	Value    string
	Count    int64
	Selected int64
}

// CountByField groups exported epochs by a column and returns per-value
// totals, largest first.
func (s *QueryService) CountByField(ctx context.Context, field string) ([]FieldCount, error) {
	if !identRegex.MatchString(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}

	query := fmt.Sprintf(`
		SELECT CAST(%s AS VARCHAR) AS value,
		       count(*) AS total,
		       count(*) FILTER (WHERE selected) AS selected
		FROM read_parquet(?)
		GROUP BY value
		ORDER BY total DESC, value`, field)

	rows, err := s.db.QueryContext(ctx, query, s.path)
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", field, err)
	}
	defer rows.Close()

	var out []FieldCount
	for rows.Next() {
		var fc FieldCount
		var value sql.NullString
		if err := rows.Scan(&value, &fc.Count, &fc.Selected); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		fc.Value = value.String
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	queryLog.Debug("group-by query", "field", field, "buckets", len(out))
	return out, nil
}

// SelectedIdentityKeys returns the identity keys of all selected epochs in
// the export, in file order.
func (s *QueryService) SelectedIdentityKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT identity_key FROM read_parquet(?) WHERE selected", s.path)
	if err != nil {
		return nil, fmt.Errorf("query identity keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return keys, nil
}

// Query runs an arbitrary SQL statement against the export. The export file
// is visible as the table function read_parquet(path); the caller passes the
// path placeholder themselves via args.
func (s *QueryService) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Path returns the export file the service reads.
func (s *QueryService) Path() string {
	return s.path
}
