package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/rcliao/firerecord/internal/metrics"
)

// SQLiteStore is a local Client backed by SQLite. The JSON tree is kept as one
// document per top-level path segment; push keys are monotonic ULIDs, so key
// order equals insertion order.
type SQLiteStore struct {
	db      *sql.DB
	keys    *keySource
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteLogger sets the store logger.
func WithSQLiteLogger(l zerolog.Logger) SQLiteOption {
	return func(s *SQLiteStore) { s.logger = l }
}

// WithSQLiteMetrics records every request on m.
func WithSQLiteMetrics(m *metrics.Collector) SQLiteOption {
	return func(s *SQLiteStore) { s.metrics = m }
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		keys:    newKeySource(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS roots (
		name       TEXT PRIMARY KEY,
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Request implements Client.
func (s *SQLiteStore) Request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	started := time.Now()
	resp, err := s.request(ctx, verb, path, q, body)
	s.metrics.Observe(string(verb), outcome(resp, err), started)
	s.logger.Debug().Str("verb", string(verb)).Str("path", path).Err(err).Msg("store request")
	return resp, err
}

func (s *SQLiteStore) request(ctx context.Context, verb Verb, path string, q *Query, body any) (any, error) {
	segs, rejected := checkPath(path)
	if rejected != nil {
		return rejected, nil
	}

	switch verb {
	case Get:
		if q != nil {
			return s.query(ctx, segs, q)
		}
		return s.get(ctx, segs)
	case Push, Set, Update, Delete:
		return s.write(ctx, verb, segs, body)
	}
	return errorPayload(fmt.Sprintf("unsupported verb %q", verb)), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, root string) (any, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT doc FROM roots WHERE name = ?`, root).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", root, err)
	}
	return doc, nil
}

func (s *SQLiteStore) get(ctx context.Context, segs []string) (any, error) {
	doc, err := s.load(ctx, s.db, segs[0])
	if err != nil {
		return nil, err
	}
	return descend(doc, segs[1:]), nil
}

// query runs the equality filter inside SQLite: children of the addressed
// node whose field (a "/" path walks into nested objects) has the requested
// JSON type and value. Stored documents
// hold no nulls, so a null filter matches children missing the field.
func (s *SQLiteStore) query(ctx context.Context, segs []string, q *Query) (any, error) {
	if !validOrderBy(q.OrderBy) {
		return errorPayload(fmt.Sprintf("invalid orderBy %q", q.OrderBy)), nil
	}
	field := nodePath(splitPath(q.OrderBy))
	args := []any{nodePath(segs[1:]), segs[0], field}

	cond := `json_type(j.value, ?) IS NULL`
	if q.EqualTo != nil {
		arg, types, err := filterArg(q.EqualTo)
		if err != nil {
			return errorPayload(err.Error()), nil
		}
		cond = `json_type(j.value, ?) IN (` + types + `) AND json_extract(j.value, ?) IS ?`
		args = append(args, field, arg)
	}

	stmt := `SELECT j.key, j.value FROM roots r, json_each(r.doc, ?) j
		WHERE r.name = ? AND j.type = 'object' AND ` + cond + `
		ORDER BY j.key`
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		out[key] = data
	}
	return out, rows.Err()
}

func (s *SQLiteStore) write(ctx context.Context, verb Verb, segs []string, body any) (any, error) {
	value, err := normalizeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	root, rest := segs[0], segs[1:]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	doc, err := s.load(ctx, tx, root)
	if err != nil {
		return nil, err
	}

	doc, resp, rejected := applyWrite(doc, verb, rest, value, s.keys.next)
	if rejected != nil {
		return rejected, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if doc == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM roots WHERE name = ?`, root)
	} else {
		var raw []byte
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO roots (name, doc, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
			root, string(raw), now)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", root, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

// filterArg converts an equality value to a SQL argument plus the JSON types
// it may match; json_extract reports booleans as 1/0.
func filterArg(v any) (any, string, error) {
	switch x := v.(type) {
	case string:
		return x, `'text'`, nil
	case bool:
		if x {
			return 1, `'true'`, nil
		}
		return 0, `'false'`, nil
	case float64, float32, int, int64:
		return x, `'integer','real'`, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, "", err
		}
		return f, `'integer','real'`, nil
	}
	return nil, "", fmt.Errorf("unsupported equalTo type %T", v)
}

func nodePath(segs []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segs {
		b.WriteString(`."`)
		b.WriteString(seg)
		b.WriteString(`"`)
	}
	return b.String()
}

