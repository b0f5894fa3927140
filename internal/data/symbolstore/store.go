// Package symbolstore persists squeezed symbol tables and function maps so
// names stay stable across runs and stack traces can be symbolicated later.
package symbolstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nilscript/internal/engine/symbols"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Build is one recorded compile.
type Build struct {
	ID           string
	ProjectKey   string
	Timestamp    time.Time
	OutputPath   string
	FileCount    int
	ErrorCount   int
	WarningCount int
}

// FunctionLine marks where a signature starts in a source file. An empty
// Signature means the line is outside any named function.
type FunctionLine struct {
	Path      string
	Line      int
	Signature string
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("symbol store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create symbol store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func normalizeKey(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}

// RecordBuild stores a build with its symbol table and function lines in
// one transaction. A missing ID or timestamp is filled in. Symbols replace
// earlier pairs for the same short or long name.
func (s *Store) RecordBuild(b Build, table map[string]string, lines []FunctionLine) (Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ProjectKey = normalizeKey(b.ProjectKey)
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}

	shorts := make([]string, 0, len(table))
	for short := range table {
		shorts = append(shorts, short)
	}
	sort.Strings(shorts)

	err := s.withRetry("record build", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.Exec(`
INSERT INTO builds (id, project_key, ts_utc, output_path, file_count, error_count, warning_count)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.ProjectKey, b.Timestamp.UTC().Format(time.RFC3339Nano), b.OutputPath,
			b.FileCount, b.ErrorCount, b.WarningCount,
		); err != nil {
			return err
		}

		for _, short := range shorts {
			long := table[short]
			if _, err := tx.Exec(`DELETE FROM symbols WHERE project_key = ? AND long_name = ? AND short_name <> ?`,
				b.ProjectKey, long, short); err != nil {
				return err
			}
			if _, err := tx.Exec(`
INSERT INTO symbols (project_key, short_name, long_name, build_id) VALUES (?, ?, ?, ?)
ON CONFLICT(project_key, short_name) DO UPDATE SET
  long_name=excluded.long_name,
  build_id=excluded.build_id`,
				b.ProjectKey, short, long, b.ID); err != nil {
				return err
			}
		}

		for _, l := range lines {
			var signature any
			if l.Signature != "" {
				signature = l.Signature
			}
			if _, err := tx.Exec(`
INSERT OR REPLACE INTO function_lines (build_id, path, line, signature) VALUES (?, ?, ?, ?)`,
				b.ID, l.Path, l.Line, signature); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Build{}, err
	}
	return b, nil
}

// LoadSqueezeMap returns every short→long pair recorded for the project.
func (s *Store) LoadSqueezeMap(projectKey string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load squeeze map", func() error {
		var qErr error
		rows, qErr = s.db.Query(`SELECT short_name, long_name FROM symbols WHERE project_key = ?`, normalizeKey(projectKey))
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var short, long string
		if err := rows.Scan(&short, &long); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		out[short] = long
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}
	return out, nil
}

// Symbolicate rewrites squeezed and mangled names in text, such as a stack
// trace from generated code, to readable selectors.
func (s *Store) Symbolicate(projectKey, text string) (string, error) {
	table, err := s.LoadSqueezeMap(projectKey)
	if err != nil {
		return "", err
	}
	return symbols.FromSymbols(table).Symbolicate(text), nil
}

// LatestBuild returns the newest build of the project.
func (s *Store) LatestBuild(projectKey string) (Build, bool, error) {
	builds, err := s.Builds(projectKey, 1)
	if err != nil || len(builds) == 0 {
		return Build{}, false, err
	}
	return builds[0], true, nil
}

// Builds lists the project's builds, newest first. A limit of zero or less
// returns all of them.
func (s *Store) Builds(projectKey string, limit int) ([]Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT id, project_key, ts_utc, output_path, file_count, error_count, warning_count
FROM builds WHERE project_key = ? ORDER BY ts_utc DESC, created_at_utc DESC`
	args := []any{normalizeKey(projectKey)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load builds", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := make([]Build, 0)
	for rows.Next() {
		var (
			b     Build
			tsRaw string
		)
		if err := rows.Scan(&b.ID, &b.ProjectKey, &tsRaw, &b.OutputPath, &b.FileCount, &b.ErrorCount, &b.WarningCount); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build timestamp %q: %w", tsRaw, err)
		}
		b.Timestamp = ts.UTC()
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}
	return builds, nil
}

// FunctionLines returns the function map of path recorded by a build,
// ordered by line.
func (s *Store) FunctionLines(buildID, path string) ([]FunctionLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load function lines", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT path, line, COALESCE(signature, '') FROM function_lines
WHERE build_id = ? AND path = ? ORDER BY line ASC`, buildID, path)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]FunctionLine, 0)
	for rows.Next() {
		var l FunctionLine
		if err := rows.Scan(&l.Path, &l.Line, &l.Signature); err != nil {
			return nil, fmt.Errorf("scan function line row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate function line rows: %w", err)
	}
	return out, nil
}

// SignatureAt returns the signature in effect at line of path, given the
// lines of one function map.
func SignatureAt(lines []FunctionLine, line int) string {
	signature := ""
	for _, l := range lines {
		if l.Line > line {
			break
		}
		signature = l.Signature
	}
	return signature
}

// Prune deletes all but the newest keep builds of the project. Symbols are
// kept when a newer build still references them.
func (s *Store) Prune(projectKey string, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("prune must keep at least one build")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.withRetry("prune builds", func() error {
		res, err := s.db.Exec(`
DELETE FROM builds WHERE project_key = ? AND id NOT IN (
  SELECT id FROM builds WHERE project_key = ? ORDER BY ts_utc DESC, created_at_utc DESC LIMIT ?
)`, normalizeKey(projectKey), normalizeKey(projectKey), keep)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
