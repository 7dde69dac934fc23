package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"sqlbadlands/internal/dataset"
)

// Manager forwards player SQL to an in-memory SQLite engine seeded with the
// fixture dataset. In snapshot mode every submission gets its own freshly
// seeded database. In rollback mode submissions share one database and run
// inside a transaction that is always rolled back.
type Manager struct {
	mode    string
	timeout time.Duration

	mu     sync.Mutex
	shared *sql.DB
	names  []string
	closed bool
}

func NewManager(mode string, timeout time.Duration) *Manager {
	if mode == "" {
		mode = IsolationSnapshot
	}
	return &Manager{mode: mode, timeout: timeout}
}

// Open validates the isolation mode and seeds whatever the mode keeps alive.
func (m *Manager) Open(ctx context.Context) error {
	switch m.mode {
	case IsolationSnapshot, IsolationRollback:
	default:
		return fmt.Errorf("unknown isolation mode %q", m.mode)
	}

	db, err := openSeeded(ctx)
	if err != nil {
		return err
	}
	tables, err := dataset.Catalog(ctx, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("read catalog: %w", err)
	}
	m.names = catalogNames(tables)

	if m.mode == IsolationRollback {
		m.shared = db
		return nil
	}
	return db.Close()
}

func (m *Manager) Mode() string { return m.mode }

func (m *Manager) Detect(ctx context.Context) (EngineInfo, error) {
	var v string
	err := m.withDB(ctx, func(ctx context.Context, q queryExecer) error {
		return q.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&v)
	})
	if err != nil {
		return EngineInfo{}, err
	}
	return EngineInfo{Name: "sqlite", Version: v, Isolation: m.mode}, nil
}

// Query runs a statement that is expected to return rows.
func (m *Manager) Query(ctx context.Context, query string) (QueryResult, error) {
	var res QueryResult
	err := m.submit(ctx, func(ctx context.Context, q queryExecer) error {
		started := time.Now()
		rows, err := q.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		res, err = scanRows(rows)
		res.Duration = time.Since(started)
		return err
	})
	if err != nil {
		return QueryResult{}, m.wrapError(err)
	}
	return res, nil
}

// Exec runs a mutating statement and reports the affected row count.
func (m *Manager) Exec(ctx context.Context, query string) (QueryResult, error) {
	var res QueryResult
	err := m.submit(ctx, func(ctx context.Context, q queryExecer) error {
		started := time.Now()
		r, err := q.ExecContext(ctx, query)
		if err != nil {
			return err
		}
		n, err := r.RowsAffected()
		if err != nil {
			return err
		}
		res = QueryResult{Kind: KindAffected, AffectedRows: n, Duration: time.Since(started)}
		return nil
	})
	if err != nil {
		return QueryResult{}, m.wrapError(err)
	}
	return res, nil
}

// Catalog lists the tables and columns a player can query.
func (m *Manager) Catalog(ctx context.Context) ([]dataset.Table, error) {
	var out []dataset.Table
	err := m.withDB(ctx, func(ctx context.Context, q queryExecer) error {
		var err error
		out, err = dataset.Catalog(ctx, q)
		return err
	})
	return out, err
}

// Reset re-seeds the shared database. Snapshot mode has nothing to reset.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.shared == nil {
		return nil
	}
	return dataset.Reset(ctx, m.shared)
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.shared != nil {
		return m.shared.Close()
	}
	return nil
}

type queryExecer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// submit runs fn under the configured isolation with the per-query timeout.
func (m *Manager) submit(ctx context.Context, fn func(context.Context, queryExecer) error) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	if m.mode == IsolationRollback {
		return m.inRollback(ctx, fn)
	}
	return m.inSnapshot(ctx, fn)
}

func (m *Manager) inSnapshot(ctx context.Context, fn func(context.Context, queryExecer) error) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}
	db, err := openSeeded(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func (m *Manager) inRollback(ctx context.Context, fn func(context.Context, queryExecer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	tx, err := m.shared.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	runErr := fn(ctx, tx)
	if err := tx.Rollback(); err != nil {
		// The statement ended the transaction itself (COMMIT/END), so the
		// shared copy may hold player writes.
		if resetErr := dataset.Reset(context.WithoutCancel(ctx), m.shared); resetErr != nil {
			return errors.Join(runErr, fmt.Errorf("reseed after rollback failure: %w", resetErr))
		}
	}
	return runErr
}

// withDB runs a read-only helper against whichever database the mode keeps.
func (m *Manager) withDB(ctx context.Context, fn func(context.Context, queryExecer) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.shared != nil {
		defer m.mu.Unlock()
		return fn(ctx, m.shared)
	}
	m.mu.Unlock()
	db, err := openSeeded(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func (m *Manager) wrapError(err error) error {
	if errors.Is(err, ErrClosed) {
		return err
	}
	return &QueryError{Message: err.Error(), Hint: suggest(err.Error(), m.names), Err: err}
}

// openSeeded returns a single-connection in-memory database holding a fresh
// copy of the fixture dataset.
func openSeeded(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := dataset.Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func scanRows(rows *sql.Rows) (QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{}, err
	}
	res := QueryResult{Kind: KindRows, Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{}, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, err
	}
	return res, nil
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
