// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package hostdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// Row is a single result row addressed by column name, returned by All and
// Get. Scanning into a typed struct is the caller's responsibility via Scan.
type Row struct {
	columns []string
	values  []interface{}
}

// Scan copies the row's column values, in column order, into dest.
func (r Row) Scan(dest ...interface{}) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("hostdb: Scan() destination count %d does not match column count %d", len(dest), len(r.values))
	}
	for i, v := range r.values {
		if err := convertAssign(dest[i], v); err != nil {
			return fmt.Errorf("hostdb: column %q: %w", r.columns[i], err)
		}
	}
	return nil
}

// RunResult is the outcome of a Run (INSERT/UPDATE/DELETE) call.
type RunResult struct {
	LastInsertRowID int64
	ChangedRows     int64
}

// Gateway is the single-writer handle to the host database file. All
// methods are safe for concurrent use; writes are serialized by the
// underlying *sql.DB's own connection pool plus writeMu, which forces Run
// and Transaction to execute one at a time even though SQLite's driver will
// otherwise interleave them badly under WAL.
type Gateway struct {
	path          string
	idleTimeout   time.Duration
	log           zerolog.Logger
	activity      *activityTracker
	writeMu sync.Mutex
	mu      sync.RWMutex // guards conn/open against concurrent Suspend
	conn    *sql.DB
	open    bool
}

// Open creates a Gateway for the SQLite file at path. idleTimeout is stored
// but not consulted: the connection is closed only when Suspend is called,
// and IdleEligible uses an activity window fixed here. The connection is
// opened lazily on first use.
func Open(path string, idleTimeout time.Duration, log zerolog.Logger) *Gateway {
	return &Gateway{
		path:        path,
		idleTimeout: idleTimeout,
		log:         log.With().Str("component", "hostdb").Logger(),
		activity:    newActivityTracker(time.Minute, 6),
	}
}

// ensureOpen opens the connection if it is currently closed (first use, or
// after an auto-suspend).
func (g *Gateway) ensureOpen() (*sql.DB, error) {
	g.mu.RLock()
	if g.open {
		conn := g.conn
		g.mu.RUnlock()
		return conn, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		return g.conn, nil
	}

	conn, err := sql.Open("sqlite", g.path)
	if err != nil {
		return nil, apperr.Backend(err, "open host database %s", g.path)
	}
	conn.SetMaxOpenConns(1) // single-writer contract; SQLite serializes writers anyway
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, apperr.Backend(err, "enable foreign keys on %s", g.path)
	}
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, apperr.Backend(err, "enable WAL on %s", g.path)
	}

	g.conn = conn
	g.open = true
	g.log.Debug().Str("path", g.path).Msg("host database opened")
	return conn, nil
}

// Suspend closes the underlying connection immediately, regardless of idle
// state. The next call to All/Get/Run/Transaction transparently reopens it.
// The auto-suspend service and the "suspend" command change the lifecycle
// state only; neither calls Suspend.
func (g *Gateway) Suspend() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	g.open = false
	if err != nil {
		return apperr.Backend(err, "close host database %s", g.path)
	}
	g.log.Info().Str("path", g.path).Msg("host database suspended")
	return nil
}

// IdleEligible reports whether no calls have landed within the tracked
// activity window.
func (g *Gateway) IdleEligible() bool {
	return g.activity.idle()
}

// IsOpen reports whether the underlying connection is currently live.
func (g *Gateway) IsOpen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.open
}

// Close releases the connection permanently. The Gateway must not be used
// afterward.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		return nil
	}
	err := g.conn.Close()
	g.open = false
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// All runs a SELECT and returns every matching row.
func (g *Gateway) All(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	g.activity.touch()
	conn, err := g.ensureOpen()
	if err != nil {
		return nil, err
	}
	return queryAll(ctx, conn, query, args...)
}

func queryAll(ctx context.Context, q querier, query string, args ...interface{}) ([]Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Backend(err, "query: %s", query)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperr.Backend(err, "columns: %s", query)
	}

	var out []Row
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperr.Backend(err, "scan: %s", query)
		}
		out = append(out, Row{columns: cols, values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Backend(err, "rows: %s", query)
	}
	return out, nil
}

// Get runs a SELECT and returns the first row, or (Row{}, false, nil) if
// there were no matches.
func (g *Gateway) Get(ctx context.Context, query string, args ...interface{}) (Row, bool, error) {
	rows, err := g.All(ctx, query, args...)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// Run executes an INSERT/UPDATE/DELETE outside of an explicit transaction.
// Callers whose write depends on a prior read of the same rows must use
// Transaction instead, so the read-then-write is atomic.
func (g *Gateway) Run(ctx context.Context, query string, args ...interface{}) (RunResult, error) {
	g.activity.touch()
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	conn, err := g.ensureOpen()
	if err != nil {
		return RunResult{}, err
	}
	return execOne(ctx, conn, query, args...)
}

func execOne(ctx context.Context, e execer, query string, args ...interface{}) (RunResult, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return RunResult{}, apperr.Backend(err, "exec: %s", query)
	}
	id, _ := res.LastInsertId()
	n, _ := res.RowsAffected()
	return RunResult{LastInsertRowID: id, ChangedRows: n}, nil
}

// Tx is the handle passed to a Transaction callback: the same four
// operations as Gateway, scoped to one *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

// All runs a SELECT within the transaction.
func (t *Tx) All(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	return queryAll(ctx, t.tx, query, args...)
}

// Get runs a SELECT within the transaction and returns the first row.
func (t *Tx) Get(ctx context.Context, query string, args ...interface{}) (Row, bool, error) {
	rows, err := t.All(ctx, query, args...)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// Run executes a write within the transaction.
func (t *Tx) Run(ctx context.Context, query string, args ...interface{}) (RunResult, error) {
	return execOne(ctx, t.tx, query, args...)
}

// Transaction acquires exclusive access to the gateway's writer for the
// duration of fn. If fn returns an error, the transaction is rolled back
// and that error is returned unchanged; otherwise it is committed.
func (g *Gateway) Transaction(ctx context.Context, fn func(*Tx) error) error {
	g.activity.touch()
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	conn, err := g.ensureOpen()
	if err != nil {
		return err
	}

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Backend(err, "begin transaction")
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			g.log.Warn().Err(rbErr).Msg("rollback failed after transaction error")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return apperr.Backend(err, "commit transaction")
	}
	return nil
}
