// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package hostdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "host.db")
	g := Open(path, 0, zerolog.Nop())
	t.Cleanup(func() { _ = g.Close() })

	ctx := context.Background()
	if _, err := g.Run(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, duration_ms INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return g
}

func TestRunAndAll(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	res, err := g.Run(ctx, `INSERT INTO items (name, duration_ms) VALUES (?, ?)`, "pilot", 1200000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.LastInsertRowID == 0 {
		t.Fatal("expected a non-zero last insert id")
	}
	if res.ChangedRows != 1 {
		t.Fatalf("ChangedRows = %d, want 1", res.ChangedRows)
	}

	rows, err := g.All(ctx, `SELECT id, name, duration_ms FROM items`)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	var id int64
	var name string
	var dur int64
	if err := rows[0].Scan(&id, &name, &dur); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if name != "pilot" || dur != 1200000 {
		t.Errorf("got (%q, %d), want (pilot, 1200000)", name, dur)
	}
}

func TestGetNoMatch(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	_, ok, err := g.Get(ctx, `SELECT id FROM items WHERE id = ?`, 999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected no match")
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	sentinel := context.Canceled
	err := g.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.Run(ctx, `INSERT INTO items (name) VALUES (?)`, "ghost"); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("Transaction error = %v, want sentinel", err)
	}

	rows, err := g.All(ctx, `SELECT id FROM items`)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rollback should have discarded the insert, got %d rows", len(rows))
	}
}

func TestTransactionCommits(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	err := g.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Run(ctx, `INSERT INTO items (name) VALUES (?)`, "committed")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	rows, err := g.All(ctx, `SELECT name FROM items`)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestSuspendAndReopen(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	if !g.IsOpen() {
		t.Fatal("expected gateway to be open after use")
	}
	if err := g.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if g.IsOpen() {
		t.Fatal("expected gateway to be closed after Suspend")
	}

	// Next call must transparently reopen.
	if _, err := g.All(ctx, `SELECT id FROM items`); err != nil {
		t.Fatalf("All after suspend: %v", err)
	}
	if !g.IsOpen() {
		t.Fatal("expected gateway to reopen on next use")
	}
}

func TestIdleEligible(t *testing.T) {
	g := newTestGateway(t)
	// Fresh activity from newTestGateway's CREATE TABLE call means not idle yet.
	if g.IdleEligible() {
		t.Fatal("should not be idle immediately after activity")
	}
	g.activity = newActivityTracker(10*time.Millisecond, 2)
	time.Sleep(30 * time.Millisecond)
	if !g.IdleEligible() {
		t.Fatal("should be idle after the window elapses with no activity")
	}
}
