// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/backup"
	"github.com/gomarkereditor/markereditor/internal/cache"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
)

func newTestPurgeSweepService(t *testing.T, interval time.Duration) *PurgeSweepService {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	host := hostdb.Open(filepath.Join(dir, "host.db"), 0, zerolog.Nop())
	t.Cleanup(func() { _ = host.Close() })

	mgr, err := backup.Open(ctx, filepath.Join(dir, "backup.db"), host, zerolog.Nop())
	if err != nil {
		t.Fatalf("backup.Open: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	c := cache.New(host, zerolog.Nop())

	return &PurgeSweepService{Backup: mgr, Cache: c, Interval: interval, Log: zerolog.Nop()}
}

func TestPurgeSweepServiceRunsWithoutError(t *testing.T) {
	svc := newTestPurgeSweepService(t, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPurgeSweepServiceStopsOnContextCancel(t *testing.T) {
	svc := newTestPurgeSweepService(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
