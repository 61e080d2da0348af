// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/backup"
	"github.com/gomarkereditor/markereditor/internal/cache"
)

// PurgeSweepService periodically calls backup.Manager.RebuildPurgeCache
// across every known section (spec §5), so the purgedCount the getSections
// command reports reflects recent host-side deletions without that request
// itself paying for a full scan.
type PurgeSweepService struct {
	Backup   *backup.Manager
	Cache    *cache.Cache
	Interval time.Duration
	Log      zerolog.Logger
}

func (p *PurgeSweepService) String() string { return "purge-sweep" }

func (p *PurgeSweepService) Serve(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.sweepOnce(ctx)
		}
	}
}

func (p *PurgeSweepService) sweepOnce(ctx context.Context) {
	sectionIDs := p.Cache.SectionIDs()
	if err := p.Backup.RebuildPurgeCache(ctx, sectionIDs, p.Cache); err != nil {
		p.Log.Warn().Err(err).Msg("purge cache rebuild failed")
		return
	}
	p.Log.Debug().Int("sections", len(sectionIDs)).Msg("purge cache rebuilt")
}
