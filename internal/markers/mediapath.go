// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// MediaPath resolves a base item's on-disk media file, the host path the
// thumbnail manager (C4) hands to C10 for local remapping. The host
// stores this one join away from metadata_items: a media_items row per
// base item, and a media_parts row per media_items row carrying the file
// path. A base item can in principle have more than one part (multi-file
// movies); the first part is used, matching how the host itself treats a
// base item's primary playable file for marker purposes.
func (m *Manager) MediaPath(ctx context.Context, baseItemID int64) (string, error) {
	row, ok, err := m.db.Get(ctx,
		`SELECT mp.file FROM media_parts mp
		 JOIN media_items mi ON mi.id = mp.media_item_id
		 WHERE mi.metadata_item_id = ?
		 ORDER BY mp.id LIMIT 1`, baseItemID)
	if err != nil {
		return "", apperr.Backend(err, "resolve media path for item %d", baseItemID)
	}
	if !ok {
		return "", apperr.NotFound("media file for item %d", baseItemID)
	}
	var path string
	if err := row.Scan(&path); err != nil {
		return "", apperr.Backend(err, "scan media path")
	}
	return path, nil
}
