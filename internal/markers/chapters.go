// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// Chapters returns baseItemID's chapter list in index order, for the
// getChapters command and for feeding the time expression evaluator's
// Ch<N>/Ch(name) references. The host keeps chapters as a simple sidecar
// table (index, name, start/end offsets) rather than folding them into
// taggings, since a chapter is metadata about the file, not an editable
// annotation.
func (m *Manager) Chapters(ctx context.Context, baseItemID int64) ([]models.Chapter, error) {
	rows, err := m.db.All(ctx,
		`SELECT "index", tag, time_offset, end_time_offset FROM `+chaptersTable+`
		 WHERE metadata_item_id = ? ORDER BY "index"`, baseItemID)
	if err != nil {
		return nil, apperr.Backend(err, "query chapters for item %d", baseItemID)
	}
	chapters := make([]models.Chapter, 0, len(rows))
	for _, r := range rows {
		var idx int
		var name string
		var start, end int64
		if err := r.Scan(&idx, &name, &start, &end); err != nil {
			return nil, apperr.Backend(err, "scan chapter row")
		}
		chapters = append(chapters, models.Chapter{Index: idx, Name: name, StartMs: start, EndMs: end})
	}
	return chapters, nil
}
