// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

// actionsTable is the sole table in the backup database.
const actionsTable = "actions"

// Host schema constants needed to compute a parent's content signature and,
// on restore, to re-insert a row. Duplicated from internal/markers/schema.go
// for the same reason internal/cache duplicates them: the two packages must
// not import each other, and these are a handful of stable literals.
const (
	hostItemsTable     = "metadata_items"
	hostTaggingsTable  = "taggings"
	hostTagsTable      = "tags"
	hostMarkerTagType  = 302
	metadataTypeMovie  = 1
	metadataTypeSeason = 3
	metadataTypeEpisode = 4
)

var markerTypeTagName = map[string]string{
	"intro":      "intro",
	"credits":    "credits",
	"commercial": "commercial",
}
