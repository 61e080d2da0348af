// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

// Host schema constants, mirroring internal/markers/schema.go. Build() reads
// the same tables the query manager writes, by the same tag-type
// convention; duplicated here (rather than imported) since the query
// manager's copy is unexported and the two packages must not import each
// other in either direction.
const (
	taggingsTable = "taggings"
	tagsTable     = "tags"
	itemsTable    = "metadata_items"

	markerTagType = 302

	metadataTypeMovie   = 1
	metadataTypeShow    = 2
	metadataTypeSeason  = 3
	metadataTypeEpisode = 4
)

var tagNameToMarkerType = map[string]string{
	"intro":      "intro",
	"credits":    "credits",
	"commercial": "commercial",
}
