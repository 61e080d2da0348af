// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

// The host database stores markers as a special case of its generic
// "tagging" table (the same table the host uses for genres, collections,
// and similar attachments). A marker tagging row is distinguished by its
// tag_id pointing at a tag whose tag_type is the marker tag type. These
// names and the tag type constant are the schema surface this package
// depends on; if the host changes its schema, only this file needs to
// change.
const (
	taggingsTable = "taggings"
	tagsTable     = "tags"
	itemsTable    = "metadata_items"
	chaptersTable = "chapters"

	markerTagType = 302 // host's tag_type value reserved for intro/credits/commercial markers
)

// markerTypeTagName maps a MarkerType to the tag row's "tag" text column,
// which is how the host itself discriminates marker subtype within the
// shared taggings table.
var markerTypeTagName = map[string]string{
	"intro":      "intro",
	"credits":    "credits",
	"commercial": "commercial",
}

var tagNameToMarkerType = func() map[string]string {
	m := make(map[string]string, len(markerTypeTagName))
	for k, v := range markerTypeTagName {
		m[v] = k
	}
	return m
}()
