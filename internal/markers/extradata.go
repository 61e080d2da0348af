// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"bytes"
	"context"

	"github.com/gomarkereditor/markereditor/internal/hostdb"
)

// schemaVersion identifies a known extra_data byte layout. Per the Open
// Question decision in SPEC_FULL.md, any version this package does not
// recognize is skipped (logged once) rather than failing the mutation.
type schemaVersion int

const (
	schemaUnknown schemaVersion = iota
	schemaV1                    // "pv%3Afinal=1" style key-value blob, first seen in host releases prior to the taggings-table extra_data column rename
	schemaV2                    // "pv%3Aversion=5&pv%3Afinal=1" with an explicit version key
)

var (
	v1Prefix = []byte("pv%3Afinal=")
	v2Prefix = []byte("pv%3Aversion=")
)

// detectSchemaVersion probes a small sample of existing marker rows for a
// recognizable extra_data byte prefix. It is called once per Manager
// lifetime (cached on first detection) since the host schema does not
// change while the server is running.
func (m *Manager) detectSchemaVersion(ctx context.Context) schemaVersion {
	if m.extraVersion != schemaUnknown {
		return m.extraVersion
	}
	rows, err := m.db.All(ctx,
		`SELECT extra_data FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id
		 WHERE t.tag_type = ? AND extra_data IS NOT NULL LIMIT 5`, markerTagType)
	if err != nil {
		m.log.Warn().Err(err).Msg("extra_data schema probe failed; extra-data writes disabled")
		m.extraVersion = schemaUnknown
		return m.extraVersion
	}
	for _, r := range rows {
		var blob []byte
		if err := r.Scan(&blob); err != nil {
			continue
		}
		switch {
		case bytes.HasPrefix(blob, v2Prefix):
			m.extraVersion = schemaV2
			return m.extraVersion
		case bytes.HasPrefix(blob, v1Prefix):
			m.extraVersion = schemaV1
			return m.extraVersion
		}
	}
	// No recognizable sample found; default to the newer layout for fresh
	// writes, since a library with zero existing user markers gives no
	// evidence either way.
	m.extraVersion = schemaV2
	return m.extraVersion
}

// encodeExtraData builds the extra_data blob for a marker in the detected
// schema version. Returns (nil, false) when the version is unrecognized,
// meaning the caller must skip the write rather than fail the mutation.
func encodeExtraData(version schemaVersion, isFinal bool) ([]byte, bool) {
	final := "0"
	if isFinal {
		final = "1"
	}
	switch version {
	case schemaV2:
		return []byte("pv%3Aversion=5&pv%3Afinal=" + final), true
	case schemaV1:
		return []byte("pv%3Afinal=" + final), true
	default:
		return nil, false
	}
}

// isFinalBlob reports whether a previously-written extra_data blob marks
// the marker as a final ("end of item") credits marker, understanding
// either recognized schema version.
func isFinalBlob(blob []byte) bool {
	if len(blob) == 0 {
		return false
	}
	return bytes.Contains(blob, []byte("final=1"))
}

// writeExtraData writes the blob for marker id within tx, logging and
// skipping (never failing the surrounding mutation) when the schema is
// unrecognized or the write itself errors, per spec §4.2.
func (m *Manager) writeExtraData(ctx context.Context, tx *hostdb.Tx, markerID int64, isFinal bool) {
	if !m.writeExtra {
		return
	}
	version := m.detectSchemaVersion(ctx)
	blob, ok := encodeExtraData(version, isFinal)
	if !ok {
		m.log.Warn().Int64("marker_id", markerID).Msg("unrecognized extra_data schema version; skipping write")
		return
	}
	if _, err := tx.Run(ctx, `UPDATE `+taggingsTable+` SET extra_data = ? WHERE id = ?`, blob, markerID); err != nil {
		m.log.Warn().Err(err).Int64("marker_id", markerID).Msg("extra_data write failed")
	}
}
