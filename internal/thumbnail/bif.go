// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package thumbnail

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// bifMagic is the fixed 8-byte header every BIF thumbnail index starts
// with: 0x81 "BIF" CR LF SUB LF.
var bifMagic = []byte{0x81, 0x42, 0x49, 0x46, 0x0D, 0x0A, 0x1A, 0x0A}

const bifHeaderSize = 64

type bifEntry struct {
	timestampMs int64
	offset      uint32
}

// bifIndex is a parsed BIF file: a fixed-interval sequence of JPEG frames,
// each located by an (timestamp, offset) entry table.
type bifIndex struct {
	intervalMs int64
	entries    []bifEntry
	endOffset  uint32
	data       []byte
}

// parseBIF reads and validates a BIF index from r. The whole file is kept
// in memory; these indexes hold a handful of low-resolution JPEGs and are
// small relative to the source media.
func parseBIF(r io.Reader) (*bifIndex, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.NotFound("read thumbnail index: %v", err)
	}
	if len(raw) < bifHeaderSize || !bytes.Equal(raw[:8], bifMagic) {
		return nil, apperr.NotFound("not a recognized thumbnail index")
	}
	count := binary.LittleEndian.Uint32(raw[12:16])
	interval := binary.LittleEndian.Uint32(raw[16:20])
	if interval == 0 {
		return nil, apperr.NotFound("thumbnail index has a zero frame interval")
	}

	idx := &bifIndex{intervalMs: int64(interval), data: raw}
	pos := bifHeaderSize
	for i := uint32(0); i < count; i++ {
		if pos+8 > len(raw) {
			return nil, apperr.NotFound("truncated thumbnail index")
		}
		frameNum := binary.LittleEndian.Uint32(raw[pos : pos+4])
		off := binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
		idx.entries = append(idx.entries, bifEntry{timestampMs: int64(frameNum) * idx.intervalMs, offset: off})
		pos += 8
	}
	// One trailing (0xFFFFFFFF, endOffset) entry marks the end of the last frame.
	if pos+8 > len(raw) {
		return nil, apperr.NotFound("truncated thumbnail index")
	}
	idx.endOffset = binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
	return idx, nil
}

// frameAt returns the bytes of the frame whose interval covers
// timestampMs: the last entry whose timestamp does not exceed it.
func (idx *bifIndex) frameAt(timestampMs int64) ([]byte, error) {
	if len(idx.entries) == 0 {
		return nil, apperr.NotFound("thumbnail index has no frames")
	}
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].timestampMs > timestampMs
	}) - 1
	if i < 0 {
		i = 0
	}
	start := idx.entries[i].offset
	end := idx.endOffset
	if i+1 < len(idx.entries) {
		end = idx.entries[i+1].offset
	}
	if end < start || int(end) > len(idx.data) {
		return nil, apperr.NotFound("corrupt thumbnail index frame bounds")
	}
	frame := make([]byte, end-start)
	copy(frame, idx.data[start:end])
	return frame, nil
}
