// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package thumbnail

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildBIF assembles a minimal synthetic BIF file: header, an entry table
// for frameCount frames at intervalMs apart, then the JPEG payloads
// themselves (here just distinct filler bytes per frame).
func buildBIF(t *testing.T, intervalMs uint32, frames [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(bifMagic)
	writeU32(&buf, 0) // version
	writeU32(&buf, uint32(len(frames)))
	writeU32(&buf, intervalMs)
	buf.Write(make([]byte, bifHeaderSize-20)) // reserved, pad to header size

	dataStart := uint32(buf.Len() + (len(frames)+1)*8)
	offsets := make([]uint32, len(frames)+1)
	offset := dataStart
	for i, f := range frames {
		offsets[i] = offset
		offset += uint32(len(f))
	}
	offsets[len(frames)] = offset

	for i := range frames {
		writeU32(&buf, uint32(i))
		writeU32(&buf, offsets[i])
	}
	writeU32(&buf, 0xFFFFFFFF)
	writeU32(&buf, offsets[len(frames)])

	for _, f := range frames {
		buf.Write(f)
	}
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func TestParseBIFRejectsBadMagic(t *testing.T) {
	_, err := parseBIF(bytes.NewReader(make([]byte, 100)))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseBIFRejectsTruncated(t *testing.T) {
	raw := buildBIF(t, 1000, [][]byte{[]byte("frame0"), []byte("frame1")})
	_, err := parseBIF(bytes.NewReader(raw[:bifHeaderSize+4]))
	if err == nil {
		t.Fatal("expected error for truncated index")
	}
}

func TestFrameAtReturnsCorrectFrame(t *testing.T) {
	frames := [][]byte{[]byte("first-frame"), []byte("second-frame"), []byte("third-frame")}
	raw := buildBIF(t, 1000, frames)
	idx, err := parseBIF(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parseBIF: %v", err)
	}

	tests := []struct {
		name        string
		timestampMs int64
		want        string
	}{
		{"exact first frame", 0, "first-frame"},
		{"between first and second", 500, "first-frame"},
		{"exact second frame", 1000, "second-frame"},
		{"past last frame", 5000, "third-frame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.frameAt(tt.timestampMs)
			if err != nil {
				t.Fatalf("frameAt(%d): %v", tt.timestampMs, err)
			}
			if string(got) != tt.want {
				t.Errorf("frameAt(%d) = %q, want %q", tt.timestampMs, got, tt.want)
			}
		})
	}
}

func TestFrameAtEmptyIndex(t *testing.T) {
	raw := buildBIF(t, 1000, nil)
	idx, err := parseBIF(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parseBIF: %v", err)
	}
	if _, err := idx.frameAt(0); err == nil {
		t.Fatal("expected error for empty index")
	}
}
