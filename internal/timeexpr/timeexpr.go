// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package timeexpr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// Role identifies which field of the marker being built an expression fills
// in, which decides the default side of an unqualified reference.
type Role int

const (
	StartField Role = iota
	EndField
)

// side is the explicit S/E suffix on a M<N> or Ch<N> reference.
type side int

const (
	sideUnset side = iota
	sideStart
	sideEnd
)

// Context supplies the data a reference can resolve against: the duration
// of the item being edited (for negative plain expressions), its existing
// markers (for M<N> references), and its chapters (for Ch references).
type Context struct {
	DurationMs int64
	Markers    []models.Marker
	Chapters   []models.Chapter
}

var (
	clockRe           = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})(\.\d{1,3})?$`)
	digitsRe          = regexp.MustCompile(`^\d+$`)
	eqExprRe          = regexp.MustCompile(`^=([ICA])@(.+)$`)
	markerRefRe       = regexp.MustCompile(`^M(-?\d+)([SE])?([+-].+)?$`)
	chapterIndexRefRe = regexp.MustCompile(`^Ch(-?\d+)([SE])?([+-].+)?$`)
	chapterNameRefRe  = regexp.MustCompile(`^Ch\(([^)]*)\)([+-].+)?$`)
)

// Evaluate parses expr and resolves it to an absolute millisecond
// timestamp. role decides the default side used by a reference that omits
// its own S/E suffix: a start-field reference defaults to the end of the
// referenced entity, an end-field reference defaults to its start, so that
// "starts where the previous one ends" is the natural unqualified form.
func Evaluate(expr string, ctx Context, role Role) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, apperr.InvalidInput("empty time expression")
	}
	if strings.HasPrefix(expr, "=") {
		return evaluateReference(expr, ctx, role)
	}
	ms, err := parsePlainDuration(expr, true)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return ctx.DurationMs + ms, nil
	}
	return ms, nil
}

// parsePlainDuration parses a clock time or bare millisecond count,
// optionally signed. allowNegative controls whether a leading "-" is
// accepted at all (an offset suffix on a reference is never negative
// itself; its sign is carried separately by the +/- that introduces it).
func parsePlainDuration(s string, allowNegative bool) (int64, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		if !allowNegative {
			return 0, apperr.InvalidInput("invalid time expression %q", s)
		}
		neg = true
		s = s[1:]
	}
	var ms int64
	switch {
	case clockRe.MatchString(s):
		m := clockRe.FindStringSubmatch(s)
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss, _ := strconv.Atoi(m[3])
		if mm >= 60 || ss >= 60 {
			return 0, apperr.InvalidInput("invalid time expression %q", s)
		}
		ms = int64(hh)*3600000 + int64(mm)*60000 + int64(ss)*1000
		if m[4] != "" {
			frac := (m[4][1:] + "000")[:3]
			f, _ := strconv.Atoi(frac)
			ms += int64(f)
		}
	case digitsRe.MatchString(s):
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, apperr.InvalidInput("invalid time expression %q", s)
		}
		ms = v
	default:
		return 0, apperr.InvalidInput("invalid time expression %q", s)
	}
	if neg {
		ms = -ms
	}
	return ms, nil
}

func evaluateReference(expr string, ctx Context, role Role) (int64, error) {
	m := eqExprRe.FindStringSubmatch(expr)
	if m == nil {
		return 0, apperr.InvalidInput("invalid time expression %q", expr)
	}
	markerType, err := typeFromLetter(m[1])
	if err != nil {
		return 0, err
	}
	startMs, endMs, explicitSide, offsetStr, err := resolveRef(m[2], ctx, markerType)
	if err != nil {
		return 0, err
	}
	resolvedSide := explicitSide
	if resolvedSide == sideUnset {
		if role == StartField {
			resolvedSide = sideEnd
		} else {
			resolvedSide = sideStart
		}
	}
	base := startMs
	if resolvedSide == sideEnd {
		base = endMs
	}
	offsetMs, err := parseSignedOffset(offsetStr)
	if err != nil {
		return 0, err
	}
	result := base + offsetMs
	if result < 0 {
		return 0, apperr.InvalidBounds("time expression %q resolves to a negative timestamp", expr)
	}
	return result, nil
}

func parseSignedOffset(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	sign := s[0]
	val, err := parsePlainDuration(s[1:], false)
	if err != nil {
		return 0, err
	}
	if sign == '-' {
		val = -val
	}
	return val, nil
}

// resolveRef parses the reference body following "T@" (everything up to,
// but not including, a trailing offset) and returns the referenced
// entity's start/end, its explicit side suffix if any, and the unparsed
// offset tail.
func resolveRef(s string, ctx Context, markerType models.MarkerType) (startMs, endMs int64, sd side, offset string, err error) {
	if m := markerRefRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		marker, rerr := nthMarkerOfType(ctx.Markers, markerType, n)
		if rerr != nil {
			return 0, 0, sideUnset, "", rerr
		}
		return marker.StartMs, marker.EndMs, sideFromLetter(m[2]), m[3], nil
	}
	if m := chapterIndexRefRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		ch, rerr := nthChapter(ctx.Chapters, n)
		if rerr != nil {
			return 0, 0, sideUnset, "", rerr
		}
		return ch.StartMs, ch.EndMs, sideFromLetter(m[2]), m[3], nil
	}
	if m := chapterNameRefRe.FindStringSubmatch(s); m != nil {
		ch, rerr := chapterByNameOrRegex(ctx.Chapters, m[1])
		if rerr != nil {
			return 0, 0, sideUnset, "", rerr
		}
		return ch.StartMs, ch.EndMs, sideUnset, m[2], nil
	}
	return 0, 0, sideUnset, "", apperr.InvalidInput("invalid reference %q", s)
}

func typeFromLetter(l string) (models.MarkerType, error) {
	switch l {
	case "I":
		return models.MarkerTypeIntro, nil
	case "C":
		return models.MarkerTypeCredits, nil
	case "A":
		return models.MarkerTypeCommercial, nil
	default:
		return "", apperr.InvalidInput("unknown marker type letter %q", l)
	}
}

func sideFromLetter(l string) side {
	switch l {
	case "S":
		return sideStart
	case "E":
		return sideEnd
	default:
		return sideUnset
	}
}

func nthMarkerOfType(markers []models.Marker, t models.MarkerType, n int) (models.Marker, error) {
	var filtered []models.Marker
	for _, mk := range markers {
		if mk.MarkerType == t {
			filtered = append(filtered, mk)
		}
	}
	idx, err := resolveOrdinal(len(filtered), n)
	if err != nil {
		return models.Marker{}, err
	}
	return filtered[idx], nil
}

func nthChapter(chapters []models.Chapter, n int) (models.Chapter, error) {
	idx, err := resolveOrdinal(len(chapters), n)
	if err != nil {
		return models.Chapter{}, err
	}
	return chapters[idx], nil
}

// resolveOrdinal converts a 1-based, possibly negative ordinal (negative
// counts from the end) into a 0-based slice index.
func resolveOrdinal(length, n int) (int, error) {
	if n == 0 {
		return 0, apperr.InvalidInput("reference ordinal cannot be 0")
	}
	var idx int
	if n > 0 {
		idx = n - 1
	} else {
		idx = length + n
	}
	if idx < 0 || idx >= length {
		return 0, apperr.InvalidInput("reference ordinal %d out of range (%d available)", n, length)
	}
	return idx, nil
}

func chapterByNameOrRegex(chapters []models.Chapter, inner string) (models.Chapter, error) {
	re, err := chapterMatcher(inner)
	if err != nil {
		return models.Chapter{}, err
	}
	for _, ch := range chapters {
		if re.MatchString(ch.Name) {
			return ch, nil
		}
	}
	return models.Chapter{}, apperr.InvalidInput("no chapter matching %q", inner)
}

func chapterMatcher(inner string) (*regexp.Regexp, error) {
	if strings.HasPrefix(inner, "/") {
		end := strings.LastIndex(inner, "/")
		if end <= 0 {
			return nil, apperr.InvalidInput("malformed chapter regex %q", inner)
		}
		pattern := inner[1:end]
		flags := inner[end+1:]
		if flags != "" && flags != "i" {
			return nil, apperr.InvalidInput("unknown chapter regex flag %q", flags)
		}
		if flags == "i" {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, apperr.InvalidInput("invalid chapter regex %q: %v", inner, err)
		}
		return re, nil
	}
	return globToRegex(inner), nil
}

// globToRegex translates a case-insensitive name pattern using only "*"
// and "?" wildcards into an anchored regexp.
func globToRegex(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
