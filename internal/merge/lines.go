package merge

import (
	"bytes"

	"stackit.dev/stackgraph/internal/git"
)

// binarySniffLen matches the prefix git inspects when deciding whether a
// blob is binary.
const binarySniffLen = 8000

// IsBinary reports whether content looks binary (contains a NUL byte)
func IsBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

// Lines performs a three-way line merge. Regions changed differently on both
// sides are conflicts; the merged output keeps ours for those regions.
func Lines(base, ours, theirs []byte) (merged []byte, conflicted bool) {
	switch {
	case bytes.Equal(ours, theirs):
		return ours, false
	case bytes.Equal(base, ours):
		return theirs, false
	case bytes.Equal(base, theirs):
		return ours, false
	}

	if IsBinary(base) || IsBinary(ours) || IsBinary(theirs) {
		return ours, true
	}

	baseLines := git.SplitLines(string(base))
	oursLines := git.SplitLines(string(ours))
	theirsLines := git.SplitLines(string(theirs))
	oursSpans := spansOf(base, ours)
	theirsSpans := spansOf(base, theirs)

	var out bytes.Buffer
	pos := 0
	i, j := 0, 0
	for i < len(oursSpans) || j < len(theirsSpans) {
		var groupOurs, groupTheirs []span
		var start, end int

		if j >= len(theirsSpans) || (i < len(oursSpans) && oursSpans[i].start <= theirsSpans[j].start) {
			groupOurs = append(groupOurs, oursSpans[i])
			start, end = oursSpans[i].start, oursSpans[i].end
			i++
		} else {
			groupTheirs = append(groupTheirs, theirsSpans[j])
			start, end = theirsSpans[j].start, theirsSpans[j].end
			j++
		}

		// Grow the group while either side has a hunk touching it.
		for {
			grew := false
			if i < len(oursSpans) && oursSpans[i].start <= end {
				groupOurs = append(groupOurs, oursSpans[i])
				end = max(end, oursSpans[i].end)
				i++
				grew = true
			}
			if j < len(theirsSpans) && theirsSpans[j].start <= end {
				groupTheirs = append(groupTheirs, theirsSpans[j])
				end = max(end, theirsSpans[j].end)
				j++
				grew = true
			}
			if !grew {
				break
			}
		}

		writeAll(&out, baseLines[pos:start])
		switch {
		case len(groupTheirs) == 0:
			writeAll(&out, render(baseLines, oursLines, groupOurs, start, end))
		case len(groupOurs) == 0:
			writeAll(&out, render(baseLines, theirsLines, groupTheirs, start, end))
		default:
			fromOurs := render(baseLines, oursLines, groupOurs, start, end)
			fromTheirs := render(baseLines, theirsLines, groupTheirs, start, end)
			if !sameLines(fromOurs, fromTheirs) {
				conflicted = true
			}
			writeAll(&out, fromOurs)
		}
		pos = end
	}
	writeAll(&out, baseLines[pos:])
	return out.Bytes(), conflicted
}

// span is a changed region: base lines [start,end) became side lines
// [newStart,newEnd). Indices are 0-based.
type span struct {
	start, end       int
	newStart, newEnd int
}

func spansOf(base, side []byte) []span {
	hunks := git.DiffHunks("", base, side)
	spans := make([]span, 0, len(hunks))
	for _, h := range hunks {
		spans = append(spans, span{
			start:    h.OldStart - 1,
			end:      h.OldStart - 1 + h.OldCount,
			newStart: h.NewStart - 1,
			newEnd:   h.NewStart - 1 + h.NewCount,
		})
	}
	return spans
}

func render(baseLines, sideLines []string, spans []span, start, end int) []string {
	var out []string
	pos := start
	for _, s := range spans {
		out = append(out, baseLines[pos:s.start]...)
		out = append(out, sideLines[s.newStart:s.newEnd]...)
		pos = s.end
	}
	return append(out, baseLines[pos:end]...)
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeAll(b *bytes.Buffer, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
	}
}
