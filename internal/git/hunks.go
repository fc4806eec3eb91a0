package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/utils/diff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrHunkMismatch is returned when a requested hunk is not part of the diff
var ErrHunkMismatch = errors.New("hunk does not match the diff")

// Hunk represents a single hunk of changes in a diff. Starts are 1-indexed;
// a zero count means the hunk inserts (or deletes) before that line.
type Hunk struct {
	File     string // File path
	OldStart int    // Line number in old file (1-indexed)
	OldCount int    // Number of lines in old file
	NewStart int    // Line number in new file (1-indexed)
	NewCount int    // Number of lines in new file
	Content  string // Removed lines prefixed with "-", added lines with "+"
}

// Header renders the hunk range the way unified diffs do
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// SameRange reports whether two hunks cover the same lines
func (h Hunk) SameRange(other Hunk) bool {
	return h.OldStart == other.OldStart && h.OldCount == other.OldCount &&
		h.NewStart == other.NewStart && h.NewCount == other.NewCount
}

// DiffHunks computes zero-context line hunks turning oldContent into newContent
func DiffHunks(path string, oldContent, newContent []byte) []Hunk {
	diffs := diff.Do(string(oldContent), string(newContent))

	var hunks []Hunk
	var current *Hunk
	var body strings.Builder
	oldLine, newLine := 1, 1

	flush := func() {
		if current == nil {
			return
		}
		current.Content = body.String()
		hunks = append(hunks, *current)
		current = nil
		body.Reset()
	}
	open := func() {
		if current == nil {
			current = &Hunk{File: path, OldStart: oldLine, NewStart: newLine}
		}
	}

	for _, d := range diffs {
		lines := SplitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffDelete:
			open()
			current.OldCount += len(lines)
			oldLine += len(lines)
			writePrefixed(&body, "-", lines)
		case diffmatchpatch.DiffInsert:
			open()
			current.NewCount += len(lines)
			newLine += len(lines)
			writePrefixed(&body, "+", lines)
		}
	}
	flush()
	return hunks
}

// ApplyHunks applies the selected hunks of the oldContent→newContent diff to
// oldContent, leaving every other hunk unapplied. A selected hunk that is not
// part of the diff yields ErrHunkMismatch.
func ApplyHunks(oldContent, newContent []byte, selected []Hunk) ([]byte, error) {
	all := DiffHunks("", oldContent, newContent)
	use := make([]bool, len(all))
	for _, want := range selected {
		found := false
		for i, h := range all {
			if h.SameRange(want) {
				use[i] = true
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s: %w", want.Header(), ErrHunkMismatch)
		}
	}

	oldLines := SplitLines(string(oldContent))
	newLines := SplitLines(string(newContent))

	var out strings.Builder
	pos := 0
	for i, h := range all {
		start := h.OldStart - 1
		writeLines(&out, oldLines[pos:start])
		if use[i] {
			writeLines(&out, newLines[h.NewStart-1:h.NewStart-1+h.NewCount])
		} else {
			writeLines(&out, oldLines[start:start+h.OldCount])
		}
		pos = start + h.OldCount
	}
	writeLines(&out, oldLines[pos:])
	return []byte(out.String()), nil
}

// SplitLines splits text into lines that keep their terminating newline.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeLines(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
	}
}

func writePrefixed(b *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		b.WriteString(prefix)
		b.WriteString(l)
		if !strings.HasSuffix(l, "\n") {
			b.WriteString("\n")
		}
	}
}
