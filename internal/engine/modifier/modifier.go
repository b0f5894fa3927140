// Package modifier applies queued text edits to an immutable source string.
package modifier

import (
	"sort"
	"strings"
)

type edit struct {
	start int
	end   int
	text  string
}

// Modifier queues replacements over byte offsets of the original text and
// applies them in one left-to-right pass. Offsets always refer to the
// original text, never to intermediate results.
type Modifier struct {
	src   string
	edits []edit
}

func New(src string) *Modifier {
	return &Modifier{src: src}
}

// Source returns the original text.
func (m *Modifier) Source() string {
	return m.src
}

// Len reports the number of queued edits.
func (m *Modifier) Len() int {
	return len(m.edits)
}

func (m *Modifier) Replace(start, end int, text string) {
	if start < 0 {
		start = 0
	}
	if end > len(m.src) {
		end = len(m.src)
	}
	if end < start {
		end = start
	}
	m.edits = append(m.edits, edit{start: start, end: end, text: text})
}

func (m *Modifier) Remove(start, end int) {
	m.Replace(start, end, "")
}

func (m *Modifier) Insert(offset int, text string) {
	m.Replace(offset, offset, text)
}

// Blank replaces [start, end) with the newlines it contains, so line
// numbers after the edit are unchanged.
func (m *Modifier) Blank(start, end int) {
	if end > len(m.src) {
		end = len(m.src)
	}
	if start >= end {
		return
	}
	m.Replace(start, end, Newlines(m.src[start:end]))
}

// ReplaceKeepingLines replaces [start, end) with text followed by any
// newlines text lacks relative to the replaced span.
func (m *Modifier) ReplaceKeepingLines(start, end int, text string) {
	if end > len(m.src) {
		end = len(m.src)
	}
	if start > end {
		start = end
	}
	missing := strings.Count(m.src[start:end], "\n") - strings.Count(text, "\n")
	if missing > 0 {
		text += strings.Repeat("\n", missing)
	}
	m.Replace(start, end, text)
}

// Finish applies all edits. Edits are ordered by (start, end); ties keep
// their queue order. A replacement whose start precedes the end of an
// earlier applied edit has its overlapping source skipped rather than
// duplicated.
func (m *Modifier) Finish() string {
	if len(m.edits) == 0 {
		return m.src
	}
	edits := make([]edit, len(m.edits))
	copy(edits, m.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end < edits[j].end
	})

	var b strings.Builder
	b.Grow(len(m.src))
	pos := 0
	for _, e := range edits {
		if e.start > pos {
			b.WriteString(m.src[pos:e.start])
		}
		b.WriteString(e.text)
		if e.end > pos {
			pos = e.end
		}
	}
	if pos < len(m.src) {
		b.WriteString(m.src[pos:])
	}
	return b.String()
}

// Newlines returns only the newline characters of s.
func Newlines(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n"))
}
