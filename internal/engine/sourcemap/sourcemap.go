// Package sourcemap writes line-granular version 3 source maps.
package sourcemap

import (
	"encoding/json"
	"fmt"
	"strings"
)

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Map is the JSON form of a version 3 source map.
type Map struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

type segment struct {
	source int
	line   int
}

// Builder collects one mapping per generated line. Lines and source
// indexes are zero-based.
type Builder struct {
	file    string
	sources []string
	index   map[string]int
	lines   []*segment
}

func NewBuilder(file string) *Builder {
	return &Builder{file: file, index: make(map[string]int)}
}

// AddSource registers path and returns its index.
func (b *Builder) AddSource(path string) int {
	if i, ok := b.index[path]; ok {
		return i
	}
	b.index[path] = len(b.sources)
	b.sources = append(b.sources, path)
	return len(b.sources) - 1
}

// MapLine records that generated line generated comes from line sourceLine
// of source.
func (b *Builder) MapLine(generated, source, sourceLine int) {
	for len(b.lines) <= generated {
		b.lines = append(b.lines, nil)
	}
	b.lines[generated] = &segment{source: source, line: sourceLine}
}

// Skip reserves count unmapped generated lines.
func (b *Builder) Skip(count int) {
	for i := 0; i < count; i++ {
		b.lines = append(b.lines, nil)
	}
}

// Lines is the number of generated lines seen so far.
func (b *Builder) Lines() int {
	return len(b.lines)
}

func (b *Builder) Build() *Map {
	var out strings.Builder
	prevSource, prevLine := 0, 0
	for i, seg := range b.lines {
		if i > 0 {
			out.WriteByte(';')
		}
		if seg == nil {
			continue
		}
		writeVLQ(&out, 0)
		writeVLQ(&out, seg.source-prevSource)
		writeVLQ(&out, seg.line-prevLine)
		writeVLQ(&out, 0)
		prevSource, prevLine = seg.source, seg.line
	}
	sources := make([]string, len(b.sources))
	copy(sources, b.sources)
	return &Map{Version: 3, File: b.file, Sources: sources, Names: []string{}, Mappings: out.String()}
}

func (m *Map) JSON() ([]byte, error) {
	return json.Marshal(m)
}

func writeVLQ(out *strings.Builder, value int) {
	v := value << 1
	if value < 0 {
		v = (-value << 1) | 1
	}
	for {
		digit := v & 31
		v >>= 5
		if v > 0 {
			digit |= 32
		}
		out.WriteByte(base64Digits[digit])
		if v == 0 {
			return
		}
	}
}

// DecodeVLQ decodes one segment's fields.
func DecodeVLQ(s string) ([]int, error) {
	var out []int
	value, shift := 0, 0
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base64Digits, s[i])
		if digit < 0 {
			return nil, fmt.Errorf("invalid base64 digit %q at %d", s[i], i)
		}
		value += (digit & 31) << shift
		if digit&32 != 0 {
			shift += 5
			continue
		}
		if value&1 == 1 {
			out = append(out, -(value >> 1))
		} else {
			out = append(out, value>>1)
		}
		value, shift = 0, 0
	}
	if shift != 0 {
		return nil, fmt.Errorf("truncated VLQ in %q", s)
	}
	return out, nil
}
