package modifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModifier_Finish(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		apply func(m *Modifier)
		want  string
	}{
		{
			name:  "no edits returns source",
			src:   "abc",
			apply: func(m *Modifier) {},
			want:  "abc",
		},
		{
			name: "replace then insert at same offset then remove",
			src:  "abcdefghij",
			apply: func(m *Modifier) {
				m.Replace(0, 3, "X")
				m.Insert(3, "Y")
				m.Remove(5, 8)
			},
			want: "XYdeij",
		},
		{
			name: "queue order is irrelevant for distinct offsets",
			src:  "abcdefghij",
			apply: func(m *Modifier) {
				m.Remove(5, 8)
				m.Replace(0, 3, "X")
				m.Insert(3, "Y")
			},
			want: "XYdeij",
		},
		{
			name: "zero width inserts keep queue order",
			src:  "ab",
			apply: func(m *Modifier) {
				m.Insert(1, "1")
				m.Insert(1, "2")
				m.Insert(1, "3")
			},
			want: "a123b",
		},
		{
			name: "overlapping replacement does not duplicate text",
			src:  "abcdef",
			apply: func(m *Modifier) {
				m.Replace(1, 4, "X")
				m.Replace(2, 5, "Y")
			},
			want: "aXYf",
		},
		{
			name: "insert at end",
			src:  "abc",
			apply: func(m *Modifier) {
				m.Insert(3, "!")
			},
			want: "abc!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.src)
			tt.apply(m)
			assert.Equal(t, tt.want, m.Finish())
		})
	}
}

func TestModifier_BlankPreservesLines(t *testing.T) {
	src := "type A = {\n  x: number;\n};\nlet y = 1;"
	m := New(src)
	m.Blank(0, strings.Index(src, "let"))
	out := m.Finish()

	assert.Equal(t, "\n\n\nlet y = 1;", out)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))
}

func TestModifier_ReplaceKeepingLines(t *testing.T) {
	m := New("a\nb\nc")
	m.ReplaceKeepingLines(0, 3, "z")
	assert.Equal(t, "z\n\nc", m.Finish())
}
