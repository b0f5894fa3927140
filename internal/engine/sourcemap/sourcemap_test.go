package sourcemap

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQ(t *testing.T) {
	cases := map[int]string{0: "A", 1: "C", -1: "D", 15: "e", 16: "gB", 123: "2H", -123: "3H"}
	for value, want := range cases {
		var b strings.Builder
		writeVLQ(&b, value)
		assert.Equal(t, want, b.String(), "value %d", value)

		got, err := DecodeVLQ(want)
		require.NoError(t, err)
		assert.Equal(t, []int{value}, got)
	}

	_, err := DecodeVLQ("g")
	assert.Error(t, err)
	_, err = DecodeVLQ("A!")
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder("out.js")
	a := b.AddSource("a.ns")
	bsrc := b.AddSource("b.ns")
	assert.Equal(t, a, b.AddSource("a.ns"))

	b.MapLine(0, a, 0)
	b.Skip(1)
	b.MapLine(2, a, 1)
	b.MapLine(3, bsrc, 0)
	assert.Equal(t, 4, b.Lines())

	m := b.Build()
	assert.Equal(t, "AAAA;;AACA;ACDA", m.Mappings)
	assert.Equal(t, []string{"a.ns", "b.ns"}, m.Sources)

	data, err := m.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(3), decoded["version"])
	assert.Equal(t, "out.js", decoded["file"])
}
