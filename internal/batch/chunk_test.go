package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sizes[T any](chunks [][]T) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = len(c)
	}
	return out
}

func TestChunk(t *testing.T) {
	seq := func(n int) []uint32 {
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(i + 1)
		}
		return out
	}

	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{name: "empty", n: 0, size: 25, sizes: []int{}},
		{name: "partial tail", n: 52, size: 25, sizes: []int{25, 25, 2}},
		{name: "exact", n: 50, size: 25, sizes: []int{25, 25}},
		{name: "smaller than batch", n: 3, size: 25, sizes: []int{3}},
		{name: "zero size", n: 3, size: 0, sizes: []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(seq(tt.n), tt.size)
			assert.Equal(t, tt.sizes, sizes(got))
		})
	}
}

func TestChunkPreservesOrder(t *testing.T) {
	got := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, got)
}

func TestChunkDoesNotAlias(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks := Chunk(items, 2)
	chunks[0] = append(chunks[0], 99)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}
