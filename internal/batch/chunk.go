// Package batch splits work into bounded groups for remote calls.
package batch

// Chunk splits items into consecutive slices of at most size elements. The
// last chunk may be shorter. No chunk is ever empty, and an empty input
// yields no chunks. A size below one is treated as one.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		j := min(i+size, len(items))
		chunks = append(chunks, items[i:j:j])
	}
	return chunks
}
