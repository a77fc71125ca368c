// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diff

// FindClusters returns the sizes of the 8-connected components of flagged
// pixels in m, in row-major order of each component's first pixel.
//
// Every pixel is visited at most once, so the scan is linear in the number of
// pixels. The sizes always sum to m.Count().
func FindClusters(m *Mask) []int {
	if m == nil || m.width == 0 || m.height == 0 {
		return nil
	}

	w, h := m.width, m.height
	visited := make([]uint64, len(m.bits))
	mark := func(i int) { visited[i>>6] |= 1 << (uint(i) & 63) }
	seen := func(i int) bool { return visited[i>>6]&(1<<(uint(i)&63)) != 0 }

	var sizes []int
	// Frontier of pixel indices; head advances instead of re-slicing so the
	// backing array is reused across clusters.
	queue := make([]int, 0, 64)

	for start := range w * h {
		if !m.test(start) || seen(start) {
			continue
		}

		queue = append(queue[:0], start)
		mark(start)
		size := 0

		for head := 0; head < len(queue); head++ {
			i := queue[head]
			size++

			x, y := i%w, i/w
			x0, x1 := max(x-1, 0), min(x+1, w-1)
			y0, y1 := max(y-1, 0), min(y+1, h-1)

			for ny := y0; ny <= y1; ny++ {
				for nx := x0; nx <= x1; nx++ {
					n := ny*w + nx
					if m.test(n) && !seen(n) {
						mark(n)
						queue = append(queue, n)
					}
				}
			}
		}

		sizes = append(sizes, size)
	}

	return sizes
}

// Significant returns the number of clusters with size >= minSize and the sum
// of their sizes.
func Significant(clusters []int, minSize int) (count, pixels int) {
	for _, s := range clusters {
		if s >= minSize {
			count++
			pixels += s
		}
	}
	return count, pixels
}
