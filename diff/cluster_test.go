// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diff

import (
	"math/rand"
	"slices"
	"testing"
)

func TestFindClusters(t *testing.T) {
	tests := []struct {
		name string
		mask *Mask
		want []int
	}{
		{
			name: "empty",
			mask: maskOf("....", "...."),
			want: nil,
		},
		{
			name: "single pixel",
			mask: maskOf("....", ".#..", "...."),
			want: []int{1},
		},
		{
			name: "diagonal neighbors join",
			mask: maskOf("#...", ".#..", "..#."),
			want: []int{3},
		},
		{
			name: "separate components in scan order",
			mask: maskOf("##..#", "##...", "....#"),
			want: []int{4, 1, 1},
		},
		{
			name: "full block",
			mask: maskOf("###", "###", "###"),
			want: []int{9},
		},
		{
			name: "no wraparound between row end and next row start",
			mask: maskOf("....#", "#....", "....."),
			want: []int{1, 1},
		},
		{
			name: "no wraparound between first and last column",
			mask: maskOf("#...#", "#...#"),
			want: []int{2, 2},
		},
		{
			name: "ring is one component",
			mask: maskOf("#####", "#...#", "#####"),
			want: []int{12},
		},
		{
			name: "u shape discovered from two tops",
			mask: maskOf("#.#", "#.#", "###"),
			want: []int{7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindClusters(tt.mask)
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindClusters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindClusters_NilAndZeroSize(t *testing.T) {
	if got := FindClusters(nil); got != nil {
		t.Errorf("FindClusters(nil) = %v, want nil", got)
	}
	if got := FindClusters(NewMask(0, 10)); got != nil {
		t.Errorf("FindClusters(0x10) = %v, want nil", got)
	}
}

func TestFindClusters_SizesPartitionMask(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, density := range []float64{0.01, 0.1, 0.3, 0.6, 0.95} {
		m := NewMask(97, 61)
		for y := range m.Height() {
			for x := range m.Width() {
				if rng.Float64() < density {
					m.Set(x, y)
				}
			}
		}

		clusters := FindClusters(m)
		sum := 0
		for _, s := range clusters {
			if s <= 0 {
				t.Fatalf("density %.2f: non-positive cluster size %d", density, s)
			}
			sum += s
		}
		if sum != m.Count() {
			t.Errorf("density %.2f: sum(clusters) = %d, want %d", density, sum, m.Count())
		}
	}
}

func TestSignificant_MonotonicInMinSize(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := NewMask(64, 64)
	for range 600 {
		m.Set(rng.Intn(64), rng.Intn(64))
	}
	clusters := FindClusters(m)

	prev := -1
	for minSize := 64; minSize >= 1; minSize-- {
		n, px := Significant(clusters, minSize)
		if n < prev {
			t.Fatalf("Significant(minSize=%d) = %d clusters, fewer than %d at minSize+1", minSize, n, prev)
		}
		if px > m.Count() {
			t.Fatalf("Significant(minSize=%d) pixels = %d > flagged %d", minSize, px, m.Count())
		}
		prev = n
	}
	if prev != len(clusters) {
		t.Errorf("Significant(minSize=1) = %d, want all %d clusters", prev, len(clusters))
	}
}

func TestMask(t *testing.T) {
	m := NewMask(70, 3) // spans word boundaries
	m.Set(0, 0)
	m.Set(69, 0)
	m.Set(0, 1)
	m.Set(-1, 0) // ignored
	m.Set(70, 2) // ignored
	m.Set(69, 2)

	if got := m.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	if !m.At(69, 0) || !m.At(0, 1) || m.At(1, 1) || m.At(-1, 0) {
		t.Error("At() returned wrong flags")
	}

	img := m.Image()
	if got := img.NRGBAAt(69, 2); got != DiffColor {
		t.Errorf("Image() flagged pixel = %v, want %v", got, DiffColor)
	}
	if got := img.NRGBAAt(5, 1); got.A != 0 {
		t.Errorf("Image() unflagged pixel alpha = %d, want 0", got.A)
	}
}

func BenchmarkFindClusters(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	m := NewMask(512, 512)
	for range 20000 {
		m.Set(rng.Intn(512), rng.Intn(512))
	}
	b.ResetTimer()
	for b.Loop() {
		FindClusters(m)
	}
}
