package paging

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSizeOptions(t *testing.T) {
	sizes := []int{10, 25, 50, 100}
	tests := []struct {
		name  string
		total int
		want  []int
	}{
		{"between tiers", 30, []int{10, 25, 50}},
		{"below first tier", 5, []int{10}},
		{"exactly a tier", 25, []int{10, 25}},
		{"zero items", 0, []int{10}},
		{"largest tier", 100, []int{10, 25, 50, 100}},
		{"beyond every tier falls back to all", 250, []int{10, 25, 50, 100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, SizeOptions(sizes, tc.total)); diff != "" {
				t.Errorf("SizeOptions(%v, %d) mismatch (-want +got):\n%s", sizes, tc.total, diff)
			}
		})
	}
}

func TestSizeOptions_DoesNotAliasInput(t *testing.T) {
	sizes := []int{10, 25}
	got := SizeOptions(sizes, 1000)
	got[0] = 99
	assert.Equal(t, []int{10, 25}, sizes)
}

func TestSizeOptions_UnsortedCandidates(t *testing.T) {
	assert.Equal(t, []int{25, 10}, SizeOptions([]int{25, 100, 10, 50}, 12))
}

func TestSizeOptions_Empty(t *testing.T) {
	assert.Empty(t, SizeOptions(nil, 10))
}

func TestMax(t *testing.T) {
	m, ok := Max([]int{3, 17, 4})
	assert.True(t, ok)
	assert.Equal(t, 17, m)

	_, ok = Max(nil)
	assert.False(t, ok)
}

func TestWindow(t *testing.T) {
	w := Window{Page: 0, Size: 0}.Normalize(10, 100)
	assert.Equal(t, Window{Page: 1, Size: 10}, w)
	assert.Equal(t, Window{Page: 2, Size: 100}, Window{Page: 2, Size: 500}.Normalize(10, 100))

	w = Window{Page: 3, Size: 10}
	assert.Equal(t, 3, w.Pages(25))
	start, end := w.Bounds(25)
	assert.Equal(t, 20, start)
	assert.Equal(t, 25, end)

	start, end = Window{Page: 4, Size: 10}.Bounds(25)
	assert.Equal(t, start, end)

	items := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, []string{"c", "d"}, Slice(items, Window{Page: 2, Size: 2}))
	assert.Empty(t, Slice(items, Window{Page: 9, Size: 2}))

	huge := Window{Page: 1844674407370955162, Size: 10}.Normalize(10, 100)
	start, end = huge.Bounds(len(items))
	assert.Equal(t, len(items), start)
	assert.Equal(t, len(items), end)
	assert.NotPanics(t, func() {
		assert.Empty(t, Slice(items, huge))
		assert.Empty(t, Slice(items, Window{Page: math.MaxInt, Size: 100}))
	})
}
