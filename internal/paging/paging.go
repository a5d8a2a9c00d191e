// Package paging holds the arithmetic behind result lists: which page sizes a
// user may pick for a given total and which slice of the list a page covers.
package paging

import "slices"

// DefaultSizes is used when no page sizes are configured.
var DefaultSizes = []int{10, 25, 50, 100}

// SizeOptions returns the page sizes worth offering for total items: every
// candidate up to and including the smallest candidate that holds all items.
// When total exceeds every candidate the full list is offered.
func SizeOptions(candidates []int, total int) []int {
	tier, ok := ceilingTier(candidates, total)
	if !ok {
		return slices.Clone(candidates)
	}
	options := make([]int, 0, len(candidates))
	for _, c := range candidates {
		if c <= tier {
			options = append(options, c)
		}
	}
	return options
}

// ceilingTier finds the smallest candidate >= total.
func ceilingTier(candidates []int, total int) (int, bool) {
	tier, found := 0, false
	for _, c := range candidates {
		if c >= total && (!found || c < tier) {
			tier, found = c, true
		}
	}
	return tier, found
}

// Max returns the largest of nums, or false when nums is empty.
func Max(nums []int) (int, bool) {
	if len(nums) == 0 {
		return 0, false
	}
	return slices.Max(nums), true
}
