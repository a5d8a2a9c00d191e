package paging

// Window selects one page of a list. Pages are numbered from 1.
type Window struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Normalize clamps the page to 1 and falls back to defaultSize for a missing
// or non-positive size. Sizes above maxSize are capped when maxSize > 0.
func (w Window) Normalize(defaultSize, maxSize int) Window {
	if w.Page <= 0 {
		w.Page = 1
	}
	if w.Size <= 0 {
		w.Size = defaultSize
	}
	if maxSize > 0 && w.Size > maxSize {
		w.Size = maxSize
	}
	return w
}

// Pages returns how many pages total items fill.
func (w Window) Pages(total int) int {
	if w.Size <= 0 || total <= 0 {
		return 0
	}
	return (total + w.Size - 1) / w.Size
}

// Bounds returns the half-open index range [start, end) of the page within a
// list of total items. A page past the end yields an empty range.
func (w Window) Bounds(total int) (start, end int) {
	if w.Size <= 0 || w.Page <= 0 || total <= 0 {
		return 0, 0
	}
	// Compare page numbers first; (Page-1)*Size can overflow.
	if w.Page-1 > (total-1)/w.Size {
		return total, total
	}
	start = (w.Page - 1) * w.Size
	end = min(start+w.Size, total)
	return start, end
}

// Slice returns the part of items covered by the window.
func Slice[T any](items []T, w Window) []T {
	start, end := w.Bounds(len(items))
	return items[start:end]
}
