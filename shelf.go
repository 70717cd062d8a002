package glyphatlas

// rowID identifies a shelf (row) by its stable slot index in the
// allocator. Slots are reused once a row empties and is reclaimed, so
// a rowID is only meaningful alongside the entry that references it.
type rowID int

// row is a horizontal strip of the atlas. New columns are appended at
// nextX; a row's height is fixed for its lifetime between reclaims.
//
// Rows only support whole-row reclamation, not mid-row defragmentation:
// once a column is released, its space becomes fragmented and is only
// recovered when the row empties entirely and is reclaimed for a
// (possibly different) height. This mirrors the append-only shape of
// the teacher's own shelf allocators (msdf.ShelfAllocator,
// gpu.RectAllocator), which support no release at all; this allocator
// is a strict superset that adds whole-row reuse (see DESIGN.md).
type row struct {
	y         int
	height    int
	nextX     int
	liveCount int // number of resident entries currently placed in this row
	empty     bool
}

// ShelfAllocator packs rectangles into the atlas using shelf (row)
// packing: rows are horizontal strips of fixed height, columns are
// appended left to right within a row.
type ShelfAllocator struct {
	width, height int
	rows          []row
}

// NewShelfAllocator creates an allocator for an atlas of the given
// pixel dimensions.
func NewShelfAllocator(width, height int) *ShelfAllocator {
	return &ShelfAllocator{width: width, height: height}
}

// Fit describes where a rectangle was placed.
type Fit struct {
	Row  rowID
	X, Y int
}

// Allocate finds space for a w x h rectangle (already including
// padding) following best-height-fit: among existing rows tall enough
// and wide enough, the row with the smallest height that still fits is
// preferred, ties going to the earliest row. Failing that, the first
// empty row at least h tall is reused, and failing that a new row is
// created if vertical space remains. ok is false if neither is
// possible; the caller (the commit engine) is then responsible for
// evicting and retrying.
func (a *ShelfAllocator) Allocate(w, h int) (fit Fit, ok bool) {
	best := -1
	for i := range a.rows {
		r := &a.rows[i]
		if r.empty {
			continue
		}
		if r.height < h {
			continue
		}
		if r.nextX+w > a.width {
			continue
		}
		if best == -1 || a.rows[i].height < a.rows[best].height {
			best = i
		}
	}
	if best != -1 {
		r := &a.rows[best]
		x := r.nextX
		r.nextX += w
		r.liveCount++
		return Fit{Row: rowID(best), X: x, Y: r.y}, true
	}

	// Try the first empty (reclaimable) row that is at least h tall
	// before creating a brand-new one; the reused row's height becomes h.
	for i := range a.rows {
		r := &a.rows[i]
		if r.empty && r.height >= h && w <= a.width {
			r.height = h
			r.nextX = w
			r.liveCount = 1
			r.empty = false
			return Fit{Row: rowID(i), X: 0, Y: r.y}, true
		}
	}

	return a.allocateNewRow(w, h)
}

// allocateNewRow appends a fresh row below the lowest existing row
// (skipping the vertical space held by empty rows in between is not
// attempted: empty rows are only reused via Allocate's reclaim scan
// above, keeping row Y coordinates stable for the lifetime of the
// allocator).
func (a *ShelfAllocator) allocateNewRow(w, h int) (Fit, bool) {
	if w > a.width {
		return Fit{}, false
	}
	newY := 0
	if len(a.rows) > 0 {
		last := a.rows[len(a.rows)-1]
		newY = last.y + last.height
	}
	if newY+h > a.height {
		return Fit{}, false
	}
	a.rows = append(a.rows, row{y: newY, height: h, nextX: w, liveCount: 1})
	return Fit{Row: rowID(len(a.rows) - 1), X: 0, Y: newY}, true
}

// Release returns a previously allocated column's occupancy to its
// row. It does not reclaim the physical column space unless this was
// the row's last live entry, in which case the row becomes empty and
// is reported reusable via the returned bool.
func (a *ShelfAllocator) Release(id rowID) (becameEmpty bool) {
	if int(id) < 0 || int(id) >= len(a.rows) {
		return false
	}
	r := &a.rows[id]
	if r.liveCount > 0 {
		r.liveCount--
	}
	if r.liveCount == 0 {
		r.empty = true
		r.nextX = 0
		return true
	}
	return false
}

// MaxRowHeight returns the tallest row height this allocator could
// ever create: the full atlas height, since a single row may span the
// entire atlas: any request taller than this can never fit regardless
// of eviction. The cache classifies GlyphTooLarge with WouldEverFit,
// which also checks the width.
func (a *ShelfAllocator) MaxRowHeight() int { return a.height }

// Width and Height report the atlas dimensions this allocator packs
// into.
func (a *ShelfAllocator) Width() int  { return a.width }
func (a *ShelfAllocator) Height() int { return a.height }

// WouldEverFit reports whether a w x h rectangle could conceivably be
// placed in this atlas in isolation (ignoring current occupancy). It
// is used to distinguish a permanent GlyphTooLarge failure from a
// transient NoRoomForWholeQueue failure.
func (a *ShelfAllocator) WouldEverFit(w, h int) bool {
	return w <= a.width && h <= a.height
}

// RowCount returns the number of row slots tracked, including empty
// (reclaimable) ones. Exposed for tests and diagnostics.
func (a *ShelfAllocator) RowCount() int { return len(a.rows) }

// clone returns an independent copy of the allocator's row state, so
// the commit engine can attempt a fit pass speculatively and discard
// the attempt without disturbing the live cache if it ultimately
// fails (spec.md §7's all-or-nothing commit propagation).
func (a *ShelfAllocator) clone() *ShelfAllocator {
	rows := make([]row, len(a.rows))
	copy(rows, a.rows)
	return &ShelfAllocator{width: a.width, height: a.height, rows: rows}
}
