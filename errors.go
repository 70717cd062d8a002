package glyphatlas

import (
	"errors"
	"fmt"
	"image"
)

// Construction-time sentinel errors, returned by New and Rebuild.
// ErrInvalidDimensions and ErrInvalidTolerance are also returned by
// Cache.Enqueue (via Request.Validate) for a malformed request.
var (
	// ErrInvalidDimensions is returned when the requested atlas size is
	// non-positive, or when a request's bounding box has a negative
	// width or height.
	ErrInvalidDimensions = errors.New("glyphatlas: invalid atlas dimensions")

	// ErrInvalidTolerance is returned when ScaleTolerance or
	// PositionTolerance is not a finite value greater than zero, when
	// PositionTolerance exceeds 1, or when a request's ScaleX or ScaleY
	// is not a finite value greater than zero.
	ErrInvalidTolerance = errors.New("glyphatlas: invalid tolerance")

	// ErrInvalidPadding is returned when glyph padding is enabled and
	// the atlas is 2 pixels or less in width or height, leaving no
	// room for a padded glyph.
	ErrInvalidPadding = errors.New("glyphatlas: invalid padding")

	// ErrMissingRasterizer is returned when New is called without a
	// rasterizer collaborator; the cache cannot produce coverage bitmaps
	// without one.
	ErrMissingRasterizer = errors.New("glyphatlas: rasterizer is required")
)

// Query sentinel errors, returned by Cache.RectFor.
var (
	// ErrNotCached is returned when the requested glyph is not currently
	// resident: it was never queued, or it has been evicted since the
	// last commit.
	ErrNotCached = errors.New("glyphatlas: glyph not cached")

	// ErrUncommittedQueue is returned when RectFor is called before any
	// commit has run, or after a Rebuild that changed the tolerances and
	// before the next commit. Per spec, implementations may also return
	// ErrNotCached here; this implementation distinguishes the two so
	// callers can tell "never committed" from "evicted" (see DESIGN.md).
	ErrUncommittedQueue = errors.New("glyphatlas: no commit has run yet")
)

// GlyphTooLargeError is returned by Enqueue, or by Commit for a glyph
// queued before a Rebuild changed padding or alignment, when a glyph's padded
// dimensions cannot fit inside the atlas under any row layout, because
// its padded height alone exceeds the atlas height or its padded width
// exceeds the atlas width. This is permanent for the current
// configuration: the caller must grow the atlas or shrink the glyph.
type GlyphTooLargeError struct {
	Key         Key
	Requested   image.Rectangle // padded outer dimensions requested
	AtlasWidth  int
	AtlasHeight int
}

func (e *GlyphTooLargeError) Error() string {
	w, h := e.Requested.Dx(), e.Requested.Dy()
	return fmt.Sprintf(
		"glyphatlas: glyph %v padded size %dx%d exceeds atlas %dx%d",
		e.Key, w, h, e.AtlasWidth, e.AtlasHeight,
	)
}

// NoRoomForWholeQueueError is returned by Commit when the queue, taken
// as a whole, cannot fit in the atlas even after evicting every
// unlocked resident entry. Typically transient: the caller should
// split the queue across frames or enlarge the atlas.
type NoRoomForWholeQueueError struct {
	// QueueSize is the number of distinct keys in the queue that
	// triggered the failure.
	QueueSize int

	// LockedResident is the number of resident entries that could not
	// be evicted because they were touched by this frame's queue.
	LockedResident int
}

func (e *NoRoomForWholeQueueError) Error() string {
	return fmt.Sprintf(
		"glyphatlas: no room for queue of %d glyphs (%d resident entries locked)",
		e.QueueSize, e.LockedResident,
	)
}
