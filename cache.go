// Package glyphatlas implements a dynamic GPU glyph cache: an
// in-memory structure that keeps rasterized glyph bitmaps resident in
// a single fixed-size 2D texture atlas, so an interactive renderer can
// draw text with a minimum of texture uploads and one draw call per
// frame.
//
// Callers enqueue the glyphs they want to draw for the coming frame,
// call Commit once, and then query per-glyph texture rectangles with
// RectFor. Commit decides which glyphs are already resident (possibly
// as a near-enough approximation under the configured tolerances),
// rasterizes only the missing ones, packs them into free regions of
// the atlas, and evicts least-recently-used entries if the queue does
// not fit.
//
// A Cache is owned by a single goroutine (the renderer thread, in the
// typical case). All exported methods must be called from that one
// goroutine; Commit may spawn internal worker goroutines for parallel
// rasterization, but always joins them before returning.
package glyphatlas

import (
	"context"
	"image"
	"log/slog"
	"sort"
)

// Uploader is invoked once per newly resident entry during Commit,
// with the entry's inner (unpadded) rectangle and its row-major 8-bit
// coverage pixels. It may not fail in-band; if a caller's uploader
// needs to signal failure, it must do so out-of-band (e.g. logging or
// a side channel), and the next Commit will report consistent cache
// state regardless.
//
// pixels is backed by a pooled scratch buffer that Commit recycles for
// the next rasterization pass as soon as every Uploader call for this
// commit returns; an Uploader that needs the bytes afterward (e.g. to
// hand off to an async GPU upload) must copy them.
type Uploader func(rect image.Rectangle, pixels []byte)

// CommitResult reports whether a successful Commit changed the atlas
// layout.
type CommitResult uint8

const (
	// CommitUnchanged means every queued glyph was already resident in
	// its existing spot, or newly placed glyphs fit into already-free
	// space without creating a row or evicting anything.
	CommitUnchanged CommitResult = iota

	// CommitReorganized means this commit created at least one new row
	// or evicted at least one resident entry to make room.
	CommitReorganized
)

func (r CommitResult) String() string {
	switch r {
	case CommitUnchanged:
		return "unchanged"
	case CommitReorganized:
		return "reorganized"
	default:
		return "unknown"
	}
}

// Cache is a dynamic GPU glyph cache backed by a single fixed-size
// texture atlas. See the package doc for the full lifecycle.
//
// Cache is not safe for concurrent use: it is a single-writer object
// owned by one goroutine. The only internal parallelism is Commit's
// optional rasterization pool, which is joined before Commit returns.
type Cache struct {
	cfg config

	allocator *ShelfAllocator
	resident  *residentTable
	queue     *queue
	driver    *rasterizerDriver

	frame     uint64
	committed bool
}

// New builds a Cache for an atlas of the given pixel dimensions. A
// Rasterizer must be supplied via WithRasterizer; every other option
// has a documented default (see Option).
func New(width, height int, opts ...Option) (*Cache, error) {
	cfg := defaultConfig(width, height)
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:       cfg,
		allocator: NewShelfAllocator(width, height),
		resident:  newResidentTable(),
		queue:     newQueue(cfg.scaleTolerance, cfg.positionTolerance),
		driver:    newRasterizerDriver(cfg.rasterize, cfg.multithread, cfg.workers),
	}
	Logger().Info("glyphatlas: cache built",
		slog.Int("width", width), slog.Int("height", height),
		slog.Bool("multithread", cfg.multithread && parallelSupported))
	return c, nil
}

// SetUploader (re)configures the uploader collaborator. Useful for
// renderers that construct their GPU texture after the cache, the way
// msdf.AtlasManager.SetGenerator lets a generator be swapped in after
// construction in the teacher.
func (c *Cache) SetUploader(u Uploader) {
	c.cfg.upload = u
}

// Rebuild applies a new configuration to an existing cache. If opts
// change the scale or position tolerance value, every resident entry
// is dropped, the queue is cleared and RectFor reports
// ErrUncommittedQueue until the next Commit: their fingerprint keys
// are no longer valid under the new tolerances, per spec.md §4.7.
// Options that set a tolerance to its current value drop nothing. Atlas
// dimensions cannot be changed by Rebuild (construct a new Cache
// instead) — the only dimension-affecting knobs Rebuild accepts are
// padding and alignment, which only affect future allocations.
func (c *Cache) Rebuild(opts ...Option) error {
	next := c.cfg
	next.width, next.height = c.cfg.width, c.cfg.height // dimensions are immutable (spec.md §5)
	for _, opt := range opts {
		opt(&next)
	}
	next.width, next.height = c.cfg.width, c.cfg.height
	if err := next.validate(); err != nil {
		return err
	}

	toleranceChanged := next.scaleTolerance != c.cfg.scaleTolerance ||
		next.positionTolerance != c.cfg.positionTolerance

	c.cfg = next
	c.driver = newRasterizerDriver(next.rasterize, next.multithread, next.workers)
	c.queue.setTolerances(next.scaleTolerance, next.positionTolerance)

	if toleranceChanged {
		c.resident.reset()
		c.allocator = NewShelfAllocator(c.cfg.width, c.cfg.height)
		c.queue.Reset()
		c.committed = false
		Logger().Info("glyphatlas: tolerances changed, cache emptied")
	}
	return nil
}

// Enqueue stages a glyph for the coming frame. It may be called any
// number of times before Commit; requests that fingerprint to an
// already-queued key are merged. Enqueue returns an error if the
// request is malformed (non-finite or non-positive scale, or a
// negative-sized bounding box) or larger than the atlas could ever
// hold.
//
// The "glyph too large for this atlas" failure is surfaced here rather
// than from Commit: the atlas's dimensions are fixed at construction,
// so a glyph that cannot fit can be rejected immediately instead of
// waiting for a commit. Commit still performs the same check for
// glyphs it discovers mid-fit-pass (reachable only via Rebuild
// changing padding/alignment after a glyph was already queued), which
// is what spec.md §7's "surfaced by commit" framing describes.
func (c *Cache) Enqueue(r Request) error {
	if err := r.Validate(); err != nil {
		return err
	}
	pw, ph := paddedSize(r.width(), r.height(), c.cfg.margin(), c.cfg.align4x4)
	if !c.allocator.WouldEverFit(pw, ph) {
		return &GlyphTooLargeError{
			Requested:   image.Rect(0, 0, pw, ph),
			AtlasWidth:  c.allocator.Width(),
			AtlasHeight: c.allocator.Height(),
		}
	}
	c.queue.Enqueue(r)
	return nil
}

// ResetQueue discards every request enqueued since the last Commit
// without running one. Commit itself also clears the queue once it
// succeeds; ResetQueue exists for callers that decide mid-frame to
// abandon the current frame's requests entirely.
func (c *Cache) ResetQueue() {
	c.queue.Reset()
}

// Commit is the per-frame transaction that reconciles the queue
// against the atlas: already-resident glyphs are touched (marked used
// this frame, immune to eviction), missing glyphs are packed into
// free rows (evicting least-recently-used entries if necessary), and
// the rasterizer/uploader collaborators are invoked for every newly
// resident glyph.
//
// Commit is synchronous and uninterruptible: ctx is threaded through
// only for collaborator symmetry (see SPEC_FULL.md §4.6) and is never
// checked mid-transaction. Commit either succeeds (returning whether
// the atlas layout was reorganized) or fails with *GlyphTooLargeError
// or *NoRoomForWholeQueueError, leaving the cache exactly as it was
// before the call.
func (c *Cache) Commit(_ context.Context) (CommitResult, error) {
	if c.queue.Len() == 0 {
		c.committed = true
		return CommitUnchanged, nil
	}

	nextFrame := c.frame + 1
	margin := c.cfg.margin()

	stagedAllocator := c.allocator.clone()
	stagedResident := c.resident.clone()
	stagedResident.clearLocks()

	missing := make([]rasterizeTask, 0, c.queue.Len())
	for _, qg := range c.queue.order {
		if e, ok := stagedResident.get(qg.key); ok {
			stagedResident.touch(e, nextFrame)
			continue
		}
		missing = append(missing, rasterizeTask{key: qg.key, req: qg.req})
	}

	// Rasterization and upload follow queue order; only the fit pass
	// uses the size-sorted order.
	inQueueOrder := append([]rasterizeTask(nil), missing...)
	sortMissingForPacking(missing)

	reorganized := false
	evictedTotal := 0
	newRowsTotal := 0
	needsUpload := make([]rasterizeTask, 0, len(missing))

	for _, task := range missing {
		pw, ph := paddedSize(task.req.width(), task.req.height(), margin, c.cfg.align4x4)

		if !stagedAllocator.WouldEverFit(pw, ph) {
			return CommitUnchanged, &GlyphTooLargeError{
				Key: task.key, Requested: image.Rect(0, 0, pw, ph),
				AtlasWidth: stagedAllocator.Width(), AtlasHeight: stagedAllocator.Height(),
			}
		}

		rowsBefore := stagedAllocator.RowCount()
		fit, ok := stagedAllocator.Allocate(pw, ph)
		if !ok {
			var evicted int
			fit, evicted, ok = evictUntilFits(stagedAllocator, stagedResident, pw, ph)
			evictedTotal += evicted
			if !ok {
				return CommitUnchanged, &NoRoomForWholeQueueError{
					QueueSize:      c.queue.Len(),
					LockedResident: stagedResident.countLocked(),
				}
			}
			reorganized = true
		}
		if grew := stagedAllocator.RowCount() - rowsBefore; grew > 0 {
			newRowsTotal += grew
			reorganized = true
		}

		e := &entry{
			key:           task.key,
			row:           fit.Row,
			inner:         innerFromOuter(fit.X, fit.Y, task.req.width(), task.req.height(), margin),
			lastUsedFrame: nextFrame,
			locked:        true,
		}
		stagedResident.insert(e)
		needsUpload = append(needsUpload, task)
	}

	results := c.driver.run(inQueueOrder)
	c.uploadResults(stagedResident, results)
	c.driver.recycle(results)

	c.allocator = stagedAllocator
	c.resident = stagedResident
	c.frame = nextFrame
	c.queue.Reset()
	c.committed = true

	result := CommitUnchanged
	if reorganized {
		result = CommitReorganized
		Logger().Warn("glyphatlas: commit reorganized atlas",
			slog.Int("evicted", evictedTotal), slog.Int("new_rows", newRowsTotal))
	}
	Logger().Debug("glyphatlas: commit complete",
		slog.String("result", result.String()),
		slog.Int("rasterized", len(needsUpload)),
		slog.Int("resident", stagedResident.len()))
	return result, nil
}

// evictUntilFits repeatedly pops the least-recently-used unlocked
// resident entry, releases its row column, and retries the
// allocation, per spec.md §4.6 step 3's eviction sub-loop. It reports
// how many entries it evicted so the caller can log real counts
// instead of a boolean "something was reorganized" flag.
func evictUntilFits(a *ShelfAllocator, t *residentTable, pw, ph int) (fit Fit, evicted int, ok bool) {
	for {
		victim := t.evictLRU()
		if victim == nil {
			return Fit{}, evicted, false
		}
		a.Release(victim.row)
		evicted++
		if fit, ok := a.Allocate(pw, ph); ok {
			return fit, evicted, true
		}
	}
}

// sortMissingForPacking orders missing glyphs by inner height
// descending, ties by width descending, to improve shelf packing
// quality (spec.md §4.6 step 3).
func sortMissingForPacking(missing []rasterizeTask) {
	sort.Slice(missing, func(i, j int) bool {
		hi, hj := missing[i].req.height(), missing[j].req.height()
		if hi != hj {
			return hi > hj
		}
		return missing[i].req.width() > missing[j].req.width()
	})
}

// uploadResults invokes the uploader collaborator for every
// successfully rasterized entry. Rasterizer failures are logged and
// skipped: that glyph remains resident with no bitmap uploaded this
// frame, but the rest of the commit proceeds (see SPEC_FULL.md §6).
func (c *Cache) uploadResults(resident *residentTable, results []rasterizeResult) {
	if c.cfg.upload == nil {
		return
	}
	for _, r := range results {
		if r.err != nil {
			continue
		}
		e, ok := resident.get(r.key)
		if !ok {
			continue
		}
		c.cfg.upload(e.inner, r.pixels)
	}
}

// RectFor queries the texture rectangles for a previously enqueued
// glyph request. It returns ErrUncommittedQueue if no commit has run
// since the cache was built or since a Rebuild that changed the
// tolerances, or ErrNotCached if the glyph was never queued this frame
// or has been evicted since the last commit.
func (c *Cache) RectFor(r Request) (UVRect, image.Rectangle, error) {
	if !c.committed {
		return UVRect{}, image.Rectangle{}, ErrUncommittedQueue
	}
	k := fingerprint(r, c.cfg.scaleTolerance, c.cfg.positionTolerance)
	e, ok := c.resident.get(k)
	if !ok {
		return UVRect{}, image.Rectangle{}, ErrNotCached
	}
	uv := uvFromInner(e.inner, c.allocator.Width(), c.allocator.Height())
	return uv, e.inner, nil
}

// Len returns the number of glyphs currently resident in the atlas.
func (c *Cache) Len() int { return c.resident.len() }

// Dimensions returns the atlas's pixel width and height.
func (c *Cache) Dimensions() (width, height int) {
	return c.allocator.Width(), c.allocator.Height()
}
