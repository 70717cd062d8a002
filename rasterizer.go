package glyphatlas

import (
	"log/slog"
	"sync"

	"github.com/gogpu/glyphatlas/internal/parallel"
)

// Rasterizer turns one glyph request into an 8-bit row-major coverage
// bitmap written into out (out has length w*h). It must be pure with
// respect to its inputs and, in parallel mode, callable concurrently
// from any worker goroutine.
//
// Unlike spec.md's C-shaped "write through a raw buffer, no failure
// reporting" signature, this collaborator returns an error: idiomatic
// Go collaborator interfaces report failure through return values
// rather than out-of-band flags. A non-nil error drops only that
// glyph's upload for the frame; it does not abort the commit (see
// SPEC_FULL.md §6).
type Rasterizer func(fontID uint64, glyphID uint16, scaleX, scaleY, offsetX, offsetY float64, out []byte, w, h int) error

// rasterizeTask is one missing glyph queued for rasterization.
type rasterizeTask struct {
	key Key
	req Request
}

// rasterizeResult is a successfully produced coverage bitmap, or the
// error that prevented producing one. buf is the pooled scratch buffer
// backing pixels; callers must return it via (*rasterizerDriver).recycle
// once they are done reading pixels.
type rasterizeResult struct {
	key    Key
	pixels []byte
	err    error
	buf    *[]byte
}

// rasterizerDriver orchestrates turning missing entries into coverage
// bitmaps, either synchronously or via the work-stealing pool in
// internal/parallel. It also owns a sync.Pool of scratch bitmap
// buffers, matching the teacher's own sync.Pool-based reuse
// (text.GlyphCachePool, internal/parallel.TilePool): a buffer is sized
// to the largest glyph rasterized so far and grown on demand, never
// shrunk, so steady-state commits allocate nothing per glyph.
type rasterizerDriver struct {
	rasterize   Rasterizer
	multithread bool
	workers     int
	bufPool     sync.Pool
}

func newRasterizerDriver(r Rasterizer, multithread bool, workers int) *rasterizerDriver {
	d := &rasterizerDriver{rasterize: r, multithread: multithread, workers: workers}
	d.bufPool.New = func() any {
		buf := make([]byte, 0, 256)
		return &buf
	}
	return d
}

// getBuffer returns a scratch buffer of exactly n bytes, reusing
// pooled capacity when it is large enough and growing it otherwise.
func (d *rasterizerDriver) getBuffer(n int) *[]byte {
	bp := d.bufPool.Get().(*[]byte)
	if cap(*bp) < n {
		*bp = make([]byte, n)
	} else {
		*bp = (*bp)[:n]
	}
	return bp
}

// putBuffer returns a scratch buffer to the pool. Safe to call with a
// nil bp.
func (d *rasterizerDriver) putBuffer(bp *[]byte) {
	if bp == nil {
		return
	}
	d.bufPool.Put(bp)
}

// recycle returns every result's scratch buffer to the pool. Callers
// must not read result.pixels after calling recycle: the backing array
// may be handed out to the next commit's rasterization pass.
func (d *rasterizerDriver) recycle(results []rasterizeResult) {
	for _, r := range results {
		d.putBuffer(r.buf)
	}
}

// fixedOffset quantizes a request's sub-pixel offset to 1/64px
// (26.6 fixed-point) precision before handing it to the rasterizer
// collaborator, the same representation the teacher's own glyph
// rasterization carries sub-pixel origins in (text/rasterize.go,
// text/glyph_outline.go). Only the fractional part matters to a
// coverage rasterizer: the integer pixel position is applied by the
// caller when it places the returned rectangle, not baked into the
// bitmap itself.
func fixedOffset(r Request) (offsetX, offsetY float64) {
	fo := r.FixedOffset()
	return float64(fo.X) / 64, float64(fo.Y) / 64
}

// run rasterizes every task and returns one result per task. Single
// threaded mode processes tasks in the order given (the deduplicated
// queue's insertion order); parallel mode (where supported by the
// platform, see rasterizer_parallel.go / rasterizer_serial.go) makes
// no ordering guarantee, matching spec.md §4.5/§5.
func (d *rasterizerDriver) run(tasks []rasterizeTask) []rasterizeResult {
	if len(tasks) == 0 {
		return nil
	}
	if d.multithread && parallelSupported {
		return d.runParallel(tasks)
	}
	return d.runSerial(tasks)
}

func (d *rasterizerDriver) runSerial(tasks []rasterizeTask) []rasterizeResult {
	results := make([]rasterizeResult, len(tasks))
	for i, t := range tasks {
		results[i] = d.rasterizeOne(t)
	}
	return results
}

func (d *rasterizerDriver) rasterizeOne(t rasterizeTask) rasterizeResult {
	w, h := t.req.width(), t.req.height()
	bp := d.getBuffer(w * h)
	offsetX, offsetY := fixedOffset(t.req)
	err := d.rasterize(t.req.FontID, t.req.GlyphID, t.req.ScaleX, t.req.ScaleY, offsetX, offsetY, *bp, w, h)
	if err != nil {
		Logger().Warn("glyphatlas: rasterization failed", slog.Any("key", t.key), slog.Any("err", err))
		return rasterizeResult{key: t.key, err: err, buf: bp}
	}
	return rasterizeResult{key: t.key, pixels: *bp, buf: bp}
}

// runParallelViaPool is shared by the !wasm build: it adapts tasks to
// internal/parallel.Job, runs them on a fresh pool sized to
// d.workers, and translates outcomes back.
func (d *rasterizerDriver) runParallelViaPool(tasks []rasterizeTask) []rasterizeResult {
	pool := parallel.NewPool(d.workers)
	defer pool.Close()

	bufs := make([]*[]byte, len(tasks))
	jobs := make([]parallel.Job, len(tasks))
	for i, t := range tasks {
		w, h := t.req.width(), t.req.height()
		bp := d.getBuffer(w * h)
		offsetX, offsetY := fixedOffset(t.req)
		bufs[i] = bp
		jobs[i] = parallel.Job{
			Ref:     i,
			FontID:  t.req.FontID,
			GlyphID: t.req.GlyphID,
			ScaleX:  t.req.ScaleX, ScaleY: t.req.ScaleY,
			OffsetX: offsetX, OffsetY: offsetY,
			Width: w, Height: h,
			Buf: *bp,
		}
	}

	outcomes := pool.Run(jobs, func(j parallel.Job) ([]byte, error) {
		err := d.rasterize(j.FontID, j.GlyphID, j.ScaleX, j.ScaleY, j.OffsetX, j.OffsetY, j.Buf, j.Width, j.Height)
		if err != nil {
			return nil, err
		}
		return j.Buf, nil
	})

	results := make([]rasterizeResult, len(outcomes))
	for i, o := range outcomes {
		idx := o.Ref.(int)
		key := tasks[idx].key
		bp := bufs[idx]
		if o.Err != nil {
			Logger().Warn("glyphatlas: rasterization failed", slog.Any("key", key), slog.Any("err", o.Err))
			results[i] = rasterizeResult{key: key, err: o.Err, buf: bp}
			continue
		}
		results[i] = rasterizeResult{key: key, pixels: o.Pixels, buf: bp}
	}
	return results
}
