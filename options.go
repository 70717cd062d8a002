package glyphatlas

import "runtime"

// config holds validated construction options for a Cache. Mirrors
// the shape of the teacher's contextOptions/AtlasConfig: a plain
// struct filled in by functional options, then validated once before
// any allocation happens.
type config struct {
	width, height int

	scaleTolerance    float64
	positionTolerance float64

	padGlyphs bool
	align4x4  bool

	multithread bool
	workers     int

	rasterize Rasterizer
	upload    Uploader
}

func defaultConfig(width, height int) config {
	return config{
		width:             width,
		height:            height,
		scaleTolerance:    0.1,
		positionTolerance: 0.1,
		padGlyphs:         true,
		align4x4:          false,
		multithread:       runtime.NumCPU() > 1,
		workers:           0, // 0 means "let the pool pick GOMAXPROCS"
	}
}

// validate mirrors msdf.AtlasConfig.Validate(): every option is
// checked before construction proceeds, and the first violation wins.
func (c config) validate() error {
	if c.width <= 0 || c.height <= 0 {
		return ErrInvalidDimensions
	}
	if !isFinitePositive(c.scaleTolerance) {
		return ErrInvalidTolerance
	}
	if !isFinitePositive(c.positionTolerance) || c.positionTolerance > 1 {
		return ErrInvalidTolerance
	}
	margin := 0
	if c.padGlyphs {
		margin = 1
	}
	if 2*margin >= c.width || 2*margin >= c.height {
		return ErrInvalidPadding
	}
	if c.rasterize == nil {
		return ErrMissingRasterizer
	}
	return nil
}

func (c config) margin() int {
	if c.padGlyphs {
		return 1
	}
	return 0
}

// Option configures a Cache during construction or Rebuild. Use
// functional options to customize behavior, the same shape the
// teacher uses for gg.NewContext(w, h, ...ContextOption).
type Option func(*config)

// WithScaleTolerance sets the maximum relative scale error tolerated
// as "the same glyph". Must be > 0; default 0.1.
func WithScaleTolerance(tolerance float64) Option {
	return func(c *config) { c.scaleTolerance = tolerance }
}

// WithPositionTolerance sets the maximum sub-pixel offset error, in
// pixels, tolerated as "the same glyph". Must be in (0, 1]; default 0.1.
func WithPositionTolerance(tolerance float64) Option {
	return func(c *config) { c.positionTolerance = tolerance }
}

// WithGlyphPadding enables or disables the 1px anti-bleed margin
// reserved around each glyph's inner rectangle. Default true.
func WithGlyphPadding(enabled bool) Option {
	return func(c *config) { c.padGlyphs = enabled }
}

// WithAlign4x4 rounds allocated outer rectangles up to 4-pixel
// multiples. Default false.
func WithAlign4x4(enabled bool) Option {
	return func(c *config) { c.align4x4 = enabled }
}

// WithMultithread enables or disables parallel rasterization. Ignored
// on platforms without goroutine parallelism (wasm); see
// rasterizer_parallel.go / rasterizer_serial.go. Default true when
// runtime.NumCPU() > 1.
func WithMultithread(enabled bool) Option {
	return func(c *config) { c.multithread = enabled }
}

// WithWorkerCount overrides the number of rasterization workers used
// in parallel mode. 0 (the default) lets the pool pick
// runtime.GOMAXPROCS(0).
func WithWorkerCount(workers int) Option {
	return func(c *config) { c.workers = workers }
}

// WithRasterizer supplies the rasterizer collaborator. Required: New
// fails with ErrMissingRasterizer if no rasterizer is configured.
func WithRasterizer(r Rasterizer) Option {
	return func(c *config) { c.rasterize = r }
}

// WithUploader supplies the uploader collaborator. Optional at
// construction time — a cache built without one simply skips texture
// uploads until SetUploader is called, which is useful for renderers
// that build their GPU texture after the cache (see
// msdf.AtlasManager.SetGenerator for the equivalent two-phase
// construction idiom in the teacher).
func WithUploader(u Uploader) Option {
	return func(c *config) { c.upload = u }
}
