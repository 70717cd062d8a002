package glyphatlas

import (
	"image"
	"math"

	"golang.org/x/image/math/fixed"
)

// Request describes a single glyph a caller wants drawn in the coming
// frame. FontID and GlyphID are opaque identifiers interpreted by the
// font collaborator; glyphatlas never looks inside them.
type Request struct {
	// FontID identifies the font face this glyph belongs to.
	FontID uint64

	// GlyphID is the glyph index within that font.
	GlyphID uint16

	// ScaleX, ScaleY are the rasterization scale, in pixels per em or
	// an equivalent unit chosen by the caller. Both must be finite and
	// strictly positive.
	ScaleX, ScaleY float64

	// OffsetX, OffsetY are the sub-pixel positioning offset, in
	// [0, 1). Values outside that range are reduced modulo 1 before
	// fingerprinting, so (fontID, glyph, scale, 1.25) and
	// (fontID, glyph, scale, 0.25) fingerprint identically.
	OffsetX, OffsetY float64

	// Bounds is the integer pixel bounding box of the rasterization at
	// this scale and offset, relative to the glyph's own origin. It
	// must be non-negative in both dimensions.
	Bounds image.Rectangle
}

// Validate reports whether the request is well-formed: finite,
// strictly positive scale, and a non-negative bounding box. It does
// not consult tolerances or atlas size.
func (r Request) Validate() error {
	if !isFinitePositive(r.ScaleX) || !isFinitePositive(r.ScaleY) {
		return ErrInvalidTolerance
	}
	if r.Bounds.Dx() < 0 || r.Bounds.Dy() < 0 {
		return ErrInvalidDimensions
	}
	return nil
}

func isFinitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

// width and height of the rasterization this request asks for.
func (r Request) width() int  { return r.Bounds.Dx() }
func (r Request) height() int { return r.Bounds.Dy() }

// FixedOffset returns the sub-pixel positioning offset as a 26.6
// fixed-point point, the representation font rasterizers in this
// ecosystem expect (see golang.org/x/image/font's hinting and
// gogpu-gg's text/rasterize.go, which carries glyph origins in the
// same format). The coordinates are reduced modulo 1 first, same as
// fingerprint's quantizeOffset: a coverage rasterizer only needs the
// fractional sub-pixel position, since the integer pixel position is
// applied by the caller when it places the returned rectangle. Every
// rasterization dispatched by Cache.Commit calls this to derive the
// offset it passes to the Rasterizer collaborator, so an offset that
// differs only by a whole pixel (e.g. 1.25 vs 0.25) always rasterizes
// identical coverage.
func (r Request) FixedOffset() fixed.Point26_6 {
	fx := r.OffsetX - math.Floor(r.OffsetX)
	fy := r.OffsetY - math.Floor(r.OffsetY)
	return fixed.Point26_6{
		X: fixed.Int26_6(math.Round(fx * 64)),
		Y: fixed.Int26_6(math.Round(fy * 64)),
	}
}
