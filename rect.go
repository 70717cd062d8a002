package glyphatlas

import "image"

// UVRect is a glyph's inner rectangle normalized to the atlas's [0,1]^2
// texture coordinate space. Components are inclusive of the inner
// rectangle and exclusive of padding, matching msdf.Region's U0/V0/U1/V1
// fields in the teacher.
type UVRect struct {
	U0, V0, U1, V1 float32
}

// paddedSize returns the outer (allocator-reserved) width and height
// for an inner glyph of size w x h, given the cache's padding and
// 4x4-alignment configuration.
//
// Open question resolution (spec.md §9): padding is added first, then
// the padded sum is rounded up to the next 4-pixel multiple when
// align4x4 is enabled. A 1px-padded 10x12 glyph under align_4x4 thus
// reserves a 12x16 outer cell. This is one of the two tolerance-safe
// choices the spec leaves open; see DESIGN.md for the rationale.
func paddedSize(w, h, margin int, align4x4 bool) (pw, ph int) {
	pw, ph = w+2*margin, h+2*margin
	if align4x4 {
		pw = roundUp4(pw)
		ph = roundUp4(ph)
	}
	return pw, ph
}

func roundUp4(v int) int {
	return (v + 3) &^ 3
}

// innerFromOuter returns the inner rectangle sampled by the renderer,
// given the outer (padded) rectangle placed at (x,y) and the
// original, unpadded glyph size.
func innerFromOuter(x, y, w, h, margin int) image.Rectangle {
	return image.Rect(x+margin, y+margin, x+margin+w, y+margin+h)
}

// uvFromInner normalizes an inner rectangle to [0,1]^2 given the
// atlas's pixel dimensions.
func uvFromInner(inner image.Rectangle, atlasW, atlasH int) UVRect {
	return UVRect{
		U0: float32(inner.Min.X) / float32(atlasW),
		V0: float32(inner.Min.Y) / float32(atlasH),
		U1: float32(inner.Max.X) / float32(atlasW),
		V1: float32(inner.Max.Y) / float32(atlasH),
	}
}
