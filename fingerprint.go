package glyphatlas

import (
	"hash/fnv"
	"math"
)

// Key is the fingerprint of a glyph request: the quantized identity
// that determines cache residency. Two requests that fingerprint to
// the same Key are treated as visually interchangeable within the
// cache's configured tolerances and share a single resident entry.
//
// Key is a small comparable struct so it can be used directly as a Go
// map key (the same shape as the teacher's OutlineCacheKey and
// msdf.GlyphKey: plain value types, no pointers, no hashing needed for
// equality).
type Key struct {
	FontID      uint64
	GlyphID     uint16
	ScaleBucket int32
	// OffsetBucket holds the quantized (x, y) sub-pixel offset bucket
	// indices, each in [0, 1/position_tolerance).
	OffsetBucket [2]int16
}

// Sum64 returns a fast, non-cryptographic hash of the key. It is never
// used for equality (Go struct comparison already gives that for
// free) — only for optional diagnostics such as shard-style debug
// dumps. FNV-1a matches the hash the teacher reaches for throughout
// its own caches (text/cache/shaping.go, cache/sharded.go).
func (k Key) Sum64() uint64 {
	h := fnv.New64a()
	var buf [8 + 2 + 4 + 2 + 2]byte
	putU64(buf[0:8], k.FontID)
	putU16(buf[8:10], k.GlyphID)
	putU32(buf[10:14], uint32(k.ScaleBucket))
	putU16(buf[14:16], uint16(k.OffsetBucket[0]))
	putU16(buf[16:18], uint16(k.OffsetBucket[1]))
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putU32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// fingerprint quantizes a request into a Key under the given
// tolerances. Quantization buckets are chosen so that within one
// bucket the error versus exact rasterization is bounded by the
// corresponding tolerance:
//
//   - Scale is bucketed on a logarithmic grid with ratio
//     (1 + scaleTolerance) between adjacent buckets, so the maximum
//     relative scale difference within a bucket is <= scaleTolerance.
//     X and Y scale are combined into one bucket index by quantizing
//     their geometric mean, since glyph caches in practice use
//     uniform or near-uniform scale and a single bucket keeps the key
//     small; non-uniform requests still merge correctly as long as
//     their X/Y ratio tracks within tolerance (see DESIGN.md).
//   - Sub-pixel offset is bucketed on a uniform grid with step
//     positionTolerance, after each coordinate is reduced modulo 1.0.
func fingerprint(r Request, scaleTolerance, positionTolerance float64) Key {
	scale := math.Sqrt(r.ScaleX * r.ScaleY)
	return Key{
		FontID:      r.FontID,
		GlyphID:     r.GlyphID,
		ScaleBucket: quantizeScale(scale, scaleTolerance),
		OffsetBucket: [2]int16{
			quantizeOffset(r.OffsetX, positionTolerance),
			quantizeOffset(r.OffsetY, positionTolerance),
		},
	}
}

// quantizeScale buckets a positive scale value onto a logarithmic
// grid where adjacent buckets differ by a factor of (1+tolerance).
func quantizeScale(scale, tolerance float64) int32 {
	if scale <= 0 {
		scale = math.SmallestNonzeroFloat64
	}
	ratio := math.Log1p(tolerance) // log(1+tolerance)
	if ratio <= 0 {
		ratio = math.SmallestNonzeroFloat64
	}
	bucket := math.Floor(math.Log(scale) / ratio)
	return int32(bucket)
}

// quantizeOffset reduces x modulo 1.0 into [0,1) and buckets it on a
// uniform grid of the given step.
func quantizeOffset(x, step float64) int16 {
	x -= math.Floor(x)
	if step <= 0 {
		step = math.SmallestNonzeroFloat64
	}
	bucket := math.Floor(x / step)
	return int16(bucket)
}
