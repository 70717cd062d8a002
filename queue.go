package glyphatlas

// queuedGlyph is a deduplicated entry in the per-frame queue: the
// fingerprint key plus the size captured from the first request that
// produced it.
type queuedGlyph struct {
	key  Key
	req  Request // first request seen for this key; used for fit sizing
	seen bool    // set when appended to order; byKey, not this flag, prevents double-append
}

// queue stages the glyphs a caller wants drawn in the coming frame. It
// deduplicates by fingerprint key: the first Enqueue for a given key
// captures its rectangle size, further identical requests are merged.
// The queue is cleared when a commit succeeds (a failed commit leaves
// it as it was) or by an explicit Reset, following the
// same reset-on-transaction-boundary shape as the teacher's
// ShelfAllocator.Reset()/RectAllocator.Reset().
type queue struct {
	scaleTolerance    float64
	positionTolerance float64

	byKey map[Key]int // key -> index into order
	order []queuedGlyph
}

func newQueue(scaleTolerance, positionTolerance float64) *queue {
	return &queue{
		scaleTolerance:    scaleTolerance,
		positionTolerance: positionTolerance,
		byKey:             make(map[Key]int, 64),
	}
}

// Enqueue stages a glyph request for the coming frame. Requests that
// fingerprint to an already-queued key are merged (the original
// request's size wins).
func (q *queue) Enqueue(r Request) Key {
	k := fingerprint(r, q.scaleTolerance, q.positionTolerance)
	if _, ok := q.byKey[k]; ok {
		return k
	}
	q.byKey[k] = len(q.order)
	q.order = append(q.order, queuedGlyph{key: k, req: r, seen: true})
	return k
}

// Len reports the number of distinct keys currently queued.
func (q *queue) Len() int { return len(q.order) }

// Reset clears the queue, ready for the next frame's Enqueue calls.
func (q *queue) Reset() {
	clear(q.byKey)
	q.order = q.order[:0]
}

// setTolerances updates the quantization tolerances used by future
// Enqueue calls. Used by Rebuild.
func (q *queue) setTolerances(scaleTolerance, positionTolerance float64) {
	q.scaleTolerance = scaleTolerance
	q.positionTolerance = positionTolerance
}
