package glyphatlas

import "image"

// entry is a single resident glyph: a fingerprint key backed by a
// rectangle in the atlas. entries are threaded into an intrusive
// doubly-linked list for LRU ordering, the same shape as the
// teacher's glyphEntry/glyphShard in text/glyph_cache.go, but
// single-shard: the cache is single-writer (spec.md §5), so the
// sharding the teacher uses to reduce lock contention under concurrent
// access has nothing to protect against here (see DESIGN.md).
type entry struct {
	key   Key
	row   rowID
	inner image.Rectangle // renderer-sampled rectangle, no padding

	lastUsedFrame uint64
	locked        bool // touched by the in-progress frame's queue

	prev, next *entry
}

// residentTable is the key-addressable store of resident entries plus
// the LRU order over them, combined the way the teacher combines its
// map and intrusive list in a single glyphShard.
type residentTable struct {
	byKey map[Key]*entry
	head  *entry // most recently used
	tail  *entry // least recently used
}

func newResidentTable() *residentTable {
	return &residentTable{byKey: make(map[Key]*entry, 256)}
}

func (t *residentTable) get(k Key) (*entry, bool) {
	e, ok := t.byKey[k]
	return e, ok
}

func (t *residentTable) len() int { return len(t.byKey) }

// insert adds a brand-new entry at the most-recently-used position.
func (t *residentTable) insert(e *entry) {
	t.byKey[e.key] = e
	t.addFront(e)
}

// touch updates an entry's last-used frame and moves it to the front
// (most recently used) of the LRU order.
func (t *residentTable) touch(e *entry, frame uint64) {
	e.lastUsedFrame = frame
	e.locked = true
	t.moveFront(e)
}

// evictLRU pops the least-recently-used unlocked entry and removes it
// from both the table and the LRU list. Returns nil if every
// remaining entry is locked.
func (t *residentTable) evictLRU() *entry {
	for e := t.tail; e != nil; e = e.prev {
		if e.locked {
			continue
		}
		t.remove(e)
		delete(t.byKey, e.key)
		return e
	}
	return nil
}

// countLocked reports how many resident entries are currently locked
// (touched by the in-progress frame), used to report eviction failure
// context in NoRoomForWholeQueueError.
func (t *residentTable) countLocked() int {
	n := 0
	for e := t.head; e != nil; e = e.next {
		if e.locked {
			n++
		}
	}
	return n
}

// clearLocks unlocks every entry. Called at the start of a commit: the
// previous frame's locks are re-derived fresh from this frame's queue
// via touch, per spec.md §4.6 step 7 ("unlock nothing explicitly").
func (t *residentTable) clearLocks() {
	for e := t.head; e != nil; e = e.next {
		e.locked = false
	}
}

func (t *residentTable) addFront(e *entry) {
	e.prev = nil
	e.next = t.head
	if t.head != nil {
		t.head.prev = e
	}
	t.head = e
	if t.tail == nil {
		t.tail = e
	}
}

func (t *residentTable) moveFront(e *entry) {
	if e == t.head {
		return
	}
	t.unlink(e)
	t.addFront(e)
}

func (t *residentTable) remove(e *entry) {
	t.unlink(e)
}

func (t *residentTable) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// reset drops every resident entry, used by Rebuild when tolerances
// change and existing keys can no longer be trusted.
func (t *residentTable) reset() {
	t.byKey = make(map[Key]*entry, 256)
	t.head, t.tail = nil, nil
}

// clone returns an independent deep copy of the table: new entry
// values with the same LRU order, so the commit engine can stage a
// fit pass and discard it without disturbing the live cache if the
// commit ultimately fails (spec.md §7's all-or-nothing propagation).
func (t *residentTable) clone() *residentTable {
	out := newResidentTable()
	for e := t.tail; e != nil; e = e.prev {
		// walk oldest-to-newest so addFront reproduces the same order
		clone := &entry{
			key:           e.key,
			row:           e.row,
			inner:         e.inner,
			lastUsedFrame: e.lastUsedFrame,
			locked:        e.locked,
		}
		out.byKey[clone.key] = clone
		out.addFront(clone)
	}
	return out
}
