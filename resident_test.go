package glyphatlas

import "testing"

func keyN(n uint64) Key { return Key{FontID: n} }

func TestResidentTable_InsertAndGet(t *testing.T) {
	tbl := newResidentTable()
	e := &entry{key: keyN(1)}
	tbl.insert(e)

	got, ok := tbl.get(keyN(1))
	if !ok || got != e {
		t.Fatalf("expected to find inserted entry")
	}
	if tbl.len() != 1 {
		t.Fatalf("expected len 1, got %d", tbl.len())
	}
}

func TestResidentTable_EvictLRUSkipsLocked(t *testing.T) {
	tbl := newResidentTable()
	a := &entry{key: keyN(1), locked: true}
	b := &entry{key: keyN(2)}
	c := &entry{key: keyN(3)}
	tbl.insert(a)
	tbl.insert(b)
	tbl.insert(c)
	// LRU order (head to tail): c, b, a

	victim := tbl.evictLRU()
	if victim == nil || victim.key != keyN(2) {
		t.Fatalf("expected to skip the locked tail a and evict the next-oldest unlocked entry b, got %+v", victim)
	}
}

func TestResidentTable_EvictLRUReturnsNilWhenAllLocked(t *testing.T) {
	tbl := newResidentTable()
	tbl.insert(&entry{key: keyN(1), locked: true})
	tbl.insert(&entry{key: keyN(2), locked: true})

	if v := tbl.evictLRU(); v != nil {
		t.Fatalf("expected nil when every entry is locked, got %+v", v)
	}
}

func TestResidentTable_TouchMovesToFrontAndLocks(t *testing.T) {
	tbl := newResidentTable()
	a := &entry{key: keyN(1)}
	b := &entry{key: keyN(2)}
	tbl.insert(a) // head
	tbl.insert(b) // head, a is now second

	tbl.touch(a, 5)
	if tbl.head != a {
		t.Fatalf("expected touched entry to move to front")
	}
	if !a.locked {
		t.Fatalf("expected touch to lock the entry")
	}
	if a.lastUsedFrame != 5 {
		t.Fatalf("expected lastUsedFrame to be updated")
	}
}

func TestResidentTable_ClearLocksUnlocksAll(t *testing.T) {
	tbl := newResidentTable()
	tbl.insert(&entry{key: keyN(1), locked: true})
	tbl.insert(&entry{key: keyN(2), locked: true})

	tbl.clearLocks()

	if tbl.countLocked() != 0 {
		t.Fatalf("expected all entries unlocked, got %d still locked", tbl.countLocked())
	}
}

func TestResidentTable_RemoveUnlinksFromList(t *testing.T) {
	tbl := newResidentTable()
	a := &entry{key: keyN(1)}
	b := &entry{key: keyN(2)}
	c := &entry{key: keyN(3)}
	tbl.insert(a)
	tbl.insert(b)
	tbl.insert(c)

	tbl.remove(b)

	if tbl.head != c || tbl.head.next != a || tbl.tail != a {
		t.Fatalf("expected b removed from the middle of the list, list corrupted")
	}
}

func TestResidentTable_Reset(t *testing.T) {
	tbl := newResidentTable()
	tbl.insert(&entry{key: keyN(1)})
	tbl.reset()

	if tbl.len() != 0 || tbl.head != nil || tbl.tail != nil {
		t.Fatalf("expected reset to clear the table entirely")
	}
}

func TestResidentTable_CloneIsIndependent(t *testing.T) {
	tbl := newResidentTable()
	tbl.insert(&entry{key: keyN(1)})
	tbl.insert(&entry{key: keyN(2)})

	clone := tbl.clone()
	clone.evictLRU()

	if tbl.len() != 2 {
		t.Fatalf("expected original table untouched by clone mutation, got len %d", tbl.len())
	}
	if clone.len() != 1 {
		t.Fatalf("expected clone mutation to apply to the clone, got len %d", clone.len())
	}
}

func TestResidentTable_ClonePreservesLRUOrder(t *testing.T) {
	tbl := newResidentTable()
	tbl.insert(&entry{key: keyN(1)})
	tbl.insert(&entry{key: keyN(2)})
	tbl.insert(&entry{key: keyN(3)})
	// head to tail: 3, 2, 1

	clone := tbl.clone()

	order := []uint64{}
	for e := clone.head; e != nil; e = e.next {
		order = append(order, e.key.FontID)
	}
	want := []uint64{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected clone LRU order %v, got %v", want, order)
		}
	}
}
