// segment_test.go: unit tests for the compressed bit-set container
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"math/rand"
	"testing"
)

// segOf builds a segment holding the given items.
func segOf(gsm *SegmentManager, items ...int) Segment {
	var s Segment
	for _, it := range items {
		AddItem(&s, it, gsm)
	}
	return s
}

// intItems returns the decoded elements as ints.
func intItems(s Segment) []int {
	raw := s.Items()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// expectPanic runs fn and checks the recovered error with match.
func expectPanic(t *testing.T, match func(error) bool, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic, got none")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected error panic, got %v", r)
		}
		if !match(err) {
			t.Errorf("unexpected panic error: %v", err)
		}
	}()
	fn()
}

func TestSegment_AddRemoveContains(t *testing.T) {
	gsm := NewSegmentManager()
	var s Segment

	if !AddItem(&s, 37, gsm) {
		t.Error("adding 37 to empty set should change it")
	}
	if !AddItem(&s, 200, gsm) {
		t.Error("adding 200 should change the set")
	}
	if AddItem(&s, 37, gsm) {
		t.Error("re-adding 37 should not change the set")
	}

	if !RemoveItem(&s, 37, gsm) {
		t.Error("removing present 37 should change the set")
	}
	if s.Contains(37) {
		t.Error("37 should be gone")
	}
	if !s.Contains(200) {
		t.Error("200 should remain")
	}
	if got := s.Count(); got != 1 {
		t.Errorf("expected cardinality 1, got %d", got)
	}

	gsm.Return(&s)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestSegment_EmptySetSemantics(t *testing.T) {
	gsm := NewSegmentManager()
	var s Segment

	if s.Contains(0) {
		t.Error("empty set contains nothing")
	}
	if s.Count() != 0 {
		t.Error("empty set has cardinality 0")
	}
	if RemoveItem(&s, 5, gsm) {
		t.Error("removing from empty set changes nothing")
	}

	// shrink to empty collapses the slot to nil
	AddItem(&s, 9, gsm)
	if !RemoveItem(&s, 9, gsm) {
		t.Error("removing the only element should report a change")
	}
	if s != nil {
		t.Error("empty result must collapse to nil")
	}
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestSegment_UnionIntersectSubtract(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 1, 5, 10, 200, 2000)
	b := segOf(gsm, 5, 11, 200, 2001)

	var union1, union2, inter, diff Segment
	UnionTo(&union1, a, b, gsm)
	UnionTo(&union2, b, a, gsm)
	IntersectTo(&inter, a, b, gsm)
	SubtractTo(&diff, a, b, gsm)

	if !equalInts(intItems(union1), []int{1, 5, 10, 11, 200, 2000, 2001}) {
		t.Errorf("union mismatch: %v", intItems(union1))
	}
	if !union1.Equal(union2) {
		t.Error("union must be commutative")
	}
	if !equalInts(intItems(inter), []int{5, 200}) {
		t.Errorf("intersection mismatch: %v", intItems(inter))
	}
	if !equalInts(intItems(diff), []int{1, 10, 2000}) {
		t.Errorf("difference mismatch: %v", intItems(diff))
	}

	for _, s := range []*Segment{&a, &b, &union1, &union2, &inter, &diff} {
		gsm.Return(s)
	}
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestSegment_UnionAssociative(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 0, 63, 64)
	b := segOf(gsm, 64, 500)
	c := segOf(gsm, 1, 501, 10000)

	var ab, abc1, bc, abc2 Segment
	UnionTo(&ab, a, b, gsm)
	UnionTo(&abc1, ab, c, gsm)
	UnionTo(&bc, b, c, gsm)
	UnionTo(&abc2, a, bc, gsm)

	if !abc1.Equal(abc2) {
		t.Errorf("(a∪b)∪c != a∪(b∪c): %v vs %v", intItems(abc1), intItems(abc2))
	}

	for _, s := range []*Segment{&a, &b, &c, &ab, &abc1, &bc, &abc2} {
		gsm.Return(s)
	}
}

func TestSegment_MutatingReturnValues(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 1, 2, 3)
	b := segOf(gsm, 2, 3)
	c := segOf(gsm, 100)

	if Union(&a, b, gsm) {
		t.Error("union with a subset must not report growth")
	}
	if !Union(&a, c, gsm) {
		t.Error("union with a disjoint set must report growth")
	}
	if !Intersect(&a, b, gsm) {
		t.Error("intersecting away elements must report shrink")
	}
	if !a.Equal(b) {
		t.Errorf("expected %v, got %v", intItems(b), intItems(a))
	}
	if Intersect(&a, b, gsm) {
		t.Error("intersecting with a superset must not report shrink")
	}
	if Subtract(&a, c, gsm) {
		t.Error("subtracting a disjoint set must not report shrink")
	}
	if !Subtract(&a, b, gsm) {
		t.Error("subtracting everything must report shrink")
	}
	if a != nil {
		t.Error("empty difference must collapse to nil")
	}

	gsm.Return(&b)
	gsm.Return(&c)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestSegment_IntersectEmptyResult(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 1, 2)
	b := segOf(gsm, 70, 71)

	if !Intersect(&a, b, gsm) {
		t.Error("disjoint intersection must report a change")
	}
	if a != nil {
		t.Error("empty intersection must collapse to nil")
	}

	// intersect with nil empties the destination
	c := segOf(gsm, 4)
	if !Intersect(&c, nil, gsm) {
		t.Error("intersect with the empty set must report a change")
	}
	if c != nil {
		t.Error("intersect with nil must collapse to nil")
	}

	gsm.Return(&b)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestSegment_DisjointSubset(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 1, 5, 900)
	b := segOf(gsm, 5)
	c := segOf(gsm, 2, 6)

	if a.IsDisjoint(b) {
		t.Error("a and b share 5")
	}
	if !a.IsDisjoint(c) {
		t.Error("a and c are disjoint")
	}
	if !b.SubsetOf(a) {
		t.Error("{5} is a subset of a")
	}
	if a.SubsetOf(b) {
		t.Error("a is not a subset of {5}")
	}
	if !Segment(nil).SubsetOf(a) {
		t.Error("the empty set is a subset of everything")
	}
	if a.SubsetOf(nil) {
		t.Error("a non-empty set is not a subset of the empty set")
	}
	if !a.IsDisjoint(nil) || !Segment(nil).IsDisjoint(a) {
		t.Error("the empty set is disjoint from everything")
	}

	gsm.Return(&a)
	gsm.Return(&b)
	gsm.Return(&c)
}

func TestSegment_CompareEqual(t *testing.T) {
	gsm := NewSegmentManager()
	a := segOf(gsm, 3, 64, 1000)

	// Same content reached through a different construction order: the
	// bodies may differ in capacity and token shape, the sets compare equal.
	b := segOf(gsm, 1000, 64, 3, 500)
	RemoveItem(&b, 500, gsm)

	if !a.Equal(b) {
		t.Errorf("equal sets must compare equal: %v vs %v", intItems(a), intItems(b))
	}
	if a.Compare(b) != 0 || b.Compare(a) != 0 {
		t.Error("compare of equal sets must be 0")
	}
	if !a.Equal(a) {
		t.Error("equal must be reflexive")
	}

	c := segOf(gsm, 3, 64)
	if a.Compare(c) == 0 {
		t.Error("different sets must not compare equal")
	}
	if a.Compare(c)*c.Compare(a) != -1 {
		t.Error("compare must be antisymmetric")
	}
	if Segment(nil).Compare(nil) != 0 {
		t.Error("nil equals nil")
	}
	if a.Compare(nil) != -1 || Segment(nil).Compare(a) != 1 {
		t.Error("nil sorts after non-nil")
	}

	gsm.Return(&a)
	gsm.Return(&b)
	gsm.Return(&c)
}

func TestSegment_SparseOffsets(t *testing.T) {
	gsm := NewSegmentManager()

	// Offsets spanning several empty-run counters (16383-byte spans).
	items := []int{0, 7, 8 * 20000, 8*20000 + 3, 8 * 300000}
	s := segOf(gsm, items...)

	got := intItems(s)
	expected := []int{0, 7, 160000, 160003, 2400000}
	if !equalInts(got, expected) {
		t.Errorf("sparse decode mismatch: got %v want %v", got, expected)
	}
	for _, it := range items {
		if !s.Contains(it) {
			t.Errorf("missing item %d", it)
		}
	}
	if s.Contains(8*20000 + 1) {
		t.Error("unexpected member")
	}

	gsm.Return(&s)
}

func TestSegment_OutOfOrderInsertion(t *testing.T) {
	gsm := NewSegmentManager()
	var s Segment

	// Forces the general merge path: inserts behind the last byte offset.
	for _, it := range []int{5000, 3, 700, 699, 5001, 0} {
		if !AddItem(&s, it, gsm) {
			t.Errorf("adding fresh item %d should change the set", it)
		}
	}
	if !equalInts(intItems(s), []int{0, 3, 699, 700, 5000, 5001}) {
		t.Errorf("decode mismatch: %v", intItems(s))
	}

	if !RemoveItem(&s, 700, gsm) {
		t.Error("remove of present middle item")
	}
	if !equalInts(intItems(s), []int{0, 3, 699, 5000, 5001}) {
		t.Errorf("decode mismatch after remove: %v", intItems(s))
	}

	gsm.Return(&s)
}

func TestSegment_DenseRunAcrossSequenceLimit(t *testing.T) {
	gsm := NewSegmentManager()
	var s Segment

	// A literal run longer than one 16383-byte sequence: every byte 0xFF.
	const bits = 8 * (sequenceMaxCapacity + 10)
	FillRange(&s, 0, bits, gsm)

	if got := s.Count(); got != bits {
		t.Fatalf("expected %d items, got %d", bits, got)
	}
	if !s.Contains(0) || !s.Contains(bits-1) || s.Contains(bits) {
		t.Error("membership at the run borders")
	}

	// Spot-check the iterator is exactly the identity on [0, bits).
	var reader SegmentReader
	reader.Set(s)
	for want := 0; want < bits; want++ {
		if !reader.NextItem() {
			t.Fatalf("iterator ended early at %d", want)
		}
		if reader.CurrentItem() != want {
			t.Fatalf("iterator produced %d, want %d", reader.CurrentItem(), want)
		}
	}
	if reader.NextItem() {
		t.Error("iterator must end after the run")
	}

	gsm.Return(&s)
}

func TestSegment_CountUpto(t *testing.T) {
	gsm := NewSegmentManager()
	s := segOf(gsm, 2, 4, 6, 8)

	if got := s.CountUpto(2); got != 2 {
		t.Errorf("CountUpto(2) = %d", got)
	}
	if got := s.CountUpto(10); got != 4 {
		t.Errorf("CountUpto(10) = %d", got)
	}
	if got := Segment(nil).CountUpto(2); got != 0 {
		t.Errorf("CountUpto on empty = %d", got)
	}

	gsm.Return(&s)
}

func TestSegment_Choose(t *testing.T) {
	gsm := NewSegmentManager()
	s := segOf(gsm, 7, 70, 700, 7000)
	rng := rand.New(rand.NewSource(99))

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		it := s.Choose(rng)
		if !s.Contains(it) {
			t.Fatalf("choose produced non-member %d", it)
		}
		seen[it] = true
	}
	if len(seen) != 4 {
		t.Errorf("200 draws over 4 elements should see all of them, saw %d", len(seen))
	}

	buffer := make([]int, 4)
	for i := 0; i < 50; i++ {
		it := chooseWithBuffer(s, 4, buffer, rng)
		if !s.Contains(it) {
			t.Fatalf("buffered choose produced non-member %d", it)
		}
	}

	gsm.Return(&s)
}

func TestSegment_CloneTo(t *testing.T) {
	gsm := NewSegmentManager()
	src := segOf(gsm, 1, 100, 10000)

	var dst Segment
	CloneTo(&dst, src, gsm)
	if !dst.Equal(src) {
		t.Error("clone must decode to the same set")
	}

	// Mutating the clone leaves the source alone.
	AddItem(&dst, 5, gsm)
	if src.Contains(5) {
		t.Error("clone must not alias the source")
	}

	// Cloning from nil leaves the destination untouched.
	CloneTo(&dst, nil, gsm)
	if dst == nil {
		t.Error("clone from nil must not clear the destination")
	}

	gsm.Return(&src)
	gsm.Return(&dst)
}

func TestSegment_FillRange(t *testing.T) {
	gsm := NewSegmentManager()
	var s Segment
	FillRange(&s, 10, 200, gsm)

	if got := s.Count(); got != 190 {
		t.Errorf("expected 190 items, got %d", got)
	}
	if s.Contains(9) || !s.Contains(10) || !s.Contains(199) || s.Contains(200) {
		t.Error("range borders wrong")
	}

	gsm.Return(&s)
}

func TestSegment_CorruptedTokenStream(t *testing.T) {
	gsm := NewSegmentManager()

	// A literal-run counter of zero is illegal.
	s := gsm.Get(headerSize + 3)
	s.setSize(headerSize + 2)
	writeLiteralCounter(s, headerSize, 0)

	expectPanic(t, IsCorrupted, func() {
		var reader SegmentReader
		reader.Set(s)
		reader.NextItem()
	})

	// A literal run extending past the body is illegal.
	s2 := gsm.Get(headerSize + 3)
	s2.setSize(headerSize + 3)
	writeLiteralCounter(s2, headerSize, 5)
	s2[headerSize+2] = 1

	expectPanic(t, IsCorrupted, func() {
		var reader SegmentReader
		reader.Set(s2)
		for reader.NextItem() {
		}
	})

	gsm.Return(&s)
	gsm.Return(&s2)
}
