// segment_set_test.go: tests for the content-addressed segment set
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "testing"

func TestSegmentSet_MaskedEquality(t *testing.T) {
	gsm := NewSegmentManager()

	// Same content, different construction histories: the bodies can carry
	// different capacity fields but must collide in the set.
	a := segOf(gsm, 4, 80, 3000)
	b := segOf(gsm, 3000, 4, 80, 5000)
	RemoveItem(&b, 5000, gsm)

	if !a.Equal(b) {
		t.Fatal("test setup: contents must be equal")
	}

	set := NewSegmentSet(42)
	set.Add(a)
	if !set.Contains(a) {
		t.Error("a segment just added must be found")
	}
	if !set.Contains(b) {
		t.Error("an equal-content body must be found regardless of capacity")
	}

	c := segOf(gsm, 4, 80)
	if set.Contains(c) {
		t.Error("different content must not be found")
	}

	gsm.Return(&a)
	gsm.Return(&b)
	gsm.Return(&c)
}

func TestSegmentSet_CollisionDepth(t *testing.T) {
	gsm := NewSegmentManager()
	set := NewSegmentSet(1)

	// Enough distinct keys to force collisions into sub-tries.
	segments := make([]Segment, 300)
	for i := range segments {
		segments[i] = segOf(gsm, i, 1000+2*i)
		set.Add(segments[i])
	}

	for i := range segments {
		if !set.Contains(segments[i]) {
			t.Fatalf("segment %d lost after collisions", i)
		}
	}

	probe := segOf(gsm, 1, 999)
	if set.Contains(probe) {
		t.Error("absent key found")
	}

	gsm.Return(&probe)
	for i := range segments {
		gsm.Return(&segments[i])
	}
}

func TestSegmentSet_AddIdempotent(t *testing.T) {
	gsm := NewSegmentManager()
	set := NewSegmentSet(7)

	a := segOf(gsm, 1, 2, 3)
	b := segOf(gsm, 1, 2, 3)
	set.Add(a)
	set.Add(b) // same masked content, distinct body

	if !set.Contains(a) || !set.Contains(b) {
		t.Error("content must remain present")
	}

	gsm.Return(&a)
	gsm.Return(&b)
}

func TestRemoveRepeatedAtoms(t *testing.T) {
	gsm := NewSegmentManager()

	atoms := []AtomS{
		{UCS: segOf(gsm, 1)},
		{UCS: segOf(gsm, 2)},
		{UCS: segOf(gsm, 1)},
		{UCS: segOf(gsm, 3)},
		{UCS: segOf(gsm, 2)},
	}
	m := &AtomizationS{Atoms: atoms}

	m.RemoveRepeatedAtoms(gsm)
	if m.Len() != 3 {
		t.Fatalf("expected 3 distinct atoms, got %d", m.Len())
	}

	// Idempotent: a second pass removes nothing.
	m.RemoveRepeatedAtoms(gsm)
	if m.Len() != 3 {
		t.Errorf("second pass removed atoms: %d", m.Len())
	}

	got := map[int]bool{}
	for k := range m.Atoms {
		got[intItems(m.Atoms[k].UCS)[0]] = true
	}
	for _, want := range []int{1, 2, 3} {
		if !got[want] {
			t.Errorf("distinct UCS {%d} lost", want)
		}
	}

	m.Release(gsm)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}
