// segment_ops.go: package-level set algebra over segment slots
//
// Every helper here writes through a *Segment slot: the slot's value may be
// rewritten, replaced, or collapsed to nil (the empty set) by the operation.
// Bodies displaced from a slot are returned to the manager.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

// AddItem inserts item into the set in *dst. Returns true iff the set changed.
func AddItem(dst *Segment, item int, gsm *SegmentManager) bool {
	var w segmentWriter
	w.set(dst, gsm)
	return w.addItem(item)
}

// RemoveItem removes item from the set in *dst. Returns true iff the set
// changed; the slot becomes nil when the set empties.
func RemoveItem(dst *Segment, item int, gsm *SegmentManager) bool {
	var w segmentWriter
	w.set(dst, gsm)
	return w.removeItem(item)
}

// Union grows *dst by the elements of src. Returns true iff *dst grew.
func Union(dst *Segment, src Segment, gsm *SegmentManager) bool {
	var w segmentWriter
	w.set(dst, gsm)
	return w.addSegment(src)
}

// UnionTo replaces *dst with a ∪ b.
func UnionTo(dst *Segment, a, b Segment, gsm *SegmentManager) {
	var w segmentWriter
	w.set(dst, gsm)
	w.cloneFrom(a)
	w.addSegment(b)
}

// Intersect shrinks *dst to its intersection with src. Returns true iff
// *dst shrank; the slot becomes nil when the intersection is empty.
func Intersect(dst *Segment, src Segment, gsm *SegmentManager) bool {
	var w segmentWriter
	w.set(dst, gsm)
	return w.intersectSegment(src)
}

// IntersectTo replaces *dst with a ∩ b.
func IntersectTo(dst *Segment, a, b Segment, gsm *SegmentManager) {
	var w segmentWriter
	w.set(dst, gsm)
	w.cloneFrom(a)
	w.intersectSegment(b)
}

// Subtract removes the elements of src from *dst. Returns true iff *dst
// shrank; the slot becomes nil when the difference is empty.
func Subtract(dst *Segment, src Segment, gsm *SegmentManager) bool {
	var w segmentWriter
	w.set(dst, gsm)
	return w.subtractSegment(src)
}

// SubtractTo replaces *dst with a \ b.
func SubtractTo(dst *Segment, a, b Segment, gsm *SegmentManager) {
	var w segmentWriter
	w.set(dst, gsm)
	w.cloneFrom(a)
	w.subtractSegment(b)
}

// CloneTo replaces *dst with a structurally compressed copy of src.
// A nil src leaves *dst untouched.
func CloneTo(dst *Segment, src Segment, gsm *SegmentManager) {
	var w segmentWriter
	w.set(dst, gsm)
	w.cloneFrom(src)
}

// FillRange adds the contiguous items [beg, end) to *dst.
func FillRange(dst *Segment, beg, end int, gsm *SegmentManager) {
	var w segmentWriter
	w.set(dst, gsm)
	for idx := beg; idx < end; idx++ {
		w.addItem(idx)
	}
}
