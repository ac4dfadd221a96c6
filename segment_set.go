// segment_set.go: content-addressed set of segments for duplicate detection
//
// A 64-way trie keyed by the content-masked bytes of a segment: the size
// field and the body participate, the capacity field does not, so two
// bodies that decode to the same set with different slack compare and hash
// equal. Collisions convert a leaf slot into a child trie whose hash seed
// is perturbed by depth.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

const segmentSetFanout = 64

// SegmentSet detects equal segment values across a collection of atoms.
// Keys are held by reference; the set must not outlive the segments added
// to it. Not safe for concurrent use.
type SegmentSet struct {
	root segmentSetNode
}

type segmentSetNode struct {
	seed  uint64
	child [segmentSetFanout]*segmentSetNode
	leaf  [segmentSetFanout]Segment
}

// NewSegmentSet creates an empty set with the given hash seed.
func NewSegmentSet(seed uint64) *SegmentSet {
	return &SegmentSet{root: segmentSetNode{seed: seed}}
}

// maskedSum hashes the size field and body of seg, skipping the capacity
// bytes, which may differ between bodies holding the same set.
func maskedSum(seg Segment, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(seg[headerSizeOffset:headerCapacityOffset])
	_, _ = d.Write(seg[headerLastByteOffset:seg.size()])
	return d.Sum64()
}

// maskedEqual compares two segments byte-wise ignoring the capacity field.
func maskedEqual(a, b Segment) bool {
	if a.size() != b.size() {
		return false
	}
	return bytes.Equal(a[headerLastByteOffset:a.size()], b[headerLastByteOffset:b.size()])
}

// Contains reports whether a segment with the same masked content is in the set.
func (s *SegmentSet) Contains(seg Segment) bool {
	if seg == nil {
		return false
	}
	node := &s.root
	for {
		slot := maskedSum(seg, node.seed) % segmentSetFanout
		if child := node.child[slot]; child != nil {
			node = child
			continue
		}
		leaf := node.leaf[slot]
		return leaf != nil && maskedEqual(leaf, seg)
	}
}

// Add inserts a segment. Adding a segment whose masked content is already
// present is a no-op.
func (s *SegmentSet) Add(seg Segment) {
	if seg == nil {
		return
	}
	node := &s.root
	for {
		slot := maskedSum(seg, node.seed) % segmentSetFanout
		if child := node.child[slot]; child != nil {
			node = child
			continue
		}
		current := node.leaf[slot]
		if current == nil {
			node.leaf[slot] = seg
			return
		}
		if maskedEqual(current, seg) {
			return
		}
		// Collision: push the resident leaf one level down.
		child := &segmentSetNode{seed: node.seed + 1}
		child.leaf[maskedSum(current, child.seed)%segmentSetFanout] = current
		node.leaf[slot] = nil
		node.child[slot] = child
		node = child
	}
}
