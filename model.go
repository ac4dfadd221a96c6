// model.go: constant-set and atom records of the algebraic model
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"math/rand"
	"sort"
)

// CS is an immutable snapshot of a finite constant set: the segment plus a
// materialized sorted array for O(log n) lookup by value.
type CS struct {
	Constants Segment
	Array     []uint32
}

// NewCS materializes a constant set from a segment. The CS borrows the
// segment; ownership stays with the caller.
func NewCS(constants Segment) *CS {
	return &CS{Constants: constants, Array: constants.Items()}
}

// Len returns the number of constants.
func (cs *CS) Len() int { return len(cs.Array) }

// IndexOf returns the position of value in the sorted array, or Len() when
// the value is absent.
func (cs *CS) IndexOf(value uint32) int {
	return arrayIndex(cs.Array, value)
}

// arrayIndex performs binary search of value in a sorted array and returns
// its index, or len(array) when absent. Dense identity prefixes short-circuit.
func arrayIndex(array []uint32, value uint32) int {
	length := len(array)
	if length == 0 {
		return 0
	}
	if int(value) < length && array[value] == value {
		return int(value)
	}

	l, r := 0, length-1
	for l <= r {
		m := (l + r) / 2
		switch {
		case array[m] < value:
			l = m + 1
		case array[m] > value:
			r = m - 1
		default:
			return m
		}
	}
	return length
}

// Tracer holds the indicator poles: Indicators are positive filter sets
// (compatibility is inclusion), AtomIndicators are negative ones
// (compatibility is disjointness). Indicator slot k for an atom indicator
// is len(Indicators)+k.
type Tracer struct {
	Indicators     []Segment
	AtomIndicators []Segment
}

// TotalIndicators returns the size of the indicator slot domain.
func (t *Tracer) TotalIndicators() int {
	return len(t.Indicators) + len(t.AtomIndicators)
}

// Space is the collection of terms whose traces the engine computes:
// parallel slices of constant sets and their free/full trace slots.
// Trace slots must be nil before the corresponding computation fills them.
type Space struct {
	CSets      []Segment
	FreeTraces []Segment
	Traces     []Segment
}

// NewSpace creates a space over the given term constant sets with empty
// trace slots.
func NewSpace(csets []Segment) *Space {
	return &Space{
		CSets:      csets,
		FreeTraces: make([]Segment, len(csets)),
		Traces:     make([]Segment, len(csets)),
	}
}

// Len returns the number of space elements.
func (s *Space) Len() int { return len(s.CSets) }

// Release returns every trace slot to the manager. The constant sets stay
// with the caller.
func (s *Space) Release(gsm *SegmentManager) {
	for k := range s.FreeTraces {
		gsm.Return(&s.FreeTraces[k])
	}
	for k := range s.Traces {
		gsm.Return(&s.Traces[k])
	}
}

// Duples is a batch of (L, H) constraints. Hyp marks hypotheses, which are
// tolerated by the indicator selection when they carry no useful indicator
// and lead to exclusion instead of deletion in the union-model partition.
// CrossAll does not read Hyp; its doNotStore argument masks the result sets.
type Duples struct {
	L   []Segment
	H   []Segment
	Hyp []bool
}

// Len returns the number of duples.
func (d *Duples) Len() int { return len(d.L) }

// Atom is the immutable-flavor atom: a constant set and its trace slot,
// filled by TraceAll.
type Atom struct {
	UCS   Segment
	Trace Segment
}

// Atomization is the immutable-flavor atom collection used by the trace
// engine and the union-model update.
type Atomization struct {
	Atoms []Atom
}

// Len returns the number of atoms.
func (a *Atomization) Len() int { return len(a.Atoms) }

// AtomS is the mutable-flavor atom refined by the crossing core. ID is an
// identifier assigned while the trace-helper cache is active: CrossAll
// renumbers the atoms from 0 when it starts the cache, and new atoms take
// increasing IDs from there.
type AtomS struct {
	UCS   Segment
	Trace Segment
	Epoch uint32
	G     uint32
	Gen   uint32
	ID    uint32
}

// AtomizationS is the mutable-flavor atomization, kept sorted by ID
// ascending whenever the trace-helper cache is in use.
type AtomizationS struct {
	Atoms []AtomS
}

// Len returns the number of atoms.
func (a *AtomizationS) Len() int { return len(a.Atoms) }

// Release returns every atom's segments to the manager.
func (a *AtomizationS) Release(gsm *SegmentManager) {
	for k := range a.Atoms {
		gsm.Return(&a.Atoms[k].UCS)
		gsm.Return(&a.Atoms[k].Trace)
	}
	a.Atoms = a.Atoms[:0]
}

// SortByID sorts the atoms by ascending ID.
func (a *AtomizationS) SortByID() {
	sort.Slice(a.Atoms, func(i, j int) bool { return a.Atoms[i].ID < a.Atoms[j].ID })
}

// checkSorted reports whether atom IDs ascend strictly, warning through the
// logger when they do not.
func (a *AtomizationS) checkSorted(logger Logger, legend string) bool {
	var lastID uint32
	started := false
	for k := range a.Atoms {
		id := a.Atoms[k].ID
		if started && id <= lastID {
			logger.Warn("atomization not sorted", "at", legend, "before", lastID, "after", id)
			return false
		}
		lastID = id
		started = true
	}
	return true
}

// atomFromIDBinary finds an atom by ID in an ID-sorted atomization.
// A dense identity prefix short-circuits the search.
func (a *AtomizationS) atomFromIDBinary(id uint32) *AtomS {
	if len(a.Atoms) == 0 {
		return nil
	}
	if int(id) < len(a.Atoms) && a.Atoms[id].ID == id {
		return &a.Atoms[id]
	}

	l, r := 0, len(a.Atoms)-1
	for l <= r {
		m := (l + r) / 2
		switch {
		case a.Atoms[m].ID < id:
			l = m + 1
		case a.Atoms[m].ID > id:
			r = m - 1
		default:
			return &a.Atoms[m]
		}
	}
	panic(NewErrContractViolation("atomFromIDBinary", "atom ID not in atomization"))
}

// RemoveAtoms drops the atoms at the indices in toRemove, returning their
// segments to the manager and compacting the slice.
func (a *AtomizationS) RemoveAtoms(toRemove Segment, gsm *SegmentManager) {
	if toRemove == nil {
		return
	}
	var reader SegmentReader
	reader.Set(toRemove)

	kept := a.Atoms[:0]
	next := -1
	hasNext := reader.NextItem()
	if hasNext {
		next = reader.CurrentItem()
	}
	for idx := range a.Atoms {
		if hasNext && idx == next {
			gsm.Return(&a.Atoms[idx].UCS)
			gsm.Return(&a.Atoms[idx].Trace)
			hasNext = reader.NextItem()
			if hasNext {
				next = reader.CurrentItem()
			}
			continue
		}
		kept = append(kept, a.Atoms[idx])
	}
	a.Atoms = kept
}

// countSizeNotOne counts the atoms whose UCS holds more than one constant.
func (a *AtomizationS) countSizeNotOne() int {
	count := 0
	for k := range a.Atoms {
		if a.Atoms[k].UCS.CountUpto(2) > 1 {
			count++
		}
	}
	return count
}

// repeatedAtoms returns the indices of atoms whose UCS content already
// appeared at a lower index, detected through the masked segment set.
func (a *AtomizationS) repeatedAtoms(gsm *SegmentManager) Segment {
	set := NewSegmentSet(42)
	var repeated Segment
	for idx := range a.Atoms {
		ucs := a.Atoms[idx].UCS
		if !set.Contains(ucs) {
			set.Add(ucs)
		} else {
			AddItem(&repeated, idx, gsm)
		}
	}
	return repeated
}

// RemoveRepeatedAtoms drops every atom whose UCS duplicates an earlier one.
// Idempotent; the multiset of distinct UCS values is preserved.
func (a *AtomizationS) RemoveRepeatedAtoms(gsm *SegmentManager) {
	repeated := a.repeatedAtoms(gsm)
	a.RemoveAtoms(repeated, gsm)
	gsm.Return(&repeated)
}

// shuffleUint32 permutes array in place with the supplied source.
func shuffleUint32(array []uint32, rng *rand.Rand) {
	for i := len(array) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		array[i], array[j] = array[j], array[i]
	}
}
