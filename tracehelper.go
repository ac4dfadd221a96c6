// tracehelper.go: inverse-trace cache keyed by atom ID
//
// The trace helper inverts the atom traces once per atom instead of once per
// crossing: tD[e] holds the IDs of the cached atoms whose trace does NOT
// contain indicator e. Keying by ID instead of position keeps the cache
// valid across reorderings and removals in the atomization slice, which is
// why the atomization must stay sorted by ID while the helper is live.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

// TraceHelper caches the inverse traces of an atomization.
type TraceHelper struct {
	maxTrace Segment   // the full indicator universe [0, Nt)
	tD       []Segment // per indicator, cached atom IDs missing it
	atomIDs  Segment   // IDs currently covered by the cache
	consts   *CS
	nextID   uint32
}

// NewTraceHelper creates a cache over the given indicator slot domain.
func NewTraceHelper(constants *CS, indicatorsNum int, gsm *SegmentManager) *TraceHelper {
	th := &TraceHelper{
		tD:     make([]Segment, indicatorsNum),
		consts: constants,
	}
	FillRange(&th.maxTrace, 0, indicatorsNum, gsm)
	if th.maxTrace.Count() != indicatorsNum {
		panic(NewErrContractViolation("NewTraceHelper", "incorrect number of indicators"))
	}
	return th
}

// Release returns every cached segment to the manager.
func (th *TraceHelper) Release(gsm *SegmentManager) {
	for k := range th.tD {
		gsm.Return(&th.tD[k])
	}
	gsm.Return(&th.atomIDs)
	gsm.Return(&th.maxTrace)
}

// NextID returns the next atom ID the helper will assign.
func (th *TraceHelper) NextID() uint32 { return th.nextID }

// Update merges new atoms into the cache and returns their IDs.
//
// With complete true, lrr must be nil and the returned set covers every atom
// in the atomization, which then replaces the cached ID set. Otherwise lrr
// indexes the atoms whose IDs are merged into the cache. Only atoms not yet
// cached have their inverse traces scanned into tD. The atomization is
// sorted by ID first if it is found unsorted.
func (th *TraceHelper) Update(atomization *AtomizationS, lrr Segment, complete bool, logger Logger, gsm *SegmentManager) Segment {
	if !atomization.checkSorted(logger, "at TraceHelper update") {
		atomization.SortByID()
	}

	var ids Segment
	if complete {
		if lrr != nil {
			panic(NewErrContractViolation("TraceHelper.Update", "lrr must be nil on a complete update"))
		}
		for k := range atomization.Atoms {
			AddItem(&ids, int(atomization.Atoms[k].ID), gsm)
		}
	} else {
		var reader SegmentReader
		reader.Set(lrr)
		for reader.NextItem() {
			AddItem(&ids, int(atomization.Atoms[reader.CurrentItem()].ID), gsm)
		}
	}

	var newAtoms Segment
	SubtractTo(&newAtoms, ids, th.atomIDs, gsm)

	if complete {
		CloneTo(&th.atomIDs, ids, gsm)
	} else {
		Union(&th.atomIDs, ids, gsm)
	}

	for k := range atomization.Atoms {
		id := int(atomization.Atoms[k].ID)
		if !newAtoms.Contains(id) {
			continue
		}
		var out Segment
		SubtractTo(&out, th.maxTrace, atomization.Atoms[k].Trace, gsm)

		var readerOut SegmentReader
		readerOut.Set(out)
		for readerOut.NextItem() {
			AddItem(&th.tD[readerOut.CurrentItem()], id, gsm)
		}
		gsm.Return(&out)
	}
	gsm.Return(&newAtoms)

	return ids
}
