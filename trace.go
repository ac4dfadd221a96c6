// trace.go: free and full trace computation for terms and atoms
//
// The trace of a term is the dual view the crossing core reasons on: the set
// of indicator slots every atom intersecting the term agrees on. Free traces
// ignore the atomization and only ask indicator compatibility:
// a positive indicator is compatible with a term it includes, an atom
// indicator with a term it is disjoint from.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

// FreeTraceOfTerm computes the free trace of a term under the tracer.
// The returned segment is owned by the caller.
func FreeTraceOfTerm(term Segment, tracer *Tracer, gsm *SegmentManager) Segment {
	var ret Segment
	var w segmentWriter
	w.set(&ret, gsm)

	for k := range tracer.Indicators {
		if term.SubsetOf(tracer.Indicators[k]) {
			w.addItem(k)
		}
	}

	shift := len(tracer.Indicators)
	for k := range tracer.AtomIndicators {
		if tracer.AtomIndicators[k].IsDisjoint(term) {
			w.addItem(k + shift)
		}
	}

	return ret
}

// FreeTraceAll fills the free-trace slot of every space element.
// Indicator iteration is tiled so one tile of indicator segments stays hot
// in cache while the space is walked in parallel; the free-trace slots must
// be nil on entry.
func FreeTraceAll(space *Space, tracer *Tracer, cfg *Config, gsm *SegmentManager) {
	tileSize := cfg.TileSize

	blocks := (len(tracer.Indicators) + tileSize - 1) / tileSize
	for b := 0; b < blocks; b++ {
		i := b * tileSize
		f := min(len(tracer.Indicators), (b+1)*tileSize)
		first := b == 0
		parallelFor(cfg.Workers, space.Len(), func(start, end int) {
			for el := start; el < end; el++ {
				cset := space.CSets[el]
				if first && space.FreeTraces[el] != nil {
					panic(NewErrContractViolation("FreeTraceAll", "free-trace slot not empty"))
				}
				var w segmentWriter
				w.set(&space.FreeTraces[el], gsm)
				for k := i; k < f; k++ {
					if cset.SubsetOf(tracer.Indicators[k]) {
						w.addItem(k)
					}
				}
			}
		})
	}

	shift := len(tracer.Indicators)
	blocks = (len(tracer.AtomIndicators) + tileSize - 1) / tileSize
	for b := 0; b < blocks; b++ {
		i := b * tileSize
		f := min(len(tracer.AtomIndicators), (b+1)*tileSize)
		parallelFor(cfg.Workers, space.Len(), func(start, end int) {
			for el := start; el < end; el++ {
				cset := space.CSets[el]
				var w segmentWriter
				w.set(&space.FreeTraces[el], gsm)
				for k := i; k < f; k++ {
					if tracer.AtomIndicators[k].IsDisjoint(cset) {
						w.addItem(k + shift)
					}
				}
			}
		})
	}
}

// freeTraceOfIsolatedConstant computes the free trace of the singleton term
// holding one constant.
func freeTraceOfIsolatedConstant(tracer *Tracer, constant int, gsm *SegmentManager) Segment {
	var term Segment
	AddItem(&term, constant, gsm)
	trace := FreeTraceOfTerm(term, tracer, gsm)
	gsm.Return(&term)
	return trace
}

// CalculateTraceOfAtom fills the atom's trace with the union over its
// constants of the singleton free traces. This is not the free trace of the
// UCS taken as one term: an atom is compatible with an indicator as soon as
// one of its constants is. The trace slot must be nil on entry.
func CalculateTraceOfAtom(tracer *Tracer, at *Atom, gsm *SegmentManager) {
	if at.Trace != nil {
		panic(NewErrContractViolation("CalculateTraceOfAtom", "caller must ensure atom trace is empty"))
	}

	var w segmentWriter
	w.set(&at.Trace, gsm)

	var reader SegmentReader
	reader.Set(at.UCS)
	for reader.NextItem() {
		constantTrace := freeTraceOfIsolatedConstant(tracer, reader.CurrentItem(), gsm)
		w.addSegment(constantTrace)
		gsm.Return(&constantTrace)
	}
}

// traceOfTerm computes the trace of a term under the atomization: the full
// indicator universe narrowed by the trace of every atom intersecting the
// term.
func traceOfTerm(term Segment, tracer *Tracer, atomization *Atomization, gsm *SegmentManager) Segment {
	var trace Segment
	var w segmentWriter
	w.set(&trace, gsm)

	numIndicators := tracer.TotalIndicators()
	for j := 0; j < numIndicators; j++ {
		w.addItem(j)
	}

	for k := range atomization.Atoms {
		if !atomization.Atoms[k].UCS.IsDisjoint(term) {
			w.intersectSegment(atomization.Atoms[k].Trace)
		}
	}

	return trace
}

// TraceAll fills every atom trace, then every space element's trace slot.
// Both passes run in parallel over disjoint indices; the trace slots must
// be nil on entry.
func TraceAll(space *Space, tracer *Tracer, atomization *Atomization, cfg *Config, gsm *SegmentManager) {
	parallelFor(cfg.Workers, atomization.Len(), func(start, end int) {
		for k := start; k < end; k++ {
			CalculateTraceOfAtom(tracer, &atomization.Atoms[k], gsm)
		}
	})

	parallelFor(cfg.Workers, space.Len(), func(start, end int) {
		for k := start; k < end; k++ {
			if space.Traces[k] != nil {
				panic(NewErrContractViolation("TraceAll", "trace slot not empty"))
			}
			space.Traces[k] = traceOfTerm(space.CSets[k], tracer, atomization, gsm)
		}
	})
}

// StoreTracesOfConstants computes the trace of every singleton constant term
// under the atomization, sharing one prebuilt full-indicator universe across
// constants. Returned segments are owned by the caller.
func StoreTracesOfConstants(constants []int, totalIndicators int, atomization *Atomization, cfg *Config, gsm *SegmentManager) []Segment {
	var allIndicators Segment
	FillRange(&allIndicators, 0, totalIndicators, gsm)

	traces := make([]Segment, len(constants))
	parallelFor(cfg.Workers, len(constants), func(start, end int) {
		for cIdx := start; cIdx < end; cIdx++ {
			var constant Segment
			AddItem(&constant, constants[cIdx], gsm)

			var w segmentWriter
			w.set(&traces[cIdx], gsm)
			w.cloneFrom(allIndicators)
			for k := range atomization.Atoms {
				if !atomization.Atoms[k].UCS.IsDisjoint(constant) {
					w.intersectSegment(atomization.Atoms[k].Trace)
				}
			}

			gsm.Return(&constant)
		}
	})
	gsm.Return(&allIndicators)
	return traces
}

// ConsiderPositiveDuples widens every positive indicator by the lower sides
// of the duples whose upper side it includes, looping round-robin until a
// whole pass adds nothing. The indicators are rewritten in place.
func ConsiderPositiveDuples(tracer *Tracer, duples *Duples, cfg *Config, gsm *SegmentManager) {
	duplesLen := duples.Len()
	if duplesLen == 0 {
		return
	}

	parallelFor(cfg.Workers, len(tracer.Indicators), func(start, endIdx int) {
		for i := start; i < endIdx; i++ {
			used := make([]bool, duplesLen)

			var w segmentWriter
			w.set(&tracer.Indicators[i], gsm)
			end := duplesLen
			for bpr := 0; bpr < end; bpr++ {
				pr := bpr % duplesLen
				if used[pr] {
					continue
				}
				if duples.H[pr].SubsetOf(tracer.Indicators[i]) {
					used[pr] = true
					if w.addSegment(duples.L[pr]) {
						end = bpr + duplesLen
					}
				}
			}
		}
	})
}

// CalculateLowerAtomicSegments unions, for each element, the lower atomic
// segments of the constants in its constant set. las is indexed by position
// in the sorted lasIdx array; constants outside lasIdx contribute nothing.
// Returned segments are owned by the caller.
func CalculateLowerAtomicSegments(elementCSets []Segment, las []Segment, lasIdx []uint32, cfg *Config, gsm *SegmentManager) []Segment {
	elementLas := make([]Segment, len(elementCSets))
	parallelFor(cfg.Workers, len(elementCSets), func(start, end int) {
		for e := start; e < end; e++ {
			var reader SegmentReader
			reader.Set(elementCSets[e])
			for reader.NextItem() {
				constant := uint32(reader.CurrentItem())
				constantIdx := arrayIndex(lasIdx, constant)
				if constantIdx < len(las) {
					Union(&elementLas[e], las[constantIdx], gsm)
				}
			}
		}
	})
	return elementLas
}
