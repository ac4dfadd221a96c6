// cross.go: positive-duple enforcement over the atomization
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

// atomUnion builds the product atom of a discriminant atom and a right-hand
// atom. The generation count is asymmetric on purpose: the left operand's
// count advances, so G bounds the crossing depth of the discriminant chain,
// not of either operand interchangeably.
func atomUnion(a, b *AtomS, epoch uint32, gsm *SegmentManager) AtomS {
	var atom AtomS
	UnionTo(&atom.UCS, a.UCS, b.UCS, gsm)
	UnionTo(&atom.Trace, a.Trace, b.Trace, gsm)

	atom.Gen = max(a.Gen, b.Gen)
	atom.G = max(a.G+1, b.G)
	atom.Epoch = epoch

	return atom
}

// LowerOrEqual reports whether the duple (L, H) is already satisfied by the
// atomization: every atom intersecting L also intersects H.
func LowerOrEqual(l, h Segment, atomization *AtomizationS) bool {
	for k := range atomization.Atoms {
		if !atomization.Atoms[k].UCS.IsDisjoint(l) {
			if atomization.Atoms[k].UCS.IsDisjoint(h) {
				return false
			}
		}
	}
	return true
}

// atomizationProduct crosses every discriminant atom against right-hand
// atoms until the discriminant atom's missing indicators are covered.
// discriminant and lrr hold atom positions in the atomization.
//
// With a live trace helper the inverse traces come from the cache: a lazily
// materialized tD entry first compacts the cached set to the currently
// cached IDs (written back, pruning stale IDs) and then narrows it to the
// right-hand IDs without writing that second intersection back. Without the
// helper, tD is built up front from the lrr atoms and indexed by position.
func atomizationProduct(atomization *AtomizationS, discriminant, lrr Segment, th *TraceHelper,
	totalIndicators int, epoch uint32, cfg *Config, gsm *SegmentManager) *AtomizationS {

	tD := make([]Segment, totalIndicators)

	var maxTrace Segment
	var setHIDs Segment
	if th != nil {
		maxTrace = th.maxTrace
		setHIDs = th.Update(atomization, lrr, false, cfg.Logger, gsm)
	} else {
		FillRange(&maxTrace, 0, totalIndicators, gsm)
		var out Segment
		var reader, readerOut SegmentReader
		reader.Set(lrr)
		for reader.NextItem() {
			atRIdx := reader.CurrentItem()
			SubtractTo(&out, maxTrace, atomization.Atoms[atRIdx].Trace, gsm)
			readerOut.Set(out)
			for readerOut.NextItem() {
				AddItem(&tD[readerOut.CurrentItem()], atRIdx, gsm)
			}
		}
		gsm.Return(&out)
	}

	ret := &AtomizationS{}

	var setLIDs Segment
	var out Segment
	var reader SegmentReader
	reader.Set(discriminant)
	for reader.NextItem() {
		atDisc := &atomization.Atoms[reader.CurrentItem()]
		if th != nil {
			AddItem(&setLIDs, int(atDisc.ID), gsm)
		}

		picked := false
		SubtractTo(&out, maxTrace, atDisc.Trace, gsm)
		for out != nil {
			etaIdx := out.Choose(cfg.Rand)
			if th != nil && tD[etaIdx] == nil {
				Intersect(&th.tD[etaIdx], th.atomIDs, gsm)
				IntersectTo(&tD[etaIdx], th.tD[etaIdx], setHIDs, gsm)
			}
			tdEta := tD[etaIdx]

			if tdEta == nil {
				if cfg.TraceErrorPolicy == TraceErrorStrict {
					panic(NewErrTraceError("atomizationProduct", etaIdx))
				}
				cfg.Logger.Warn("atomization product: trace error B", "indicator", etaIdx)
				RemoveItem(&out, etaIdx, gsm)
				continue
			}

			atRID := tdEta.Choose(cfg.Rand)
			var atR *AtomS
			if th != nil {
				atR = atomization.atomFromIDBinary(uint32(atRID))
			} else {
				atR = &atomization.Atoms[atRID]
			}
			Intersect(&out, atR.Trace, gsm)

			atom := atomUnion(atDisc, atR, epoch, gsm)
			if th != nil {
				atom.ID = th.nextID
				th.nextID++
			}
			ret.Atoms = append(ret.Atoms, atom)
			picked = true
		}

		if !picked {
			atR := &atomization.Atoms[lrr.Choose(cfg.Rand)]
			atom := atomUnion(atDisc, atR, epoch, gsm)
			if th != nil {
				atom.ID = th.nextID
				th.nextID++
			}
			ret.Atoms = append(ret.Atoms, atom)
		}
	}
	if out != nil {
		panic(NewErrContractViolation("atomizationProduct", "residual indicator set not empty"))
	}
	if th != nil {
		gsm.Return(&setHIDs)
		Subtract(&th.atomIDs, setLIDs, gsm)
		gsm.Return(&setLIDs)
	} else {
		gsm.Return(&maxTrace)
	}

	for k := range tD {
		gsm.Return(&tD[k])
	}

	return ret
}

// Cross replaces the atoms witnessing a violation of (L, H) with their
// product against the atoms intersecting H. The discriminant must be
// non-empty: callers only invoke Cross on unsatisfied duples.
func Cross(atomization *AtomizationS, l, h Segment, th *TraceHelper, totalIndicators int,
	epoch uint32, cfg *Config, gsm *SegmentManager) {

	if th != nil {
		if !atomization.checkSorted(cfg.Logger, "at cross") {
			atomization.SortByID()
		}
	}

	var discriminant Segment
	var lrr Segment
	for atIdx := range atomization.Atoms {
		if atomization.Atoms[atIdx].UCS.IsDisjoint(h) {
			if !atomization.Atoms[atIdx].UCS.IsDisjoint(l) {
				AddItem(&discriminant, atIdx, gsm)
			}
		} else {
			AddItem(&lrr, atIdx, gsm)
		}
	}

	if discriminant == nil {
		panic(NewErrContractViolation("Cross", "empty discriminant"))
	}

	product := atomizationProduct(atomization, discriminant, lrr, th, totalIndicators, epoch, cfg, gsm)

	atomization.RemoveAtoms(discriminant, gsm)
	atomization.Atoms = append(atomization.Atoms, product.Atoms...)

	cfg.MetricsCollector.RecordCross(len(product.Atoms))

	gsm.Return(&discriminant)
	gsm.Return(&lrr)
}

// enforce advances the epoch and crosses one unsatisfied duple.
func enforce(atomization *AtomizationS, l, h Segment, th *TraceHelper, totalIndicators int,
	epoch *uint32, cfg *Config, gsm *SegmentManager) {

	*epoch++

	Cross(atomization, l, h, th, totalIndicators, *epoch, cfg, gsm)

	if cfg.RemoveRepetitions {
		atomization.RemoveRepeatedAtoms(gsm)
	}
	if cfg.CalculateRedundancy {
		panic(NewErrNotImplemented("redundancy calculation"))
	}
}

// CrossAllResult is the bookkeeping returned by CrossAll.
type CrossAllResult struct {
	// Crossed and NotCrossed hold the duple indices that were enforced and
	// that were already satisfied, minus the do-not-store ones.
	Crossed    Segment
	NotCrossed Segment

	// LastJ is the running store counter at the last enforced duple.
	LastJ int

	// Epoch is the enforcement counter after the run.
	Epoch uint32

	// Size is the final atomization length.
	Size int
}

// CrossAll enforces the positive duples in the given order (no shuffling:
// the driver owns the ordering), reducing the atomization by traces whenever
// it grows past the simplify threshold and once more at the end.
//
// storedTraceOfConstant is indexed like constants and must be computed after
// the traces were last closed; it is read, never modified. doNotStore may be
// nil. epoch continues from the supplied value. The result sets are owned by
// the caller.
func CrossAll(atomization *AtomizationS, constants *CS, positiveDuples *Duples,
	storedTraceOfConstant []Segment, totalIndicators int, doNotStore []bool,
	epoch uint32, cfg *Config, gsm *SegmentManager) CrossAllResult {

	var th *TraceHelper
	if cfg.UseTraceHelper {
		th = NewTraceHelper(constants, totalIndicators, gsm)
		for atIdx := range atomization.Atoms {
			atomization.Atoms[atIdx].ID = uint32(atIdx)
		}
		th.nextID = uint32(atomization.Len())

		if !atomization.checkSorted(cfg.Logger, "at CrossAll start") {
			atomization.SortByID()
		}
	}

	var lastNumberOfAtoms int
	if cfg.IgnoreSingleConstUCS {
		lastNumberOfAtoms = atomization.countSizeNotOne()
	} else {
		lastNumberOfAtoms = atomization.Len()
	}

	result := CrossAllResult{Epoch: epoch}

	j := 0
	for relIdx := 0; relIdx < positiveDuples.Len(); relIdx++ {
		l := positiveDuples.L[relIdx]
		h := positiveDuples.H[relIdx]
		store := doNotStore == nil || !doNotStore[relIdx]

		if LowerOrEqual(l, h, atomization) {
			if store {
				AddItem(&result.NotCrossed, relIdx, gsm)
				j++
			}
			continue
		}

		enforce(atomization, l, h, th, totalIndicators, &result.Epoch, cfg, gsm)
		if store {
			result.LastJ = j
			AddItem(&result.Crossed, relIdx, gsm)
			j++
		}

		var modelGettingLarger bool
		if cfg.IgnoreSingleConstUCS {
			modelGettingLarger = float64(atomization.countSizeNotOne()) > cfg.SimplifyThreshold*float64(lastNumberOfAtoms)
		} else {
			modelGettingLarger = float64(atomization.Len()) > cfg.SimplifyThreshold*float64(lastNumberOfAtoms)
		}
		if modelGettingLarger {
			ReductionByTraces(atomization, th, constants, storedTraceOfConstant, totalIndicators, cfg, gsm)
			if cfg.IgnoreSingleConstUCS {
				lastNumberOfAtoms = atomization.countSizeNotOne()
				if cfg.Verbose {
					cfg.Logger.Info("crossing progress",
						"percent", (relIdx*100)/positiveDuples.Len(),
						"atoms", atomization.Len(),
						"multi_constant_atoms", lastNumberOfAtoms)
				}
			} else {
				lastNumberOfAtoms = atomization.Len()
				if cfg.Verbose {
					cfg.Logger.Info("crossing progress", "percent", (relIdx*100)/positiveDuples.Len())
				}
			}
		}
	}

	ReductionByTraces(atomization, th, constants, storedTraceOfConstant, totalIndicators, cfg, gsm)

	if th != nil {
		th.Release(gsm)
	}

	if cfg.Verbose {
		cfg.Logger.Info("crossing finished", "atoms", atomization.Len())
	}

	result.Size = atomization.Len()
	return result
}
