// reduce.go: trace-based reduction of atoms and indicators
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0

package harmonia

// ReductionByTraces selects a minimal subset of atoms that preserves, for
// every constant, the stored trace of the constant: each indicator outside
// the stored trace keeps at least one selected atom witnessing it. Every
// non-selected atom is removed. Constants are walked in a shuffled order
// drawn from the configured random source; a live trace helper is refreshed
// to the surviving IDs afterwards.
//
// storedTraceOfConstant is computed between closing traces and enforcing
// positive duples; it is up to date here and stays unmodified throughout
// CrossAll.
func ReductionByTraces(atomization *AtomizationS, th *TraceHelper, constants *CS,
	storedTraceOfConstant []Segment, totalIndicators int, cfg *Config, gsm *SegmentManager) {

	before := atomization.Len()

	var maxTrace Segment
	FillRange(&maxTrace, 0, totalIndicators, gsm)

	// Invert the traces by atom position and collect, per constant, the
	// atoms whose UCS contains it.
	tD := make([]Segment, totalIndicators)
	las := make([]Segment, constants.Len())
	{
		var inverseTrace Segment
		var atomUCS Segment
		var reader SegmentReader
		for atIdx := range atomization.Atoms {
			SubtractTo(&inverseTrace, maxTrace, atomization.Atoms[atIdx].Trace, gsm)
			reader.Set(inverseTrace)
			for reader.NextItem() {
				AddItem(&tD[reader.CurrentItem()], atIdx, gsm)
			}

			IntersectTo(&atomUCS, atomization.Atoms[atIdx].UCS, constants.Constants, gsm)
			reader.Set(atomUCS)
			for reader.NextItem() {
				cIdx := constants.IndexOf(uint32(reader.CurrentItem()))
				AddItem(&las[cIdx], atIdx, gsm)
			}
		}
		gsm.Return(&inverseTrace)
		gsm.Return(&atomUCS)
	}

	bufferSize := max(totalIndicators, atomization.Len())
	buffer := make([]int, bufferSize)

	shuffledConstants := make([]uint32, constants.Len())
	for k := range shuffledConstants {
		shuffledConstants[k] = uint32(k)
	}
	shuffleUint32(shuffledConstants, cfg.Rand)

	var selected Segment
	var out Segment
	for _, cIdx := range shuffledConstants {
		SubtractTo(&out, maxTrace, storedTraceOfConstant[cIdx], gsm)

		// leave at least one atom per constant
		if out == nil {
			if las[cIdx].IsDisjoint(selected) && las[cIdx] != nil {
				atIdx := chooseWithBuffer(las[cIdx], atomization.Len(), buffer, cfg.Rand)
				AddItem(&selected, atIdx, gsm)
			}
		}

		for out != nil {
			etaIdx := chooseWithBuffer(out, totalIndicators, buffer, cfg.Rand)

			var candidates Segment
			IntersectTo(&candidates, tD[etaIdx], las[cIdx], gsm)

			if candidates == nil {
				if cfg.TraceErrorPolicy == TraceErrorStrict {
					panic(NewErrTraceError("ReductionByTraces", etaIdx))
				}
				cfg.Logger.Warn("reduction by traces: trace error B", "indicator", etaIdx)
				RemoveItem(&out, etaIdx, gsm)
				continue
			}

			var aux Segment
			IntersectTo(&aux, candidates, selected, gsm)
			var atIdx int
			if aux == nil {
				atIdx = chooseWithBuffer(candidates, atomization.Len(), buffer, cfg.Rand)
				AddItem(&selected, atIdx, gsm)
			} else {
				atIdx = chooseWithBuffer(aux, atomization.Len(), buffer, cfg.Rand)
			}
			Intersect(&out, atomization.Atoms[atIdx].Trace, gsm)

			gsm.Return(&aux)
			gsm.Return(&candidates)
		}
	}
	gsm.Return(&out)
	gsm.Return(&maxTrace)

	if cfg.Verbose {
		cfg.Logger.Info("trace simplification", "from", before, "to", selected.Count())
	}

	var atomsToRemove Segment
	FillRange(&atomsToRemove, 0, atomization.Len(), gsm)
	Subtract(&atomsToRemove, selected, gsm)
	atomization.RemoveAtoms(atomsToRemove, gsm)
	gsm.Return(&atomsToRemove)

	gsm.Return(&selected)
	for k := range tD {
		gsm.Return(&tD[k])
	}
	for c := range las {
		gsm.Return(&las[c])
	}

	cfg.MetricsCollector.RecordReduction(before, atomization.Len())

	if th != nil {
		ids := th.Update(atomization, nil, true, cfg.Logger, gsm)
		gsm.Return(&ids)
	}
}

// SelectAllUsefulIndicators computes, for every duple, the useful indicators
// tDisc = freeTrace(H) \ freeTrace(L) and unions them into take, remembering
// which duples contributed. A non-hypothetical duple with no useful
// indicator makes the input inconsistent and halts. The returned sets are
// owned by the caller.
func SelectAllUsefulIndicators(duples *Duples, lFreeTrace, hFreeTrace []Segment,
	cfg *Config, gsm *SegmentManager) (take Segment, duplesKeep Segment) {

	duplesLen := duples.Len()
	tDisc := make([]Segment, duplesLen)

	parallelFor(cfg.Workers, duplesLen, func(start, end int) {
		for k := start; k < end; k++ {
			SubtractTo(&tDisc[k], hFreeTrace[k], lFreeTrace[k], gsm)
		}
	})

	for nr := 0; nr < duplesLen; nr++ {
		if tDisc[nr] != nil {
			Union(&take, tDisc[nr], gsm)
			AddItem(&duplesKeep, nr, gsm)
		} else if !duples.Hyp[nr] {
			panic(NewErrInconsistentInput("SelectAllUsefulIndicators", nr))
		}
		gsm.Return(&tDisc[nr])
	}
	return take, duplesKeep
}

// ReduceIndicators greedily discards indicators while every non-hypothetical
// duple keeps at least one useful indicator. Per pass the duple order is
// shuffled; a duple whose remaining useful set is a singleton forces that
// indicator into singles, a duple disjoint from the running take contributes
// one chosen representative. Passes repeat until the kept indicator count
// stops shrinking. Returns the discarded indicator set and the forced
// singles, both owned by the caller.
func ReduceIndicators(duplesLen, numIndicators int, lFreeTrace, hFreeTrace []Segment,
	cfg *Config, gsm *SegmentManager) (discardedIndicators Segment, singles Segment) {

	idxArr := make([]uint32, duplesLen)
	for k := range idxArr {
		idxArr[k] = uint32(k)
	}

	var indexes Segment
	FillRange(&indexes, 0, duplesLen, gsm)

	tDisc := make([]Segment, duplesLen)
	parallelFor(cfg.Workers, duplesLen, func(start, end int) {
		for k := start; k < end; k++ {
			SubtractTo(&tDisc[k], hFreeTrace[k], lFreeTrace[k], gsm)
		}
	})

	uniqueIndicatorsLen := numIndicators
	indexesLen := duplesLen

	var duplesOut Segment
	var reader SegmentReader
	for {
		uniqueIndicatorsLenPrev := uniqueIndicatorsLen

		shuffleUint32(idxArr[:indexesLen], cfg.Rand)

		var take Segment
		for k := 0; k < indexesLen; k++ {
			nr := idxArr[k]
			Subtract(&tDisc[nr], discardedIndicators, gsm)

			if tDisc[nr] == nil {
				panic(NewErrInconsistentInput("ReduceIndicators", int(nr)))
			}

			if tDisc[nr].IsDisjoint(singles) {
				reader.Set(tDisc[nr])
				reader.NextItem()
				ind := reader.CurrentItem()
				if !reader.NextItem() {
					// tDisc has exactly one element
					AddItem(&singles, ind, gsm)
					AddItem(&duplesOut, int(nr), gsm)
				} else if tDisc[nr].IsDisjoint(take) {
					AddItem(&take, tDisc[nr].Choose(cfg.Rand), gsm)
				}
			} else {
				AddItem(&duplesOut, int(nr), gsm)
			}
		}

		Union(&take, singles, gsm)

		uniqueIndicatorsLen = take.Count()
		if cfg.Verbose {
			cfg.Logger.Info("indicator reduction pass", "unique_indicators", uniqueIndicatorsLen)
		}

		Subtract(&indexes, duplesOut, gsm)
		indexesLen = 0
		reader.Set(indexes)
		for reader.NextItem() {
			idxArr[indexesLen] = uint32(reader.CurrentItem())
			indexesLen++
		}

		FillRange(&discardedIndicators, 0, numIndicators, gsm)
		Subtract(&discardedIndicators, take, gsm)

		gsm.Return(&take)

		if !(uniqueIndicatorsLen < uniqueIndicatorsLenPrev && indexesLen > 0) {
			break
		}
	}

	for k := range tDisc {
		gsm.Return(&tDisc[k])
	}
	gsm.Return(&duplesOut)
	gsm.Return(&indexes)

	return discardedIndicators, singles
}
