// union_model.go: timestamp-driven partition of the union model
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

// UnionModelClock stamps atom entrances and duple updates for the union
// model. Stamps only need to be monotone and comparable, which the cached
// time provider delivers without a syscall per atom.
type UnionModelClock struct {
	tp TimeProvider
}

// NewUnionModelClock creates a clock over the given provider; nil selects
// the cached system time.
func NewUnionModelClock(tp TimeProvider) *UnionModelClock {
	if tp == nil {
		tp = &cachedTimeProvider{}
	}
	return &UnionModelClock{tp: tp}
}

// Now returns the current stamp in nanoseconds.
func (c *UnionModelClock) Now() int64 {
	return c.tp.Now()
}

// UpdateUnionModelWithSetOfPduples partitions the union model's atoms into
// keep, deleted and excluded index sets against a batch of duples sorted by
// update time descending.
//
// An atom only walks the duples it is older than (its entrance is not greater
// than the duple's last update); the first such duple it intersects on L
// while missing H decides: deletion for a firm duple, exclusion for a
// hypothesis. Atoms surviving the walk are kept.
//
// The scan is striped over cfg.UnionStripes lanes writing disjoint word
// bitmaps that are merged sequentially at the end, so the result does not
// depend on the worker count. The returned segments are owned by the caller.
func UpdateUnionModelWithSetOfPduples(unionModel *Atomization, duples *Duples,
	unionUpdateEntrance []int64, lastUnionUpdate []int64,
	cfg *Config, gsm *SegmentManager) (keep, deleted, excluded Segment) {

	stripes := cfg.UnionStripes
	loadSize := unionModel.Len()/stripes + 1
	loadWords := loadSize/64 + 1

	keepBits := make([][]uint64, stripes)
	deletedBits := make([][]uint64, stripes)
	excludedBits := make([][]uint64, stripes)

	parallelFor(cfg.Workers, stripes, func(start, end int) {
		for t := start; t < end; t++ {
			keepBits[t] = make([]uint64, loadWords)
			deletedBits[t] = make([]uint64, loadWords)
			excludedBits[t] = make([]uint64, loadWords)

			for ld := 0; ld < loadSize; ld++ {
				atIdx := ld*stripes + t
				if atIdx >= unionModel.Len() {
					continue
				}

				take := true
				atomUCS := unionModel.Atoms[atIdx].UCS

				for relIdx := 0; relIdx < duples.Len(); relIdx++ {
					// Duples are sorted by update time. Once the atom is
					// newer than a duple it is newer than all that follow.
					if unionUpdateEntrance[atIdx] > lastUnionUpdate[relIdx] {
						break
					}
					if atomUCS.IsDisjoint(duples.L[relIdx]) {
						continue
					}
					if atomUCS.IsDisjoint(duples.H[relIdx]) {
						take = false
						if !duples.Hyp[relIdx] {
							deletedBits[t][ld/64] |= uint64(1) << (ld % 64)
						} else {
							excludedBits[t][ld/64] |= uint64(1) << (ld % 64)
						}
						break
					}
				}
				if take {
					keepBits[t][ld/64] |= uint64(1) << (ld % 64)
				}
			}
		}
	})

	var writerA, writerB, writerC segmentWriter
	writerA.set(&keep, gsm)
	writerB.set(&deleted, gsm)
	writerC.set(&excluded, gsm)
	for t := 0; t < stripes; t++ {
		for ld := 0; ld < loadSize; ld++ {
			atIdx := ld*stripes + t
			if atIdx >= unionModel.Len() {
				continue
			}
			if keepBits[t][ld/64]>>(ld%64)&1 == 1 {
				writerA.addItem(atIdx)
			}
			if deletedBits[t][ld/64]>>(ld%64)&1 == 1 {
				writerB.addItem(atIdx)
			}
			if excludedBits[t][ld/64]>>(ld%64)&1 == 1 {
				writerC.addItem(atIdx)
			}
		}
	}

	return keep, deleted, excluded
}
