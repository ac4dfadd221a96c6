// reduce_test.go: tests for trace-based atom and indicator reduction
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"sync"
	"testing"
)

// warnCapture records warnings emitted through the Logger interface.
type warnCapture struct {
	NoOpLogger
	mu    sync.Mutex
	warns []string
}

func (l *warnCapture) Warn(msg string, keyvals ...interface{}) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *warnCapture) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestReductionByTraces_NoOpWhenMinimal(t *testing.T) {
	gsm := NewSegmentManager()
	cfg := DefaultConfig()

	// One atom per constant, each the only witness of its constant's
	// missing indicator: nothing can be removed.
	m := &AtomizationS{Atoms: []AtomS{
		atomSOf(gsm, []int{0}, []int{0}),
		atomSOf(gsm, []int{1}, []int{1}),
	}}
	constants := NewCS(segOf(gsm, 0, 1))
	stored := []Segment{segOf(gsm, 0), segOf(gsm, 1)}

	ReductionByTraces(m, nil, constants, stored, 2, &cfg, gsm)

	if m.Len() != 2 {
		t.Fatalf("reduction must be a no-op, kept %d atoms", m.Len())
	}

	gsm.Return(&constants.Constants)
	for k := range stored {
		gsm.Return(&stored[k])
	}
	m.Release(gsm)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestReductionByTraces_RemovesRedundant(t *testing.T) {
	gsm := NewSegmentManager()
	cfg := DefaultConfig()

	// Atom 2 duplicates atom 0's coverage of constant 0 and is redundant.
	m := &AtomizationS{Atoms: []AtomS{
		atomSOf(gsm, []int{0, 1}, []int{0}),
		atomSOf(gsm, []int{1}, []int{1}),
		atomSOf(gsm, []int{0}, []int{0}),
	}}
	constants := NewCS(segOf(gsm, 0, 1))
	stored := []Segment{segOf(gsm, 0), segOf(gsm, 0)}

	ReductionByTraces(m, nil, constants, stored, 2, &cfg, gsm)

	// Constant 0: out={1}, witnesses are atoms with trace missing 1 among
	// las(0)={0,2}; constant 1: out={1} with witnesses {0} in las(1)={0,1}.
	// Atom 0 covers both; the selection keeps at most one extra witness.
	if m.Len() > 2 {
		t.Errorf("expected at most 2 atoms after reduction, got %d", m.Len())
	}
	// Every constant keeps a witness for its missing indicator.
	for c := 0; c < 2; c++ {
		var cset Segment
		AddItem(&cset, c, gsm)
		witness := false
		for k := range m.Atoms {
			if !m.Atoms[k].UCS.IsDisjoint(cset) && !m.Atoms[k].Trace.Contains(1) {
				witness = true
			}
		}
		if !witness {
			t.Errorf("constant %d lost its witness for indicator 1", c)
		}
		gsm.Return(&cset)
	}

	gsm.Return(&constants.Constants)
	for k := range stored {
		gsm.Return(&stored[k])
	}
	m.Release(gsm)
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}

func TestReductionByTraces_TraceErrorPolicies(t *testing.T) {
	buildInconsistent := func(gsm *SegmentManager) (*AtomizationS, *CS, []Segment) {
		// The stored trace claims indicator 1 is missing for constant 0,
		// but every atom holding constant 0 carries indicator 1.
		m := &AtomizationS{Atoms: []AtomS{
			atomSOf(gsm, []int{0}, []int{0, 1}),
		}}
		constants := NewCS(segOf(gsm, 0))
		stored := []Segment{segOf(gsm, 0)}
		return m, constants, stored
	}

	t.Run("warn", func(t *testing.T) {
		gsm := NewSegmentManager()
		logger := &warnCapture{}
		cfg := DefaultConfig()
		cfg.Logger = logger
		cfg.TraceErrorPolicy = TraceErrorWarn

		m, constants, stored := buildInconsistent(gsm)
		ReductionByTraces(m, nil, constants, stored, 2, &cfg, gsm)

		if logger.count() == 0 {
			t.Error("warn policy must log the trace error")
		}

		gsm.Return(&constants.Constants)
		gsm.Return(&stored[0])
		m.Release(gsm)
		if !gsm.AllReturned() {
			t.Errorf("leaked %d segments", gsm.CountOut())
		}
	})

	t.Run("strict", func(t *testing.T) {
		gsm := NewSegmentManager()
		cfg := DefaultConfig()
		cfg.TraceErrorPolicy = TraceErrorStrict

		m, constants, stored := buildInconsistent(gsm)
		expectPanic(t, IsTraceError, func() {
			ReductionByTraces(m, nil, constants, stored, 2, &cfg, gsm)
		})

		gsm.Return(&constants.Constants)
		gsm.Return(&stored[0])
		m.Release(gsm)
	})
}

func TestSelectAllUsefulIndicators(t *testing.T) {
	gsm := NewSegmentManager()
	cfg := DefaultConfig()

	duples := &Duples{
		L:   []Segment{nil, nil, nil},
		H:   []Segment{nil, nil, nil},
		Hyp: []bool{false, true, false},
	}
	lFree := []Segment{segOf(gsm, 0), segOf(gsm, 0, 1), segOf(gsm, 2)}
	hFree := []Segment{segOf(gsm, 0, 1), segOf(gsm, 0, 1), segOf(gsm, 2, 3)}

	take, keep := SelectAllUsefulIndicators(duples, lFree, hFree, &cfg, gsm)

	// Duple 0 contributes {1}, duple 2 contributes {3}; the hypothesis with
	// an empty difference is tolerated and skipped.
	if !equalInts(intItems(take), []int{1, 3}) {
		t.Errorf("take = %v", intItems(take))
	}
	if !equalInts(intItems(keep), []int{0, 2}) {
		t.Errorf("keep = %v", intItems(keep))
	}

	gsm.Return(&take)
	gsm.Return(&keep)

	// A firm duple with no useful indicator is inconsistent input.
	duples.Hyp[1] = false
	expectPanic(t, IsInconsistentInput, func() {
		SelectAllUsefulIndicators(duples, lFree, hFree, &cfg, gsm)
	})

	for k := range lFree {
		gsm.Return(&lFree[k])
		gsm.Return(&hFree[k])
	}
}

func TestReduceIndicators_PreservesCoverage(t *testing.T) {
	gsm := NewSegmentManager()
	cfg := DefaultConfig()

	// Five duples over six indicators with overlapping useful sets.
	lFree := []Segment{nil, nil, nil, nil, nil}
	hFree := []Segment{
		segOf(gsm, 0, 1),
		segOf(gsm, 1, 2),
		segOf(gsm, 3),
		segOf(gsm, 0, 4),
		segOf(gsm, 4, 5),
	}
	const numIndicators = 6

	discarded, singles := ReduceIndicators(len(hFree), numIndicators, lFree, hFree, &cfg, gsm)

	// Indicator 3 is the only choice of duple 2 and must be forced.
	if !singles.Contains(3) {
		t.Errorf("singles = %v", intItems(singles))
	}
	if discarded.Contains(3) {
		t.Error("a forced single cannot be discarded")
	}

	// Preservation: every duple keeps at least one useful indicator.
	for k := range hFree {
		var remaining Segment
		SubtractTo(&remaining, hFree[k], discarded, gsm)
		if remaining == nil {
			t.Errorf("duple %d lost all useful indicators", k)
		}
		gsm.Return(&remaining)
	}

	// Something was actually discarded on this redundant input.
	if discarded == nil {
		t.Error("expected a non-trivial reduction")
	}

	gsm.Return(&discarded)
	gsm.Return(&singles)
	for k := range hFree {
		gsm.Return(&hFree[k])
	}
	if !gsm.AllReturned() {
		t.Errorf("leaked %d segments", gsm.CountOut())
	}
}
