// Package harmonia is the computational core of an algebraic machine
// learning engine: a compressed bit-set container, a trace engine and a
// crossing/reduction core refining an atomization under positive duple
// constraints.
//
// # Overview
//
// Learning is expressed over an atomization, a finite collection of
// constant sets (atoms) drawn from a constant universe. A positive duple
// (L, H) demands that every atom intersecting L also intersects H; the
// crossing core enforces unsatisfied duples by replacing the violating
// atoms with their product against the right-hand side, prunes redundant
// atoms through trace-based reduction, and reduces the indicator set the
// traces are expressed in.
//
// The package is organised in three tightly coupled layers:
//
//   - Segment: a run-length-encoded bit-set with full set algebra (union,
//     intersection, subtraction, containment, cardinality, uniform random
//     selection), backed by a SegmentManager that balances every
//     acquisition against a release.
//   - Trace engine: free traces and full traces for terms and atoms
//     (FreeTraceAll, TraceAll, StoreTracesOfConstants), with a TraceHelper
//     cache of inverse traces keyed by atom ID.
//   - Crossing core: CrossAll, ReductionByTraces, indicator selection and
//     reduction, and the union-model partition.
//
// # Quick Start
//
//	gsm := harmonia.NewSegmentManager()
//	cfg := harmonia.DefaultConfig()
//
//	// Universe {0,1,2}, one atom per constant.
//	var universe harmonia.Segment
//	atoms := make([]harmonia.AtomS, 3)
//	for c := 0; c < 3; c++ {
//	    harmonia.AddItem(&universe, c, gsm)
//	    harmonia.AddItem(&atoms[c].UCS, c, gsm)
//	}
//	model := &harmonia.AtomizationS{Atoms: atoms}
//
//	// ... fill atom traces, compute stored constant traces ...
//
//	result := harmonia.CrossAll(model, harmonia.NewCS(universe), duples,
//	    storedTraces, totalIndicators, nil, 0, &cfg, gsm)
//
// Results are deterministic for a fixed Config.Rand seed and input; the
// parallel phases never influence the outcome, only the wall-clock.
//
// # Resource Model
//
// Every Segment handed out by a SegmentManager must travel back through
// Return; AtomizationS.Release, Space.Release and TraceHelper.Release tear
// down whole structures. SegmentManager.AllReturned is the leak check to
// assert at the end of a computation.
//
// # Error Model
//
// The core has no recoverable errors. Corrupted token streams, broken
// caller contracts and inconsistent duple input halt with a panic carrying
// a coded error from this package (see errors.go); trace error B is policy
// driven through Config.TraceErrorPolicy and defaults to a logged warning.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package harmonia
