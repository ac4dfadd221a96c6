// harmonia.go: package-level constants for the Harmonia engine core
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

const (
	// Version of the Harmonia engine core library
	Version = "v0.1.0-dev"

	// DefaultSimplifyThreshold is the growth factor of the atomization that
	// triggers an intermediate trace-based reduction during CrossAll.
	DefaultSimplifyThreshold = 1.5

	// DefaultTileSize is the number of indicators processed per tile in the
	// free-trace computation. 5000 indicator segments fit comfortably in L2
	// on the machines this was tuned on.
	DefaultTileSize = 5000

	// DefaultUnionStripes is the number of disjoint bitmap lanes used by
	// UpdateUnionModelWithSetOfPduples. 960 = 64*3*5 divides evenly into the
	// per-lane word bitmaps regardless of worker count.
	DefaultUnionStripes = 960

	// DefaultRandSeed seeds the engine RNG when Config.Rand is nil. Results
	// of CrossAll and the reductions are deterministic for a fixed seed and
	// input; pass your own rand.Rand to vary or reproduce runs.
	DefaultRandSeed = 1
)
