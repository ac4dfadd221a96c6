// config.go: configuration for the Harmonia engine core
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"math/rand"
	"runtime"

	"github.com/agilira/go-timecache"
)

// TraceErrorPolicy selects how the engine reacts when an indicator's
// inverse-trace set is empty at a point where an atom candidate is required
// ("trace error B").
type TraceErrorPolicy int

const (
	// TraceErrorWarn logs the error, drops the offending indicator locally
	// and continues. This is the default.
	TraceErrorWarn TraceErrorPolicy = iota

	// TraceErrorStrict halts with a HARMONIA_TRACE_ERROR panic.
	TraceErrorStrict
)

// Config holds the runtime parameters of the engine core.
// The zero value is not usable directly; call Validate or start from
// DefaultConfig.
type Config struct {
	// Workers is the number of goroutines used by the parallel phases
	// (free-trace computation, trace computation, union-model stripes).
	// Default: GOMAXPROCS.
	Workers int

	// SimplifyThreshold is the atomization growth factor that triggers an
	// intermediate trace-based reduction during CrossAll.
	// Must be > 1.0. Default: DefaultSimplifyThreshold.
	SimplifyThreshold float64

	// UseTraceHelper enables the inverse-trace cache keyed by atom ID
	// during CrossAll.
	UseTraceHelper bool

	// RemoveRepetitions removes duplicate atoms (equal UCS content) after
	// each enforcement.
	RemoveRepetitions bool

	// IgnoreSingleConstUCS makes the simplify threshold count only atoms
	// whose UCS holds more than one constant.
	IgnoreSingleConstUCS bool

	// CalculateRedundancy is recognised for compatibility and must be false.
	CalculateRedundancy bool

	// Verbose reports reduction and crossing progress through the Logger.
	Verbose bool

	// TraceErrorPolicy selects the reaction to trace error B.
	// Default: TraceErrorWarn.
	TraceErrorPolicy TraceErrorPolicy

	// TileSize is the number of indicators per tile in the free-trace
	// computation. Default: DefaultTileSize.
	TileSize int

	// UnionStripes is the number of disjoint bitmap lanes used by
	// UpdateUnionModelWithSetOfPduples. Default: DefaultUnionStripes.
	UnionStripes int

	// Rand is the random source used by atom and indicator selection and by
	// the reduction shuffles. Engine results are deterministic for a fixed
	// seed and input. If nil, a source seeded with DefaultRandSeed is used.
	Rand *rand.Rand

	// Logger is used for warnings and verbose progress.
	// If nil, NoOpLogger is used. Default: NoOpLogger.
	Logger Logger

	// TimeProvider provides current time for union-model stamping.
	// If nil, a default implementation is used. Default: cached system time.
	TimeProvider TimeProvider

	// MetricsCollector is used for collecting operation metrics.
	// If nil, NoOpMetricsCollector is used (zero overhead).
	MetricsCollector MetricsCollector
}

// Validate checks configuration parameters and applies sensible defaults.
// Returns an error only for options that cannot be normalized away
// (currently CalculateRedundancy, which is recognised but unsupported).
//
// Default values applied:
//   - Workers: GOMAXPROCS if <= 0
//   - SimplifyThreshold: DefaultSimplifyThreshold if <= 1.0
//   - TileSize: DefaultTileSize if <= 0
//   - UnionStripes: DefaultUnionStripes if <= 0
//   - Rand: rand.New(rand.NewSource(DefaultRandSeed)) if nil
//   - Logger: NoOpLogger{} if nil
//   - TimeProvider: cachedTimeProvider{} if nil
//   - MetricsCollector: NoOpMetricsCollector{} if nil
func (c *Config) Validate() error {
	if c.CalculateRedundancy {
		return NewErrInvalidConfig("CalculateRedundancy", true)
	}

	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	if c.SimplifyThreshold <= 1.0 {
		c.SimplifyThreshold = DefaultSimplifyThreshold
	}

	if c.TileSize <= 0 {
		c.TileSize = DefaultTileSize
	}

	if c.UnionStripes <= 0 {
		c.UnionStripes = DefaultUnionStripes
	}

	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(DefaultRandSeed)) // #nosec G404 -- reproducibility matters here, not unpredictability
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}

	if c.TimeProvider == nil {
		c.TimeProvider = &cachedTimeProvider{}
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           runtime.GOMAXPROCS(0),
		SimplifyThreshold: DefaultSimplifyThreshold,
		TileSize:          DefaultTileSize,
		UnionStripes:      DefaultUnionStripes,
		TraceErrorPolicy:  TraceErrorWarn,
		Rand:              rand.New(rand.NewSource(DefaultRandSeed)), // #nosec G404 -- reproducibility matters here
		Logger:            NoOpLogger{},
		TimeProvider:      &cachedTimeProvider{},
		MetricsCollector:  NoOpMetricsCollector{},
	}
}

// cachedTimeProvider is the default time provider using go-timecache.
// This provides much faster time access compared to time.Now() with zero
// allocations, which matters when stamping large union models.
type cachedTimeProvider struct{}

func (t *cachedTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
