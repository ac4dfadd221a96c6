// segment_manager.go: allocator bookkeeping for segment bodies
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "sync/atomic"

// SegmentManager tracks ownership of every segment body in flight. Segment
// memory itself comes from the Go allocator; the manager's contract is the
// balance: every Get must be matched by exactly one Return, and AllReturned
// verifies that no body leaked at the end of a computation.
//
// All methods are safe for concurrent use.
type SegmentManager struct {
	countOut   atomic.Int64
	memoryUsed atomic.Int64
	metrics    MetricsCollector
}

// NewSegmentManager creates a segment manager with no metrics collection.
func NewSegmentManager() *SegmentManager {
	return &SegmentManager{metrics: NoOpMetricsCollector{}}
}

// NewSegmentManagerWithMetrics creates a segment manager reporting every
// acquisition and release to the given collector.
func NewSegmentManagerWithMetrics(metrics MetricsCollector) *SegmentManager {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &SegmentManager{metrics: metrics}
}

// Get acquires a segment body of n bytes with a zero-initialized header:
// size 0, capacity n, lastByteOffset -1, trailing sequence 0, auxInt -1.
func (m *SegmentManager) Get(n uint64) Segment {
	if n < headerSize {
		panic(NewErrInvalidSegmentSize(n))
	}
	s := make(Segment, n)
	s.setCapacity(n)
	s.setLastByteOffset(-1)
	s.SetAuxInt(-1)

	m.countOut.Add(1)
	m.memoryUsed.Add(int64(n))
	m.metrics.RecordSegmentGet(n)
	return s
}

// Return releases the body in *s and clears the slot. Returning a nil slot
// or a slot holding nil is a no-op; returning more bodies than were acquired
// halts with a HARMONIA_SEGMENT_OVER_RETURN panic.
func (m *SegmentManager) Return(s *Segment) {
	if s == nil || *s == nil {
		return
	}
	n := (*s).capacity()
	*s = nil

	m.memoryUsed.Add(-int64(n))
	m.metrics.RecordSegmentReturn(n)
	if m.countOut.Add(-1) < 0 {
		panic(NewErrSegmentOverReturn())
	}
}

// CountOut returns the number of outstanding bodies.
func (m *SegmentManager) CountOut() int {
	return int(m.countOut.Load())
}

// AllReturned reports whether every acquired body has been returned.
func (m *SegmentManager) AllReturned() bool {
	return m.countOut.Load() == 0
}

// MemoryUsed returns the total bytes held by outstanding bodies.
func (m *SegmentManager) MemoryUsed() int64 {
	return m.memoryUsed.Load()
}
