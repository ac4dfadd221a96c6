// segment_batch.go: binary serialization of segment batches
//
// Wire format, little-endian:
//
//	u32  count
//	for each segment: u64 size, then size raw bytes (header included)
//
// A nil segment is written as size 0 with no body; count 0 is legal.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "encoding/binary"

// SegmentBatchSize returns the serialized length in bytes of the batch.
func SegmentBatchSize(segments []Segment) int {
	total := 4 + 8*len(segments)
	for _, s := range segments {
		total += int(s.size())
	}
	return total
}

// MarshalSegmentBatch serializes the batch into a fresh buffer.
func MarshalSegmentBatch(segments []Segment) []byte {
	buf := make([]byte, 0, SegmentBatchSize(segments))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(segments)))
	for _, s := range segments {
		size := s.size()
		buf = binary.LittleEndian.AppendUint64(buf, size)
		if size > 0 {
			buf = append(buf, s[:size]...)
		}
	}
	return buf
}

// SegmentBatchCount returns the number of segments recorded in buf.
func SegmentBatchCount(buf []byte) (int, error) {
	if len(buf) < 4 {
		return 0, NewErrInvalidBatch("buffer shorter than count field")
	}
	return int(binary.LittleEndian.Uint32(buf)), nil
}

// UnmarshalSegmentBatch rebuilds the batch into the destination slots.
// Each destination is first released through the manager, then re-acquired
// at the exact recorded size and overwritten with the stored bytes; a zero
// recorded size leaves the slot nil. The batch count must match the number
// of destinations.
func UnmarshalSegmentBatch(buf []byte, into []*Segment, gsm *SegmentManager) error {
	count, err := SegmentBatchCount(buf)
	if err != nil {
		return err
	}
	if count != len(into) {
		return NewErrInvalidBatch("count does not match destination batch")
	}

	ptr := 4
	for _, dst := range into {
		if len(buf) < ptr+8 {
			return NewErrInvalidBatch("truncated size field")
		}
		size := binary.LittleEndian.Uint64(buf[ptr:])
		ptr += 8

		gsm.Return(dst)

		if size == 0 {
			continue
		}
		if size < headerSize {
			return NewErrInvalidBatch("recorded size below header size")
		}
		if uint64(len(buf)-ptr) < size {
			return NewErrInvalidBatch("truncated segment body")
		}

		seg := gsm.Get(size)
		copy(seg, buf[ptr:ptr+int(size)])
		seg.setCapacity(size)
		ptr += int(size)
		*dst = seg
	}
	return nil
}
