// segment.go: compressed bit-set container and its reading cursor
//
// A Segment is the run-length-encoded dynamic bit-array at the heart of the
// engine: a 30-byte header followed by a token stream encoding the bytes of
// an imaginary uncompressed bit-array. Three token kinds exist:
//
//   - isolated byte:       top two bits 00, one source byte verbatim
//   - empty-run counter:   top bit 1, two bytes, skips up to 16383 zero bytes
//   - literal-run counter: top bits 01, two bytes, count n in [1,16383] of
//     literal source bytes that immediately follow
//
// A nil Segment is the empty set; a non-nil Segment never decodes to the
// empty set. Malformed token streams are unrecoverable and halt with a
// HARMONIA_CORRUPTED_SEGMENT panic.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"encoding/binary"
	"math/rand"
)

// Header layout (little-endian):
//
//	[0,8)   size          total length in bytes, header included
//	[8,16)  capacity      allocated length in bytes
//	[16,24) lastByteOffset  logical offset of the last encoded source byte
//	[24,26) lastSequenceLength  literal bytes in the trailing sequence
//	[26,30) auxInt        scratch integer carried through serialization
const (
	headerSizeOffset       = 0
	headerCapacityOffset   = 8
	headerLastByteOffset   = 16
	headerLastSeqLenOffset = 24
	headerAuxIntOffset     = 26
	headerSize             = 30
)

const (
	sixBitsCapacity      = 64
	fourteenBitsCapacity = 16384
	sequenceMaxCapacity  = fourteenBitsCapacity

	emptyCounterFlag   = byte(128) // first bit set
	literalCounterFlag = byte(64)  // first bit clear, second set
	firstTwoBitsMask   = byte(192)
)

// Buffer growth factors. A freshly closed segment keeps slack up to
// extraSizeAllowed times its content before the writer repacks it.
const (
	extraSizeAllowed      = 1.5
	smallExtraSizeAllowed = 1.1
)

// Segment is a compressed bit-set over non-negative integers.
// The backing bytes are owned by a SegmentManager; every Segment obtained
// from a manager must eventually be handed back through Return.
type Segment []byte

func (s Segment) size() uint64 {
	if s == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(s[headerSizeOffset:])
}

func (s Segment) setSize(n uint64) {
	binary.LittleEndian.PutUint64(s[headerSizeOffset:], n)
}

func (s Segment) capacity() uint64 {
	if s == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(s[headerCapacityOffset:])
}

func (s Segment) setCapacity(n uint64) {
	binary.LittleEndian.PutUint64(s[headerCapacityOffset:], n)
}

func (s Segment) lastByteOffset() int64 {
	if s == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(s[headerLastByteOffset:]))
}

func (s Segment) setLastByteOffset(n int64) {
	binary.LittleEndian.PutUint64(s[headerLastByteOffset:], uint64(n))
}

func (s Segment) lastSequenceLength() int16 {
	if s == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(s[headerLastSeqLenOffset:]))
}

func (s Segment) setLastSequenceLength(n int16) {
	binary.LittleEndian.PutUint16(s[headerLastSeqLenOffset:], uint16(n))
}

// AuxInt returns the auxiliary header integer. The engine does not interpret
// it; it is scratch space preserved by cloning and serialization.
func (s Segment) AuxInt() int32 {
	if s == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(s[headerAuxIntOffset:]))
}

// SetAuxInt stores the auxiliary header integer.
func (s Segment) SetAuxInt(n int32) {
	binary.LittleEndian.PutUint32(s[headerAuxIntOffset:], uint32(n))
}

// Token predicates. An isolated byte must fit in the low six bits; anything
// with a high bit set travels inside a literal run.
func isEmptyCounter(b byte) bool   { return b&emptyCounterFlag != 0 }
func isLiteralCounter(b byte) bool { return b&firstTwoBitsMask == literalCounterFlag }
func isIsolatedByte(b byte) bool   { return b&firstTwoBitsMask == 0 }

func literalCounterValue(s Segment, at int64) int {
	return int(s[at]&^literalCounterFlag) + int(s[at+1])*sixBitsCapacity
}

func emptyCounterValue(s Segment, at int64) int {
	return int(s[at]&^emptyCounterFlag) + int(s[at+1])*sixBitsCapacity
}

func writeLiteralCounter(s Segment, at int64, n int) {
	s[at] = byte(n%sixBitsCapacity) | literalCounterFlag
	s[at+1] = byte(n / sixBitsCapacity)
}

func writeEmptyCounter(s Segment, at int64, n int) {
	s[at] = byte(n%sixBitsCapacity) | emptyCounterFlag
	s[at+1] = byte(n / sixBitsCapacity)
}

// sameSlice reports whether two segments share the same backing array.
func sameSlice(a, b Segment) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// SegmentReader streams a segment either byte-wise or item-wise.
// The zero value is ready for Set.
type SegmentReader struct {
	seg Segment
	x   int64 // index of the current body byte
	f   int64 // first index past the body
	lsf int64 // first index past the current literal run

	charOffset   int64  // logical byte offset corresponding to x
	residue      byte   // byte currently being decoded bit by bit
	inCharIndex  uint32 // bit index inside residue
	bitflag      byte   // single-bit mask walking residue
	currentIndex uint32 // item produced by the last NextItem
	moveforward  bool   // x must advance before the next decode step
}

// Set points the reader at a segment and rewinds it.
func (r *SegmentReader) Set(seg Segment) {
	r.seg = seg
	r.reset()
}

func (r *SegmentReader) reset() {
	if r.seg != nil {
		r.x = headerSize
		r.f = int64(r.seg.size())
	} else {
		r.x = 0
		r.f = 0
	}
	r.lsf = r.x
	r.charOffset = 0
	r.residue = 0
	r.inCharIndex = 0
	r.currentIndex = 0
	r.bitflag = 0
	r.moveforward = false
}

// NextItem advances to the next set bit. It returns false when the segment
// is exhausted; CurrentItem yields the bit index after a true return.
// Bits are produced LSB-first within each source byte, ascending.
func (r *SegmentReader) NextItem() bool {
	if r.seg == nil {
		return false
	}
	for {
		if r.residue != 0 {
			for r.bitflag != 0 {
				if r.residue&r.bitflag != 0 {
					r.currentIndex = uint32(8*r.charOffset + int64(r.inCharIndex))
					r.inCharIndex++
					if int(r.residue) <= 2*int(r.bitflag)-1 {
						r.residue = 0
					}
					r.bitflag <<= 1
					return true
				}
				r.inCharIndex++
				r.bitflag <<= 1
			}
			r.residue = 0
		}

		if r.moveforward {
			r.x++
			r.charOffset++
			r.moveforward = false
		}

		if r.x < r.lsf {
			r.residue = r.seg[r.x]
			r.inCharIndex = 0
			r.bitflag = 1
			r.moveforward = true
			continue
		}

		loaded := false
		for r.x < r.f {
			c := r.seg[r.x]
			switch {
			case isLiteralCounter(c):
				n := literalCounterValue(r.seg, r.x)
				r.x += 2
				if n == 0 {
					panic(NewErrCorruptedSegment("literal-run counter is zero"))
				}
				r.lsf = r.x + int64(n)
				if r.lsf > r.f {
					panic(NewErrCorruptedSegment("literal run extends past body"))
				}
				loaded = true
			case isEmptyCounter(c):
				r.charOffset += int64(emptyCounterValue(r.seg, r.x))
				r.x += 2
				continue
			case isIsolatedByte(c):
				r.residue = c
				r.inCharIndex = 0
				r.bitflag = 1
				r.moveforward = true
				loaded = true
			default:
				panic(NewErrCorruptedSegment("unrecognized token"))
			}
			break
		}
		if !loaded {
			return false
		}
	}
}

// CurrentItem returns the bit index produced by the last NextItem.
func (r *SegmentReader) CurrentItem() int {
	return int(r.currentIndex)
}

// nextByte positions the reader on the next non-zero source byte, exposing
// its logical offset through charOffset and its value through r.seg[r.x].
// The set-algebra merges run on this byte cursor.
func (r *SegmentReader) nextByte() bool {
	if r.seg == nil {
		return false
	}
restart:
	if r.moveforward {
		r.x++
		r.charOffset++
		r.moveforward = false
	}

	if r.x < r.lsf {
		r.moveforward = true
		if r.seg[r.x] == 0 {
			goto restart
		}
		return true
	}

	for r.x < r.f {
		c := r.seg[r.x]
		switch {
		case isLiteralCounter(c):
			n := literalCounterValue(r.seg, r.x)
			r.x += 2
			if n == 0 {
				panic(NewErrCorruptedSegment("literal-run counter is zero"))
			}
			r.lsf = r.x + int64(n)
			if r.lsf > r.f {
				panic(NewErrCorruptedSegment("literal run extends past body"))
			}
			goto restart
		case isEmptyCounter(c):
			r.charOffset += int64(emptyCounterValue(r.seg, r.x))
			r.x += 2
		case isIsolatedByte(c):
			r.moveforward = true
			if c == 0 {
				goto restart
			}
			return true
		default:
			panic(NewErrCorruptedSegment("unrecognized token"))
		}
	}
	return false
}

// runRemaining returns how many literal bytes are available at the cursor,
// at least 1 when positioned on a byte.
func (r *SegmentReader) runRemaining() int64 {
	n := r.lsf - r.x
	if n < 1 {
		n = 1
	}
	return n
}

// Contains reports whether item belongs to the set.
func (s Segment) Contains(item int) bool {
	if s == nil {
		return false
	}
	offsetB := int64(item / 8)
	byteB := byte(1) << (item % 8)

	var reader SegmentReader
	reader.Set(s)

	aFin := !reader.nextByte()
	for !aFin {
		readA := reader.charOffset <= offsetB
		readB := aFin || offsetB <= reader.charOffset

		switch {
		case readA && !readB:
			n := reader.runRemaining()
			if d := offsetB - reader.charOffset; d < n {
				n = d
			}
			reader.x += n
			reader.charOffset += n
			reader.moveforward = false
			aFin = !reader.nextByte()
		case readB && !readA:
			return false
		default:
			return s[reader.x]&byteB != 0
		}
	}
	return false
}

// IsDisjoint reports whether the two sets have no element in common.
func (s Segment) IsDisjoint(o Segment) bool {
	if s == nil || o == nil {
		return true
	}
	if sameSlice(s, o) {
		return false
	}

	var readerA, readerB SegmentReader
	readerA.Set(s)
	readerB.Set(o)

	aFin := !readerA.nextByte()
	bFin := !readerB.nextByte()

	for !(aFin || bFin) {
		readA := readerA.charOffset <= readerB.charOffset
		readB := readerB.charOffset <= readerA.charOffset

		switch {
		case readA && !readB:
			aFin = !readerA.nextByte()
		case readB && !readA:
			bFin = !readerB.nextByte()
		default:
			if s[readerA.x]&o[readerB.x] != 0 {
				return false
			}
			aFin = !readerA.nextByte()
			bFin = !readerB.nextByte()
		}
	}
	return true
}

// SubsetOf reports whether every element of s belongs to container.
func (s Segment) SubsetOf(container Segment) bool {
	if s == nil {
		return true
	}
	if container == nil {
		return false
	}

	var readerA, readerB SegmentReader
	readerA.Set(container)
	readerB.Set(s)

	aFin := !readerA.nextByte()
	bFin := !readerB.nextByte()

	for !(aFin || bFin) {
		readA := readerA.charOffset <= readerB.charOffset
		readB := readerB.charOffset <= readerA.charOffset

		switch {
		case readA && !readB:
			n := readerA.runRemaining()
			if !bFin {
				if d := readerB.charOffset - readerA.charOffset; d < n {
					n = d
				}
			}
			readerA.x += n
			readerA.charOffset += n
			readerA.moveforward = false
			aFin = !readerA.nextByte()
		case readB && !readA:
			return false
		default:
			if container[readerA.x]|s[readerB.x] != container[readerA.x] {
				return false
			}
			aFin = !readerA.nextByte()
			bFin = !readerB.nextByte()
		}
	}
	if aFin && !bFin {
		return false
	}
	return true
}

// Compare orders two sets by their first differing logical byte.
// nil sorts after non-nil; equal content yields 0 regardless of the
// capacity or slack of either body.
func (s Segment) Compare(o Segment) int {
	if s == nil && o == nil {
		return 0
	}
	if s == nil {
		return 1
	}
	if o == nil {
		return -1
	}
	if sameSlice(s, o) {
		return 0
	}

	var readerA, readerB SegmentReader
	readerA.Set(s)
	readerB.Set(o)

	aFin := !readerA.nextByte()
	bFin := !readerB.nextByte()

	for !(aFin || bFin) {
		readA := readerA.charOffset <= readerB.charOffset
		readB := readerB.charOffset <= readerA.charOffset

		switch {
		case readA && !readB:
			return -1
		case readB && !readA:
			return 1
		default:
			difference := int(o[readerB.x]) - int(s[readerA.x])
			if difference > 0 {
				return 1
			} else if difference < 0 {
				return -1
			}
			aFin = !readerA.nextByte()
			bFin = !readerB.nextByte()
		}
	}
	if aFin && !bFin {
		return 1
	}
	if !aFin && bFin {
		return -1
	}
	return 0
}

// Equal reports whether two segments decode to the same set.
func (s Segment) Equal(o Segment) bool {
	return s.Compare(o) == 0
}

// Count returns the cardinality of the set.
func (s Segment) Count() int {
	if s == nil {
		return 0
	}
	count := 0
	var reader SegmentReader
	reader.Set(s)
	for reader.NextItem() {
		count++
	}
	if count == 0 {
		panic(NewErrCorruptedSegment("non-nil segment decodes to the empty set"))
	}
	return count
}

// CountUpto returns min(cardinality, limit), short-circuiting the scan.
func (s Segment) CountUpto(limit int) int {
	if s == nil {
		return 0
	}
	count := 0
	var reader SegmentReader
	reader.Set(s)
	for count < limit && reader.NextItem() {
		count++
	}
	if count == 0 && limit > 0 {
		panic(NewErrCorruptedSegment("non-nil segment decodes to the empty set"))
	}
	return count
}

// Items returns the elements of the set in ascending order.
func (s Segment) Items() []uint32 {
	if s == nil {
		return nil
	}
	items := make([]uint32, 0, 8)
	var reader SegmentReader
	reader.Set(s)
	for reader.NextItem() {
		items = append(items, reader.currentIndex)
	}
	return items
}

// Choose returns a uniformly random element of the set.
// The segment must not be empty.
func (s Segment) Choose(rng *rand.Rand) int {
	if s == nil {
		panic(NewErrContractViolation("Choose", "segment must not be empty"))
	}
	total := s.Count()
	pick := rng.Intn(total)

	var reader SegmentReader
	reader.Set(s)
	count := 0
	for reader.NextItem() {
		if count == pick {
			return reader.CurrentItem()
		}
		count++
	}
	panic(NewErrCorruptedSegment("nothing picked"))
}

// chooseWithBuffer picks a pseudo-uniform element when an upper bound on the
// cardinality is already known, filling buffer with the elements visited so
// far. Callers choosing many items from related sets in a loop reuse one
// buffer sized to the bound.
func chooseWithBuffer(s Segment, maxValue int, buffer []int, rng *rand.Rand) int {
	var reader SegmentReader
	reader.Set(s)
	count := 0
	pick := rng.Intn(maxValue)
	for reader.NextItem() {
		buffer[count] = reader.CurrentItem()
		if count == pick {
			return buffer[count]
		}
		count++
	}
	if count == 0 {
		panic(NewErrContractViolation("chooseWithBuffer", "segment must not be empty"))
	}
	return buffer[pick%count]
}
