// segment_writer.go: writing cursor and set algebra for compressed bit-sets
//
// The writer accumulates increasing (byteOffset, byte) pairs into a
// provisional body, emitting empty-run counters for gaps and literal-run
// counters for streaks of bytes that cannot stand alone. All mutating set
// operations are expressed through it: they merge the destination and source
// byte streams, rewrite in place when the compressed shape allows it, and
// otherwise restart in writing mode against a fresh output body.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import "encoding/binary"

// segmentWriter writes into the segment slot *pt, replacing the slot's value
// on close. Writers are cheap to declare and must not be shared across
// goroutines.
type segmentWriter struct {
	pt  *Segment // destination slot, rewritten when the operation closes
	seg Segment  // current value of *pt
	gsm *SegmentManager

	out        Segment // provisional output body during a write operation
	seqStart   int64   // index in out of the pending literal-run counter
	byteOffset int64   // logical offset of the last pushed byte
	i          int64   // next write index in out
	max        int64   // first index past the allocated output

	reader SegmentReader // cursor over seg during merges
}

// set binds the writer to a destination slot.
func (w *segmentWriter) set(pt *Segment, gsm *SegmentManager) {
	w.pt = pt
	w.seg = *pt
	w.gsm = gsm
	w.out = nil
}

func (w *segmentWriter) internalIni(length uint64) {
	w.out = w.gsm.Get(length)
	w.byteOffset = -1
	w.max = int64(length)
	w.seqStart = headerSize
	w.i = headerSize
}

// ensureSegmentLength grows the segment in *pt to newSize bytes, carrying
// over the first length bytes of content.
func ensureSegmentLength(pt *Segment, newSize int64, gsm *SegmentManager, length int64) {
	seg := *pt
	if seg == nil {
		panic(NewErrContractViolation("ensureSegmentLength", "nil segment"))
	}
	maxLength := int64(seg.capacity())
	if newSize < maxLength {
		panic(NewErrContractViolation("ensureSegmentLength", "invalid extended size"))
	}
	if newSize == maxLength {
		return
	}
	replacement := gsm.Get(uint64(newSize))
	n := length
	if m := int64(len(seg)); n > m {
		n = m
	}
	copy(replacement, seg[:n])
	replacement.setCapacity(uint64(newSize))
	gsm.Return(pt)
	*pt = replacement
}

func (w *segmentWriter) manageExtension(ensureExtra int64) {
	same := sameSlice(w.out, w.seg)
	length := w.i
	if w.seqStart < 0 {
		panic(NewErrCorruptedSegment("sequence start before body"))
	}

	newSize := int64(extraSizeAllowed * float64(length))
	if newSize < length+ensureExtra {
		newSize = length + ensureExtra
	}
	ensureSegmentLength(&w.out, newSize, w.gsm, length)
	w.max = int64(w.out.capacity())

	if same {
		w.seg = w.out
		*w.pt = w.seg
	}
}

func (w *segmentWriter) ensureTwoBytes() {
	if w.i+1 >= w.max {
		w.manageExtension(2)
	}
}

func (w *segmentWriter) isCounting() bool {
	return w.i != w.seqStart
}

// closeSequenceIfNeeded finalizes the pending literal-run counter and emits
// empty-run counters covering emptyBytes skipped source bytes.
func (w *segmentWriter) closeSequenceIfNeeded(counting *bool, emptyBytes int64, forceClose bool) {
	substringLength := 0

	if *counting {
		substringLength = int(w.i - 1 - (w.seqStart + 1))
		if substringLength >= sequenceMaxCapacity {
			panic(NewErrCorruptedSegment("literal sequence state corrupted"))
		} else if substringLength == sequenceMaxCapacity-1 {
			forceClose = true
		}
	}

	if emptyBytes > 0 || forceClose {
		if *counting {
			writeLiteralCounter(w.out, w.seqStart, substringLength)
			*counting = false
		}
		for emptyBytes > 0 {
			if emptyBytes < fourteenBitsCapacity {
				w.ensureTwoBytes()
				writeEmptyCounter(w.out, w.i, int(emptyBytes))
				w.i += 2
				emptyBytes = 0
			} else {
				w.ensureTwoBytes()
				writeEmptyCounter(w.out, w.i, fourteenBitsCapacity-1)
				w.i += 2
				emptyBytes -= fourteenBitsCapacity - 1
			}
		}
		w.seqStart = w.i
	}
}

// pushLiteralSequence appends sequence at the given logical byte offset.
// Small gaps (up to three zero bytes) are cheaper written as literal zeros
// than as a two-byte empty counter.
func (w *segmentWriter) pushLiteralSequence(byteOffset int64, sequence []byte, sequenceLength int) {
	shift := byteOffset - w.byteOffset
	if shift < 0 {
		panic(NewErrCorruptedSegment("push offset moved backwards"))
	}
	if sequenceLength <= 0 {
		panic(NewErrCorruptedSegment("push of empty sequence"))
	}

	if shift > 1 && shift <= 4 {
		var zero [4]byte
		w.pushLiteralSequence(byteOffset-shift, zero[:], int(shift-1))
		shift = 0
	}

	counting := w.isCounting()
	isolated := sequenceLength == 1 && isIsolatedByte(sequence[0])
	effectiveLength := sequenceLength

	if shift > 1 || counting {
		var emptyBytes int64
		if shift > 1 {
			emptyBytes = shift - 1
		}
		w.closeSequenceIfNeeded(&counting, emptyBytes, false)
	}

	if !counting && !isolated {
		w.seqStart = w.i
		w.i += 2
		counting = true
	}

	if counting {
		room := sequenceMaxCapacity - 1 - int(w.i-1-(w.seqStart+1))
		if room < effectiveLength {
			effectiveLength = room
		}
	}

	if w.i+int64(effectiveLength) > w.max {
		w.manageExtension(int64(effectiveLength))
	}

	copy(w.out[w.i:], sequence[:effectiveLength])
	w.i += int64(effectiveLength)

	if !counting {
		w.seqStart = w.i
	}
	w.byteOffset = byteOffset + int64(effectiveLength-1)

	if effectiveLength != sequenceLength {
		w.pushLiteralSequence(w.byteOffset+1, sequence[effectiveLength:], sequenceLength-effectiveLength)
	}
}

func (w *segmentWriter) pushByte(byteOffset int64, b byte) {
	buf := [1]byte{b}
	w.pushLiteralSequence(byteOffset, buf[:], 1)
}

// close finalizes the write operation: the trailing sequence is closed, an
// empty result collapses the slot to nil, and oversized bodies are repacked
// into an exact-fit segment.
func (w *segmentWriter) close() {
	counting := w.isCounting()
	needsCopy := true
	var lastSequenceLength int16

	if w.i > w.max {
		panic(NewErrCorruptedSegment("write exceeded allocated output"))
	}

	if counting {
		lastSequenceLength = int16(w.i - 1 - (w.seqStart + 1))
	}
	if lastSequenceLength < 0 || int(lastSequenceLength) >= sequenceMaxCapacity {
		panic(NewErrCorruptedSegment("trailing sequence length out of range"))
	}
	w.out.setLastSequenceLength(lastSequenceLength)
	if counting {
		w.closeSequenceIfNeeded(&counting, 0, true)
	}

	length := w.i
	if length < headerSize {
		panic(NewErrCorruptedSegment("output shorter than header"))
	}

	if length == headerSize {
		if !sameSlice(*w.pt, w.out) {
			w.gsm.Return(w.pt)
			w.gsm.Return(&w.out)
		} else {
			w.gsm.Return(w.pt)
			w.out = nil
		}
		w.seg = nil
		*w.pt = nil
		return
	}

	if float64(w.seg.capacity()) < extraSizeAllowed*float64(length) {
		needsCopy = false
	}

	if needsCopy {
		if !sameSlice(*w.pt, w.out) {
			w.gsm.Return(w.pt)
		}
		w.seg = w.gsm.Get(uint64(length))
		*w.pt = w.seg
		copy(w.seg, w.out[:length])
		w.seg.setCapacity(uint64(length))
		w.gsm.Return(&w.out)
	} else {
		if !sameSlice(w.seg, w.out) {
			w.gsm.Return(w.pt)
			*w.pt = w.out
			w.seg = *w.pt
		}
	}

	w.seg.setSize(uint64(length))
	w.seg.setLastByteOffset(w.byteOffset)
}

// cloneFrom replaces the destination with a byte copy of source, reusing the
// destination body when its capacity is close enough to the source size.
// A nil source leaves the destination untouched.
func (w *segmentWriter) cloneFrom(source Segment) {
	if source == nil {
		return
	}
	sourceLength := int64(source.size())
	selfMaxLength := int64(w.seg.capacity())
	if sourceLength <= 0 {
		panic(NewErrCorruptedSegment("clone of zero-length segment"))
	}

	needNew := w.seg == nil ||
		selfMaxLength < sourceLength ||
		float64(selfMaxLength) > extraSizeAllowed*float64(sourceLength)

	if needNew {
		w.gsm.Return(w.pt)
		*w.pt = w.gsm.Get(uint64(sourceLength))
		w.seg = *w.pt
	}
	copy(w.seg, source[:sourceLength])
	if needNew {
		w.seg.setCapacity(uint64(sourceLength))
	} else {
		w.seg.setCapacity(uint64(selfMaxLength))
	}
}

// addSegment unions source into the destination. Returns true iff the
// destination grew. When every merged byte stays representable in place the
// destination body is patched directly; the first byte that breaks the
// compressed shape restarts the merge in writing mode.
func (w *segmentWriter) addSegment(source Segment) bool {
	if source == nil {
		return false
	}
	if w.seg == nil {
		w.cloneFrom(source)
		return true
	}

	var (
		readerB    SegmentReader
		aFin, bFin bool
		numA, numB int64
		retVal     bool
		length     int64
	)
	writing := w.seg.size() < source.size()

startpoint:
	if writing {
		length = int64(w.seg.size())
		if s := int64(source.size()); s > length {
			length = s
		}
		length = int64(float64(length) * extraSizeAllowed)
		w.internalIni(uint64(length))
	}

	w.reader.Set(w.seg)
	readerB.Set(source)

	aFin = !w.reader.nextByte()
	bFin = !readerB.nextByte()

	for !(aFin && bFin) {
		readA := !aFin && (bFin || w.reader.charOffset <= readerB.charOffset)
		readB := !bFin && (aFin || readerB.charOffset <= w.reader.charOffset)

		if readA && !readB {
			numA = w.reader.runRemaining()
			if !bFin {
				if d := readerB.charOffset - w.reader.charOffset; d < numA {
					numA = d
				}
			}
			if writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+numA], int(numA))
			}
			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false
			aFin = !w.reader.nextByte()
		} else if readB && !readA {
			retVal = true
			if !writing {
				writing = true
				goto startpoint
			}

			numB = readerB.runRemaining()
			if !aFin {
				if d := w.reader.charOffset - readerB.charOffset; d < numB {
					numB = d
				}
			}
			w.pushLiteralSequence(readerB.charOffset, readerB.seg[readerB.x:readerB.x+numB], int(numB))
			readerB.x += numB
			readerB.charOffset += numB
			readerB.moveforward = false
			bFin = !readerB.nextByte()
		} else if readA && readB {
			numA = w.reader.runRemaining()
			numB = readerB.runRemaining()
			if numB < numA {
				numA = numB
			}

			if numA > 1 || writing {
				for k := int64(0); k < numA; k++ {
					if k+8 < numA {
						av := binary.LittleEndian.Uint64(w.reader.seg[w.reader.x+k:])
						bv := binary.LittleEndian.Uint64(readerB.seg[readerB.x+k:])
						or := av | bv
						if !retVal && av != or {
							retVal = true
						}
						binary.LittleEndian.PutUint64(w.reader.seg[w.reader.x+k:], or)
						k += 7
					} else {
						av := w.reader.seg[w.reader.x+k]
						or := av | readerB.seg[readerB.x+k]
						if !retVal && av != or {
							retVal = true
						}
						w.reader.seg[w.reader.x+k] = or
					}
				}
			} else {
				av := w.reader.seg[w.reader.x]
				or := av | readerB.seg[readerB.x]
				if av != or {
					retVal = true
					if !writing && !isIsolatedByte(or) {
						writing = true
						goto startpoint
					}
				}
				w.reader.seg[w.reader.x] = or
			}

			if writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+numA], int(numA))
			}

			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false

			readerB.x += numA
			readerB.charOffset += numA
			readerB.moveforward = false

			aFin = !w.reader.nextByte()
			bFin = !readerB.nextByte()
		}

		if bFin && (!retVal || !writing) {
			if writing {
				w.gsm.Return(&w.out)
			}
			return retVal
		}
	}

	if writing {
		w.close()
	}
	w.out = nil
	return retVal
}

// intersectSegment intersects the destination with source. Returns true iff
// the destination shrank; an empty result collapses the slot to nil.
func (w *segmentWriter) intersectSegment(source Segment) bool {
	if w.seg == nil {
		return false
	}
	if source == nil {
		w.gsm.Return(w.pt)
		w.seg = nil
		return true
	}

	var (
		readerB    SegmentReader
		aFin, bFin bool
		numA, numB int64
		retVal     bool
		content    bool
		length     int64
	)
	writing := w.seg.size() > source.size()

startpoint:
	if writing {
		length = int64(smallExtraSizeAllowed * float64(w.seg.size()))
		w.internalIni(uint64(length))
	}

	w.reader.Set(w.seg)
	readerB.Set(source)

	aFin = !w.reader.nextByte()
	bFin = !readerB.nextByte()

	for !(aFin || bFin) {
		readA := w.reader.charOffset <= readerB.charOffset
		readB := readerB.charOffset <= w.reader.charOffset

		if readA && !readB {
			retVal = true
			if !writing {
				writing = true
				goto startpoint
			}
			numA = w.reader.runRemaining()
			if !bFin {
				if d := readerB.charOffset - w.reader.charOffset; d < numA {
					numA = d
				}
			}
			// nothing to push
			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false
			aFin = !w.reader.nextByte()
		} else if readB && !readA {
			numB = readerB.runRemaining()
			if !aFin {
				if d := w.reader.charOffset - readerB.charOffset; d < numB {
					numB = d
				}
			}
			// nothing to push
			readerB.x += numB
			readerB.charOffset += numB
			readerB.moveforward = false
			bFin = !readerB.nextByte()
		} else if readA && readB {
			numA = w.reader.runRemaining()
			numB = readerB.runRemaining()
			if numB < numA {
				numA = numB
			}

			var k int64
			for k = 0; k < numA; k++ {
				if k+8 < numA {
					av := binary.LittleEndian.Uint64(w.reader.seg[w.reader.x+k:])
					bv := binary.LittleEndian.Uint64(readerB.seg[readerB.x+k:])
					and := av & bv
					if !retVal && av != and {
						retVal = true
						if !writing {
							writing = true
							goto startpoint
						}
					}
					if and == 0 {
						numA = k + 8
						break
					}
					content = true
					binary.LittleEndian.PutUint64(w.reader.seg[w.reader.x+k:], and)
					k += 7
				} else {
					av := w.reader.seg[w.reader.x+k]
					and := av & readerB.seg[readerB.x+k]
					if !retVal && av != and {
						retVal = true
						if !writing {
							writing = true
							goto startpoint
						}
					}
					if and == 0 {
						numA = k + 1
						break
					}
					content = true
					w.reader.seg[w.reader.x+k] = and
				}
			}
			if k > 0 && writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+k], int(k))
			}

			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false

			readerB.x += numA
			readerB.charOffset += numA
			readerB.moveforward = false

			aFin = !w.reader.nextByte()
			bFin = !readerB.nextByte()
		}
	}

	if !aFin {
		retVal = true
		if !writing {
			writing = true
			goto startpoint
		}
	}

	if !retVal {
		if writing {
			w.gsm.Return(&w.out)
		}
		return false
	}

	if content {
		w.close()
		w.out = nil
	} else {
		if w.i > w.max {
			panic(NewErrCorruptedSegment("write exceeded allocated output"))
		}
		if !sameSlice(*w.pt, w.out) {
			w.gsm.Return(w.pt)
			w.gsm.Return(&w.out)
		} else {
			w.gsm.Return(w.pt)
			w.out = nil
		}
		w.seg = nil
	}

	return retVal
}

// subtractSegment removes the elements of source from the destination.
// Returns true iff the destination shrank; an empty result collapses the
// slot to nil.
func (w *segmentWriter) subtractSegment(source Segment) bool {
	if w.seg == nil {
		return false
	}
	if source == nil {
		return false
	}

	var (
		readerB    SegmentReader
		aFin, bFin bool
		numA, numB int64
		retVal     bool
		content    bool
		length     int64
	)
	writing := false

startpoint:
	if writing {
		length = int64(smallExtraSizeAllowed * float64(w.seg.size()))
		w.internalIni(uint64(length))
	}

	w.reader.Set(w.seg)
	readerB.Set(source)

	aFin = !w.reader.nextByte()
	bFin = !readerB.nextByte()

	for !aFin {
		readA := !aFin && (bFin || w.reader.charOffset <= readerB.charOffset)
		readB := !bFin && (aFin || readerB.charOffset <= w.reader.charOffset)

		if readA && !readB {
			numA = w.reader.runRemaining()
			if !bFin {
				if d := readerB.charOffset - w.reader.charOffset; d < numA {
					numA = d
				}
			}
			if writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+numA], int(numA))
			}
			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false
			aFin = !w.reader.nextByte()
			content = true
		} else if readB && !readA {
			numB = readerB.runRemaining()
			if !aFin {
				if d := w.reader.charOffset - readerB.charOffset; d < numB {
					numB = d
				}
			}
			// nothing to push
			readerB.x += numB
			readerB.charOffset += numB
			readerB.moveforward = false
			bFin = !readerB.nextByte()
		} else if readA && readB {
			numA = w.reader.runRemaining()
			numB = readerB.runRemaining()
			if numB < numA {
				numA = numB
			}

			var k int64
			for k = 0; k < numA; k++ {
				if k+8 < numA {
					av := binary.LittleEndian.Uint64(w.reader.seg[w.reader.x+k:])
					bv := binary.LittleEndian.Uint64(readerB.seg[readerB.x+k:])
					diff := av &^ bv
					if !retVal && av != diff {
						retVal = true
						if !writing {
							writing = true
							goto startpoint
						}
					}
					if diff == 0 {
						numA = k + 8
						break
					}
					content = true
					binary.LittleEndian.PutUint64(w.reader.seg[w.reader.x+k:], diff)
					k += 7
				} else {
					av := w.reader.seg[w.reader.x+k]
					diff := av &^ readerB.seg[readerB.x+k]
					if !retVal && av != diff {
						retVal = true
						if !writing {
							writing = true
							goto startpoint
						}
					}
					if diff == 0 {
						numA = k + 1
						break
					}
					content = true
					w.reader.seg[w.reader.x+k] = diff
				}
			}
			if k > 0 && writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+k], int(k))
			}

			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false

			readerB.x += numA
			readerB.charOffset += numA
			readerB.moveforward = false

			aFin = !w.reader.nextByte()
			bFin = !readerB.nextByte()
		}

		if aFin && !writing {
			return false
		}
		if bFin && !retVal {
			if writing {
				w.gsm.Return(&w.out)
			}
			return false
		}
	}

	if content {
		w.close()
		w.out = nil
	} else {
		if w.i > w.max {
			panic(NewErrCorruptedSegment("write exceeded allocated output"))
		}
		w.gsm.Return(&w.out)
		w.gsm.Return(w.pt)
		w.seg = nil
	}

	return retVal
}

// addItem inserts a single bit. The common append-at-the-tail case reopens
// the trailing sequence recorded in the header instead of re-merging the
// whole body.
func (w *segmentWriter) addItem(item int) bool {
	charOffsetB := int64(item / 8)

	if w.seg == nil {
		return w.addItemGeneral(item)
	}
	lastByteOffset := w.seg.lastByteOffset()
	if lastByteOffset > charOffsetB {
		return w.addItemGeneral(item)
	}
	length := int64(w.seg.size())
	maxLength := int64(w.seg.capacity())
	if maxLength < length+5 {
		newSize := int64(extraSizeAllowed * float64(length))
		if newSize < length+5 {
			newSize = length + 5
		}
		ensureSegmentLength(w.pt, newSize, w.gsm, length)
		w.seg = *w.pt
		maxLength = int64(w.seg.capacity())
	}

	byteB := byte(1) << (item % 8)
	retVal := false
	var addition byte

	w.out = w.seg
	w.byteOffset = lastByteOffset
	w.max = maxLength
	w.i = length
	w.seqStart = w.i

	if lastSequenceLength := int64(w.seg.lastSequenceLength()); lastSequenceLength > 0 {
		w.seqStart = w.i - lastSequenceLength - 2
	}

	if lastByteOffset == charOffsetB {
		if w.seqStart == w.i {
			w.seqStart--
		}
		w.i--

		addition = w.out[w.i] | byteB
		if w.out[w.i] != addition {
			retVal = true
		}
	} else {
		retVal = true
		addition = byteB
	}

	w.pushByte(charOffsetB, addition)
	w.close()
	w.out = nil

	return retVal
}

// addItemGeneral inserts a bit anywhere in the body via a full merge.
func (w *segmentWriter) addItemGeneral(item int) bool {
	var (
		aFin, bFin bool
		retVal     bool
		length     int64
	)
	writing := false
	charOffsetB := int64(item / 8)
	byteB := byte(1) << (item % 8)

startpoint:
	if w.seg == nil {
		length = headerSize + 4
		writing = true
	} else {
		length = int64(w.seg.size()) + 4
	}
	if writing {
		w.internalIni(uint64(length))
	}

	w.reader.Set(w.seg)

	aFin = !w.reader.nextByte()
	bFin = false

	for !(aFin && bFin) {
		readA := !aFin && (bFin || w.reader.charOffset <= charOffsetB)
		readB := !bFin && (aFin || charOffsetB <= w.reader.charOffset)

		if readA && !readB {
			if !w.reader.moveforward {
				panic(NewErrCorruptedSegment("byte cursor did not advance"))
			}

			numA := w.reader.runRemaining()
			if !bFin {
				if d := charOffsetB - w.reader.charOffset; d < numA {
					numA = d
				}
			}

			if writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+numA], int(numA))
			}
			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false

			aFin = !w.reader.nextByte()
		} else if readB && !readA {
			retVal = true
			if !writing {
				writing = true
				goto startpoint
			}

			w.pushByte(charOffsetB, byteB)
			bFin = true
		} else if readA && readB {
			addition := w.reader.seg[w.reader.x] | byteB
			if w.reader.seg[w.reader.x] != addition {
				retVal = true
			}

			if isIsolatedByte(addition) || w.reader.x < w.reader.lsf {
				w.reader.seg[w.reader.x] = addition
				if writing {
					w.gsm.Return(&w.out)
				}
				return retVal
			} else if !writing {
				writing = true
				goto startpoint
			} else {
				w.pushByte(w.reader.charOffset, addition)
			}
			aFin = !w.reader.nextByte()
			bFin = true
		}

		if bFin && !retVal {
			if writing {
				w.gsm.Return(&w.out)
			}
			return false
		}
	}

	if writing {
		w.close()
	}
	w.out = nil

	return retVal
}

// removeItem clears a single bit. Returns true iff the bit was present; an
// empty result collapses the slot to nil.
func (w *segmentWriter) removeItem(item int) bool {
	if w.seg == nil {
		return false
	}

	var (
		aFin, bFin bool
		retVal     bool
		content    bool
		length     int64
	)
	writing := false
	charOffsetB := int64(item / 8)
	byteB := byte(1) << (item % 8)

startpoint:
	if writing {
		length = int64(w.seg.size()) + 4
		w.internalIni(uint64(length))
	}

	w.reader.Set(w.seg)

	aFin = !w.reader.nextByte()
	bFin = false

	for !aFin {
		readA := !aFin && (bFin || w.reader.charOffset <= charOffsetB)
		readB := !bFin && (aFin || charOffsetB <= w.reader.charOffset)

		if readA && !readB {
			numA := w.reader.runRemaining()
			if !bFin {
				if d := charOffsetB - w.reader.charOffset; d < numA {
					numA = d
				}
			}

			if writing {
				w.pushLiteralSequence(w.reader.charOffset, w.reader.seg[w.reader.x:w.reader.x+numA], int(numA))
			}
			w.reader.x += numA
			w.reader.charOffset += numA
			w.reader.moveforward = false

			aFin = !w.reader.nextByte()
			content = true
		} else if readB && !readA {
			bFin = true
		} else if readA && readB {
			subtraction := w.reader.seg[w.reader.x] &^ byteB
			if w.reader.seg[w.reader.x] != subtraction {
				retVal = true
			}
			if subtraction == 0 {
				if !writing {
					writing = true
					goto startpoint
				}
			} else {
				if isIsolatedByte(subtraction) || w.reader.x < w.reader.lsf {
					w.reader.seg[w.reader.x] = subtraction
					if writing {
						w.gsm.Return(&w.out)
					}
					return retVal
				} else if !writing {
					writing = true
					goto startpoint
				}
				w.pushByte(w.reader.charOffset, subtraction)
				content = true
			}
			aFin = !w.reader.nextByte()
			bFin = true
		}

		if bFin && !retVal {
			if writing {
				w.gsm.Return(&w.out)
			}
			return false
		}
	}

	if content {
		if writing {
			w.close()
		}
		w.out = nil
	} else {
		if w.i > w.max {
			panic(NewErrCorruptedSegment("write exceeded allocated output"))
		}
		w.gsm.Return(&w.out)
		w.gsm.Return(w.pt)
		w.seg = nil
	}

	return retVal
}
