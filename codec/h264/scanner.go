/*
DESCRIPTION
  scanner.go implements a streaming Annex-B NAL unit scanner: push any
  byte chunk, drain the NAL units that are now fully framed, flush the
  trailing unit at end of stream. A NAL unit frequently spans more than
  one PES payload, so this cannot be a per-chunk pure function — see
  NALScanner's doc comment.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

// MaxBufferSize bounds the NALScanner's rolling buffer. A malformed
// stream containing no start codes is clamped here rather than
// allowed to grow without limit.
const MaxBufferSize = 6 << 20 // 6 MiB

// NALScanner frames Annex-B NAL units out of a byte stream that may
// arrive in arbitrarily small or large chunks, including chunks that
// split a start code itself. It holds at most one incomplete NAL
// unit's worth of state at any time.
//
// A NALScanner is not safe for concurrent use; construct one per
// segment.
type NALScanner struct {
	buf []byte
}

// NewNALScanner returns an empty, ready-to-use scanner.
func NewNALScanner() *NALScanner {
	return &NALScanner{}
}

// Push appends b to the scanner's rolling buffer. If the resulting
// buffer would exceed MaxBufferSize, the existing buffer is discarded
// first (the partial NAL unit in progress is lost, not reported) so
// that a malformed stream can never grow memory without bound.
func (s *NALScanner) Push(b []byte) {
	if len(s.buf)+len(b) > MaxBufferSize {
		s.buf = s.buf[:0]
	}
	s.buf = append(s.buf, b...)
}

// Drain returns all NAL units fully framed by two start codes found so
// far, leaving any trailing incomplete unit in the buffer for the next
// Push/Drain/Flush. The leading start code of that trailing unit is
// kept (not just its content), so that unit's boundary survives being
// split across further Push calls.
func (s *NALScanner) Drain() [][]byte {
	var units [][]byte
	starts := findStartCodes(s.buf)
	if len(starts) < 2 {
		return nil
	}
	for i := 0; i < len(starts)-1; i++ {
		units = append(units, s.buf[starts[i].end:starts[i+1].start])
	}
	// Keep the last start code itself along with the bytes after it:
	// that NAL unit isn't known to be complete yet, but its starting
	// boundary must persist so a later Drain/Flush can still frame it
	// correctly even if nothing more ever starts a new unit.
	s.buf = append([]byte(nil), s.buf[starts[len(starts)-1].start:]...)
	return units
}

// Flush drains any remaining complete units and then treats whatever
// follows the final start code as one last NAL unit, clearing all
// state. Call Flush once at the end of a segment.
func (s *NALScanner) Flush() [][]byte {
	units := s.Drain()

	tail := s.buf
	if starts := findStartCodes(tail); len(starts) > 0 {
		tail = tail[starts[0].end:]
	}
	if len(tail) > 0 {
		units = append(units, append([]byte(nil), tail...))
	}

	s.buf = s.buf[:0]
	return units
}

// startCode records the span of one Annex-B start code within buf:
// [start, end) is the start code itself (including any leading zero
// byte of the 4-byte form).
type startCode struct {
	start, end int
}

// findStartCodes locates every 00 00 01 / 00 00 00 01 start code in
// buf, left to right, non-overlapping.
func findStartCodes(buf []byte) []startCode {
	var found []startCode
	for i := 0; i+3 <= len(buf); i++ {
		if buf[i] != 0x00 || buf[i+1] != 0x00 {
			continue
		}
		if buf[i+2] != 0x01 {
			continue
		}
		end := i + 3
		found = append(found, startCode{start: i, end: end})
		i = end - 1
	}
	return normalizeFourByteForm(buf, found)
}

// normalizeFourByteForm extends each detected 00 00 01 match to 00 00
// 00 01 when a further leading zero byte precedes it, matching the
// "00 00 00 01 preferred" framing rule without double-counting.
func normalizeFourByteForm(buf []byte, codes []startCode) []startCode {
	for i := range codes {
		if codes[i].start > 0 && buf[codes[i].start-1] == 0x00 {
			codes[i].start--
		}
	}
	return codes
}
