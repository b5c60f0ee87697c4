package mts

import (
	"bytes"
	"testing"
)

// pad returns b extended to PacketSize with 0xFF stuffing bytes.
func pad(b []byte) []byte {
	out := make([]byte, PacketSize)
	copy(out, b)
	for i := len(b); i < PacketSize; i++ {
		out[i] = 0xff
	}
	return out
}

func patPacket(pmtPid int) []byte {
	sec := []byte{
		0x00,                                   // pointer field
		0x00,                                   // table_id
		0xb0, 0x0d,                             // section_syntax+reserved, section_length=13
		0x00, 0x01, // transport_stream_id
		0xc1,       // version/current_next
		0x00,       // section_number
		0x00,       // last_section_number
		0x00, 0x01, // program_number
		byte(0xe0 | (pmtPid>>8)&0x1f), byte(pmtPid), // reserved(3)+PMT pid(13)
		0, 0, 0, 0, // CRC32 (ignored)
	}
	hdr := []byte{syncByte, 0x40, 0x00, 0x10} // PUSI set, PID 0, payload only
	return pad(append(hdr, sec...))
}

func pmtPacket(pmtPid, streamType, videoPid int) []byte {
	// Section after pointer field: table_id..program_info_length, then one stream entry.
	sectionLength := 13 + 5 // fixed fields (9) + CRC(4) + one ES entry(5)... kept simple
	sec := []byte{
		0x00, // pointer field
		0x02, // table_id (PMT)
		byte(0xb0 | (sectionLength>>8)&0xf), byte(sectionLength),
		0x00, 0x01, // program_number
		0xc1, // version/current_next
		0x00, // section_number
		0x00, // last_section_number
		0xe1, 0x00, // reserved+PCR_PID
		0xf0, 0x00, // reserved+program_info_length=0
		byte(streamType),
		byte(0xe0 | (videoPid>>8)&0x1f), byte(videoPid),
		0xf0, 0x00, // reserved+ES_info_length=0
		0, 0, 0, 0, // CRC32
	}
	hdr := []byte{syncByte, byte(0x40 | (pmtPid>>8)&0x1f), byte(pmtPid), 0x10}
	return pad(append(hdr, sec...))
}

func pesPacket(videoPid int, pts, dts int64, hasDTS bool, payload []byte) []byte {
	flags := byte(0x80)
	hdrLen := byte(5)
	tsBytes := encodeTS(0x2, pts)
	pesHeader := []byte{0x00, 0x00, 0x01, 0xe0, 0x00, 0x00, 0x80}
	if hasDTS {
		flags = 0xc0
		hdrLen = 10
		tsBytes = append(encodeTS(0x3, pts), encodeTS(0x1, dts)...)
	}
	pesHeader = append(pesHeader, flags, hdrLen)
	pesHeader = append(pesHeader, tsBytes...)
	body := append(pesHeader, payload...)

	// Adaptation field plus payload: the packet is filled out with
	// adaptation-field stuffing so that body is the whole TS payload.
	hdr := []byte{syncByte, byte(0x40 | (videoPid>>8)&0x1f), byte(videoPid), 0x30}
	stuffing := PacketSize - len(hdr) - 1 - len(body)
	af := []byte{byte(stuffing)}
	if stuffing > 0 {
		af = append(af, 0x00) // adaptation field flags
		af = append(af, bytes.Repeat([]byte{0xff}, stuffing-1)...)
	}
	return append(append(hdr, af...), body...)
}

func encodeTS(prefix byte, ts int64) []byte {
	b := make([]byte, 5)
	b[0] = (prefix << 4) | byte((ts>>30)&0x07)<<1 | 0x01
	b[1] = byte(ts >> 22)
	b[2] = byte((ts>>15)&0x7f)<<1 | 0x01
	b[3] = byte(ts >> 7)
	b[4] = byte(ts&0x7f)<<1 | 0x01
	return b
}

func TestDemuxPATPMTPES(t *testing.T) {
	const pmtPid, videoPid = 0x100, 0x101
	seg := bytes.Join([][]byte{
		patPacket(pmtPid),
		pmtPacket(pmtPid, StreamTypeH264, videoPid),
		pesPacket(videoPid, 1000, 0, false, []byte("hello")),
	}, nil)

	d := NewDemuxer()
	payloads := d.Demux(seg)
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	if !bytes.Equal(payloads[0].Data, []byte("hello")) {
		t.Errorf("payload = %q, want %q", payloads[0].Data, "hello")
	}
	if d.StreamType() != StreamTypeH264 {
		t.Errorf("StreamType() = %#x, want H264", d.StreamType())
	}
}

func TestDemuxSkipsBadSyncByte(t *testing.T) {
	bad := pad([]byte{0x00})
	d := NewDemuxer()
	if got := d.Demux(bad); got != nil {
		t.Errorf("Demux() = %v, want nil for non-sync packet", got)
	}
}

func TestDemuxVideoPIDLearntOnce(t *testing.T) {
	const pmtPid, videoPid, otherPid = 0x100, 0x101, 0x102
	seg := bytes.Join([][]byte{
		patPacket(pmtPid),
		pmtPacket(pmtPid, StreamTypeH264, videoPid),
		pmtPacket(pmtPid, StreamTypeH264, otherPid), // later revision, must be ignored
		pesPacket(videoPid, 0, 0, false, []byte("a")),
		pesPacket(otherPid, 0, 0, false, []byte("b")),
	}, nil)

	d := NewDemuxer()
	payloads := d.Demux(seg)
	if len(payloads) != 1 || string(payloads[0].Data) != "a" {
		t.Fatalf("got %v, want one payload from the original video PID", payloads)
	}
}

func TestDemuxTruncatedPacketNeverPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Demux panicked: %v", r)
		}
	}()

	// Adaptation field present (AFC bit set), claiming a length that
	// overruns the packet; must be skipped, not indexed out of bounds.
	overrun := pad([]byte{syncByte, 0x40, 0x00, 0x30, 0xff})
	NewDemuxer().Demux(overrun)

	// Shorter than one packet stride: the outer loop must simply skip it.
	short := []byte{syncByte, 0x40, 0x00, 0x10, 0x00}
	NewDemuxer().Demux(short)

	NewDemuxer().Demux(nil)
}
