/*
DESCRIPTION
  demux.go implements a minimal MPEG-TS demultiplexer: PAT/PMT
  discovery and PES reassembly for a single video elementary stream.
  Unlike the rest of this package's teacher lineage, which builds TS
  streams, this file only reads them.

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

package mts

// PacketSize is the fixed size of an MPEG-TS packet.
const PacketSize = 188

// Reserved PIDs.
const (
	PatPid = 0x0000
)

// Elementary stream types this demultiplexer recognises as video.
const (
	StreamTypeH264 = 0x1B
	StreamTypeH265 = 0x24
)

const syncByte = 0x47

// Payload is a single reassembled PES payload chunk for the chosen
// video PID, accompanied by its presentation/decode timestamps in
// seconds. DTS/CTS are zero when no PES header accompanied the chunk.
type Payload struct {
	Data []byte
	DTS  float64
	CTS  float64
}

// Demuxer walks a sequence of 188-byte MPEG-TS packets, discovers the
// PMT via the PAT, locks onto the first H.264/H.265 elementary stream
// it finds, and reassembles that stream's PES payloads.
//
// A Demuxer is not safe for concurrent use and holds no state beyond
// what's needed within one segment; construct a fresh one per segment.
type Demuxer struct {
	pmtPid     int
	pmtPidSet  bool
	videoPid   int
	videoSet   bool
	streamType byte
}

// NewDemuxer returns a ready-to-use Demuxer with no PIDs learnt yet.
func NewDemuxer() *Demuxer {
	return &Demuxer{pmtPid: -1, videoPid: -1}
}

// StreamType returns the elementary stream type of the locked-on video
// PID (StreamTypeH264 or StreamTypeH265), valid only once Demux has
// yielded at least one payload.
func (d *Demuxer) StreamType() byte { return d.streamType }

// Demux scans seg as a sequence of fixed-size TS packets and returns,
// in order, the PES payloads belonging to the chosen video PID.
//
// Demux never panics: any malformed or truncated packet, section, or
// PES header is silently skipped and parsing continues with the next
// packet, per this package's failure-tolerant contract.
func (d *Demuxer) Demux(seg []byte) []Payload {
	var out []Payload
	for off := 0; off+PacketSize <= len(seg); off += PacketSize {
		pkt := seg[off : off+PacketSize]
		if pkt[0] != syncByte {
			continue
		}
		p, ok := d.demuxPacket(pkt)
		if ok {
			out = append(out, p)
		}
	}
	return out
}

// demuxPacket processes a single 188-byte TS packet, returning a
// payload when the packet belongs to the chosen video PID and carries
// usable payload bytes.
func (d *Demuxer) demuxPacket(pkt []byte) (Payload, bool) {
	if len(pkt) < 4 {
		return Payload{}, false
	}

	pusi := pkt[1]&0x40 != 0
	pid := (int(pkt[1]&0x1f) << 8) | int(pkt[2])

	afc := (pkt[3] >> 4) & 0x3
	hasAdaptation := afc&0x2 != 0
	hasPayload := afc&0x1 != 0

	i := 4
	if hasAdaptation {
		if i >= len(pkt) {
			return Payload{}, false
		}
		adaptLen := int(pkt[i])
		i += 1 + adaptLen
		if i > len(pkt) {
			return Payload{}, false
		}
	}
	if !hasPayload || i >= len(pkt) {
		return Payload{}, false
	}

	switch {
	case pid == PatPid:
		d.readPAT(pkt[i:], pusi)
		return Payload{}, false
	case d.pmtPidSet && pid == d.pmtPid:
		d.readPMT(pkt[i:], pusi)
		return Payload{}, false
	case d.videoSet && pid == d.videoPid:
		return d.readPES(pkt[i:], pusi)
	default:
		return Payload{}, false
	}
}

// readPAT extracts the PMT PID from a PAT section. Once a PMT PID has
// been learnt it is never overwritten: spec invariant "video PID is
// learnt exactly once per stream".
func (d *Demuxer) readPAT(payload []byte, pusi bool) {
	if d.pmtPidSet || !pusi || len(payload) == 0 {
		return
	}
	pointer := int(payload[0])
	if len(payload) < 1+pointer+12 {
		return
	}
	sec := payload[1+pointer:]
	if len(sec) < 12 {
		return
	}
	pmtPid := (int(sec[10]&0x1f) << 8) | int(sec[11])
	d.pmtPid = pmtPid
	d.pmtPidSet = true
}

// readPMT extracts the first H.264/H.265 elementary stream's PID from
// a PMT section, per spec's section_length/program_info_length/
// descriptor-loop walk. Bounds are checked before every read.
func (d *Demuxer) readPMT(payload []byte, pusi bool) {
	if d.videoSet || !pusi || len(payload) == 0 {
		return
	}
	pointer := int(payload[0])
	if len(payload) < 1+pointer+12 {
		return
	}
	sec := payload[1+pointer:]
	if len(sec) < 12 {
		return
	}

	sectionLength := (int(sec[1]&0xf) << 8) | int(sec[2])
	programInfoLength := (int(sec[10]&0xf) << 8) | int(sec[11])

	descLoopLen := sectionLength - (9 + programInfoLength + 4)
	if descLoopLen < 0 {
		return
	}

	off := 12 + programInfoLength
	if off > len(sec) {
		return
	}

	for descLoopLen >= 5 && off+5 <= len(sec) {
		streamType := sec[off]
		elemPid := (int(sec[off+1]&0x1f) << 8) | int(sec[off+2])
		esInfoLength := (int(sec[off+3]&0xf) << 8) | int(sec[off+4])

		if streamType == StreamTypeH264 || streamType == StreamTypeH265 {
			d.videoPid = elemPid
			d.streamType = streamType
			d.videoSet = true
			return
		}

		adv := 5 + esInfoLength
		off += adv
		descLoopLen -= adv
	}
}

// readPES extracts PTS/DTS (when present) from a PES header at the
// start of a payload-unit-start packet, and returns the remaining
// bytes as the payload. Packets without PUSI are passed through
// unchanged (continuation of a previous PES packet).
func (d *Demuxer) readPES(payload []byte, pusi bool) (Payload, bool) {
	if !pusi {
		if len(payload) == 0 {
			return Payload{}, false
		}
		return Payload{Data: payload}, true
	}

	// PES packet: 00 00 01, stream_id, PES_packet_length (2), then the
	// optional PES header starting with two flag bytes.
	if len(payload) < 9 {
		return Payload{}, false
	}
	if payload[0] != 0x00 || payload[1] != 0x00 || payload[2] != 0x01 {
		return Payload{}, false
	}

	flags := payload[7]
	ptsFlag := flags&0x80 != 0
	dtsFlag := flags&0x40 != 0
	headerLength := int(payload[8])

	var pts, dts int64
	if ptsFlag {
		if len(payload) < 9+5 {
			return Payload{}, false
		}
		pts = extractTimestamp(payload[9:14])
		dts = pts
	}
	if dtsFlag {
		if len(payload) < 14+5 {
			return Payload{}, false
		}
		dts = extractTimestamp(payload[14:19])
	}

	start := 9 + headerLength
	if start > len(payload) {
		return Payload{}, false
	}

	const clockHz = 90000
	return Payload{
		Data: payload[start:],
		DTS:  float64(dts) / clockHz,
		CTS:  float64(pts-dts) / clockHz,
	}, true
}

// extractTimestamp reconstructs a 33-bit PTS/DTS value from its 5-byte
// encoding: [X][TS32..30][m][TS29..22][m][TS21..15][m][TS14..7][m][TS6..0][m].
func extractTimestamp(b []byte) int64 {
	return (int64((b[0]>>1)&0x07) << 30) |
		(int64(b[1]) << 22) |
		(int64((b[2]>>1)&0x7f) << 15) |
		(int64(b[3]) << 7) |
		int64((b[4]>>1)&0x7f)
}
