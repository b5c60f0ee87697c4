/*
DESCRIPTION
  pipeline.go wires the four caption-extraction stages (TS demux, NAL
  scan, SEI parse, CEA-608 decode) into a single per-segment Pipeline,
  matching the flush-after-last-payload contract described by the
  system overview.

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

// Package inspect orchestrates the caption extraction pipeline across
// segments of a playlist, owning the per-playlist dedup set and the
// per-segment worker fan-out.
package inspect

import (
	"github.com/ausocean/utils/logging"

	"github.com/benburkhart1/hlscaptionfinder/caption"
	"github.com/benburkhart1/hlscaptionfinder/codec/h264"
	"github.com/benburkhart1/hlscaptionfinder/container/mts"
)

// nalTypeSEIH264 and nalTypeSEIH265 are the NAL unit types that may
// carry SEI messages.
const (
	nalTypeSEIH264 = 6
	nalTypeSEIH265 = 39
)

// Pipeline runs the four caption-extraction stages over the segments
// of a single MPEG-TS file. A Pipeline is not reused across segments:
// construct a fresh one per segment so that no TS-demux or NAL-scanner
// state leaks between segments, per the system's lifecycle rule.
type Pipeline struct {
	demux   *mts.Demuxer
	scanner *h264.NALScanner
	log     logging.Logger
}

// NewPipeline returns a Pipeline ready to process one segment.
func NewPipeline(log logging.Logger) *Pipeline {
	return &Pipeline{
		demux:   mts.NewDemuxer(),
		scanner: h264.NewNALScanner(),
		log:     log,
	}
}

// Process runs segment through all four stages and returns the
// caption strings it carried, in the order their SEI messages
// appeared.
func (p *Pipeline) Process(segment []byte) []string {
	var captions []string

	payloads := p.demux.Demux(segment)
	for _, pl := range payloads {
		p.scanner.Push(pl.Data)
		captions = append(captions, p.drainSEI(p.scanner.Drain())...)
	}
	captions = append(captions, p.drainSEI(p.scanner.Flush())...)

	return captions
}

// drainSEI runs every SEI-type NAL unit in units through Stage C and
// D, returning the resulting caption strings in order.
func (p *Pipeline) drainSEI(units [][]byte) []string {
	is265 := p.demux.StreamType() == mts.StreamTypeH265

	var out []string
	for _, unit := range units {
		if len(unit) == 0 {
			continue
		}
		nalType, err := h264.ExtractType(unit, is265)
		if err != nil {
			continue
		}
		if nalType != nalTypeSEIH264 && nalType != nalTypeSEIH265 {
			continue
		}

		headerLen := 1
		if is265 {
			headerLen = 2
		}
		rbsp := h264.StripEmulationPrevention(unit[headerLen:])
		for _, msg := range h264.ParseSEI(rbsp) {
			text, ok := caption.Decode(msg.Payload)
			if !ok {
				p.log.Debug("SEI message did not yield a caption", "payload_type", msg.PayloadType)
				continue
			}
			out = append(out, text)
		}
	}
	return out
}
