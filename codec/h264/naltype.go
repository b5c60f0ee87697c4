/*
DESCRIPTION
  naltype.go defines H.264/H.265 NAL unit type identifiers used to
  classify units produced by the Annex-B scanner, and the handful of
  helpers needed to read a type from a framed unit.

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

import "errors"

// H.264 (Rec. ITU-T H.264, Table 7-1) nal_unit_type values relevant to
// stream classification and caption extraction.
const (
	NALTypeNonIDR              = 1
	NALTypeIDR                 = 5
	NALTypeSEI                 = 6
	NALTypeSPS                 = 7
	NALTypePPS                 = 8
	NALTypeAccessUnitDelimiter = 9
)

// H.265 (Rec. ITU-T H.265, Table 7-1) nal_unit_type values. H.265 packs
// the type into bits 1-6 of the first header byte rather than the low
// 5 bits of a single byte as H.264 does; ExtractType accounts for this
// difference given the codec in use.
const (
	NALTypeH265Prefix   = 39
	NALTypeH265Suffix   = 40
)

var errNotEnoughBytes = errors.New("h264: not enough bytes to read NAL type")

// ExtractType returns the nal_unit_type of a single framed NAL unit
// (i.e. the bytes between start codes, with no leading 00 00 00 01 /
// 00 00 01 prefix). is265 selects the H.265 header layout.
func ExtractType(unit []byte, is265 bool) (int, error) {
	if len(unit) == 0 {
		return 0, errNotEnoughBytes
	}
	if is265 {
		if len(unit) < 2 {
			return 0, errNotEnoughBytes
		}
		return int(unit[0]>>1) & 0x3f, nil
	}
	return int(unit[0] & 0x1f), nil
}
