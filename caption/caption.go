/*
DESCRIPTION
  caption.go implements the CEA-708 envelope validation and CEA-608
  character-pair decode that make up the final stage of the caption
  extraction pipeline: given the payload of an
  user_data_registered_itu_t_t35 SEI message, produce the caption
  strings it carries.

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

package caption

import "strings"

// userIdentifier is the fixed 4-byte ATSC A/53 GA94 envelope marker.
var userIdentifier = [4]byte{'G', 'A', '9', '4'}

const (
	ituT35CountryCodeUS = 0xb5
	userDataTypeCode    = 0x03
)

// Decode validates the ATSC A/53 GA94 envelope on payload and, if it
// validates, decodes every CEA-608 (cc_type 0 or 1) triplet it
// contains into a single trimmed caption string. It returns ("",
// false) for any envelope mismatch, a payload too short to hold the
// envelope header, or a result that's empty after trimming — per spec,
// decode ambiguities are silent, not errors. When fewer triplets are
// present than cc_count declares, the complete triplets that are
// present are still decoded.
func Decode(payload []byte) (string, bool) {
	if len(payload) < 9 {
		return "", false
	}
	if payload[0] != ituT35CountryCodeUS {
		return "", false
	}
	if payload[3] != userIdentifier[0] || payload[4] != userIdentifier[1] ||
		payload[5] != userIdentifier[2] || payload[6] != userIdentifier[3] {
		return "", false
	}
	if payload[7] != userDataTypeCode {
		return "", false
	}

	flagsAndCount := payload[8]
	processCCData := flagsAndCount&0x40 != 0
	ccCount := int(flagsAndCount & 0x1f)
	if !processCCData {
		return "", false
	}

	// Byte 9 is em_data, skipped; triplets begin at byte 10.
	const tripletsStart = 10
	need := tripletsStart + ccCount*3
	if len(payload) < need {
		ccCount = (len(payload) - tripletsStart) / 3
	}

	var sb strings.Builder
	for i := 0; i < ccCount; i++ {
		off := tripletsStart + i*3
		b0, b1, b2 := payload[off], payload[off+1], payload[off+2]

		ccValid := b0&0x04 != 0
		ccType := b0 & 0x03
		if !ccValid || ccType > 1 {
			continue
		}

		if s, ok := decodePair(b1, b2); ok {
			sb.WriteString(s)
		}
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", false
	}
	return out, true
}

// decodePair decodes one CEA-608 character pair per §4.D steps 1-6,
// applying the noise filter to the result.
func decodePair(data1, data2 byte) (string, bool) {
	c1 := data1 & 0x7f
	c2 := data2 & 0x7f

	if c1 == 0x00 && c2 == 0x00 {
		return "", false
	}

	var sb strings.Builder
	switch {
	case c1 == 0x11 && c2 >= 0x30 && c2 <= 0x3f:
		sb.WriteRune(specialChar(c2))
	case (c1 == 0x12 || c1 == 0x13) && c2 >= 0x20 && c2 <= 0x3f:
		sb.WriteRune(extendedChar(c1, c2))
	case c1 >= 0x10 && c1 <= 0x1f:
		return "", false
	default:
		if c1 >= 0x20 && c1 <= 0x7f {
			sb.WriteByte(c1)
		}
		if c2 >= 0x20 && c2 <= 0x7f {
			sb.WriteByte(c2)
		}
	}

	return filterNoise(sb.String())
}

// filterNoise drops a per-pair result that trims to exactly one of the
// characters known to be injected by ancillary-data timing patterns
// that pass the earlier checks ("@", ",", "/", " ").
func filterNoise(s string) (string, bool) {
	switch strings.TrimSpace(s) {
	case "@", ",", "/":
		return "", false
	}
	if s == " " {
		return "", false
	}
	if s == "" {
		return "", false
	}
	return s, true
}
