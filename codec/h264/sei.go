/*
DESCRIPTION
  sei.go parses the Supplemental Enhancement Information messages
  carried in a NAL unit of type SEI, selecting only the
  user_data_registered_itu_t_t35 messages (payload_type 4) that carry
  closed captions.

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

// UserDataRegisteredITUT35 is the SEI payload_type carrying ATSC A/53
// closed-caption data.
const UserDataRegisteredITUT35 = 4

// SEIMessage is one decoded SEI message: its declared type, size, and
// the payload bytes themselves (exactly payload_size bytes long).
type SEIMessage struct {
	PayloadType int
	PayloadSize int
	Payload     []byte
}

// ParseSEI walks the RBSP of an SEI NAL unit (with the 1-byte NAL
// header and emulation-prevention bytes already stripped) and returns
// every user_data_registered_itu_t_t35 message found. Truncated
// type/size chains or payloads shorter than declared stop iteration at
// that point without error; messages found up to the truncation are
// still returned.
func ParseSEI(rbsp []byte) []SEIMessage {
	var out []SEIMessage
	off := 0
	for off < len(rbsp) {
		payloadType, n, ok := readFFChain(rbsp[off:])
		if !ok {
			return out
		}
		off += n

		payloadSize, n, ok := readFFChain(rbsp[off:])
		if !ok {
			return out
		}
		off += n

		if off+payloadSize > len(rbsp) {
			return out
		}
		payload := rbsp[off : off+payloadSize]
		off += payloadSize

		if payloadType == UserDataRegisteredITUT35 {
			out = append(out, SEIMessage{
				PayloadType: payloadType,
				PayloadSize: payloadSize,
				Payload:     payload,
			})
		}
	}
	return out
}

// readFFChain reads a 0xFF-chain-escaped value: the sum of any number
// of leading 0xFF bytes, plus a final terminating byte less than 255.
// It returns the value, the number of bytes consumed, and whether a
// terminating byte was found before b was exhausted.
func readFFChain(b []byte) (value, consumed int, ok bool) {
	for _, c := range b {
		consumed++
		value += int(c)
		if c != 0xff {
			return value, consumed, true
		}
	}
	return 0, 0, false
}

// StripEmulationPrevention collapses the three-byte sequence 00 00 03
// to 00 00, as required before SEI/RBSP bytes are otherwise
// interpreted. It does not touch the NAL-unit start-code scanning
// buffer, which must see the bytes unmodified.
func StripEmulationPrevention(nal []byte) []byte {
	out := make([]byte, 0, len(nal))
	zeros := 0
	for _, b := range nal {
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}
