package caption

import "testing"

func withParity(b byte) byte {
	// Sets the parity bit so AND 0x7F round-trips to b; the exact bit
	// chosen doesn't matter to Decode, which always strips it.
	return b | 0x80
}

func envelope(ccCount byte, triplets []byte) []byte {
	p := []byte{
		ituT35CountryCodeUS,
		0x00, 0x00, // provider code, ignored
		'G', 'A', '9', '4',
		userDataTypeCode,
		0x40 | ccCount, // process_cc_data_flag set
		0x00,           // em_data
	}
	return append(p, triplets...)
}

func triplet(valid bool, ccType byte, d1, d2 byte) []byte {
	b0 := ccType & 0x03
	if valid {
		b0 |= 0x04
	}
	b0 |= 0xf8 // marker bits, high 5 bits should read as 0x1F
	return []byte{b0, d1, d2}
}

func TestDecodeHello(t *testing.T) {
	trips := append(append(
		triplet(true, 0, withParity('H'), withParity('E')),
		triplet(true, 0, withParity('L'), withParity('L'))...),
		triplet(true, 0, withParity('O'), 0x80)...)
	payload := envelope(3, trips)

	got, ok := Decode(payload)
	if !ok || got != "HELLO" {
		t.Fatalf("Decode() = (%q, %v), want (\"HELLO\", true)", got, ok)
	}
}

func TestDecodeEnvelopeRejection(t *testing.T) {
	payload := envelope(1, triplet(true, 0, 'H', 'E'))
	payload[3], payload[4], payload[5], payload[6] = 'B', 'A', 'D', 'X'

	if _, ok := Decode(payload); ok {
		t.Errorf("Decode() accepted a BADX envelope")
	}
}

func TestDecodeControlCodeSuppressed(t *testing.T) {
	trips := append(
		triplet(true, 0, 0x14, 0x20), // PAC, must produce nothing
		triplet(true, 0, withParity('O'), withParity('K'))...)
	payload := envelope(2, trips)

	got, ok := Decode(payload)
	if !ok || got != "OK" {
		t.Fatalf("Decode() = (%q, %v), want (\"OK\", true)", got, ok)
	}
}

func TestDecodeSpecialCharacter(t *testing.T) {
	payload := envelope(1, triplet(true, 0, 0x11, 0xb7))
	got, ok := Decode(payload)
	if !ok || got != "♪" {
		t.Fatalf("Decode() = (%q, %v), want (\"♪\", true)", got, ok)
	}
}

func TestDecodeNoiseFilter(t *testing.T) {
	for _, noisy := range [][2]byte{{'@', 0}, {',', 0}, {'/', 0}, {' ', 0}} {
		payload := envelope(1, triplet(true, 0, noisy[0], noisy[1]))
		if got, ok := Decode(payload); ok {
			t.Errorf("Decode(%v) = (%q, true), want rejection by noise filter", noisy, got)
		}
	}
}

func TestDecodeTruncatedTripletsSilent(t *testing.T) {
	payload := envelope(5, triplet(true, 0, withParity('H'), withParity('I')))
	got, ok := Decode(payload)
	if !ok || got != "HI" {
		t.Fatalf("Decode() = (%q, %v), want (\"HI\", true) from partially-present triplets", got, ok)
	}
}

func TestDecodeIsPureFunctionOfPair(t *testing.T) {
	s1, ok1 := decodePair(withParity('A'), withParity('B'))
	s2, ok2 := decodePair(withParity('A'), withParity('B'))
	if s1 != s2 || ok1 != ok2 {
		t.Errorf("decodePair not pure: (%q,%v) vs (%q,%v)", s1, ok1, s2, ok2)
	}
}
