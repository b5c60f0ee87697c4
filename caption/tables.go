/*
DESCRIPTION
  tables.go holds the CEA-608 special and extended Western-European
  character tables, reproduced verbatim from the ATSC/EIA-608 mapping.

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

// specialChars maps the low nibble of a 0x11 0x3X selector (data2 -
// 0x30) to its CEA-608 special character.
var specialChars = [16]rune{
	'®', '°', '½', '¿', '™', '¢', '£', '♪', 'à', ' ', 'è', 'â', 'ê', 'î', 'ô', 'û',
}

// extended12 maps the low 5 bits of a 0x12 0x2X-0x3X selector (data2 -
// 0x20) to its extended character.
var extended12 = [32]rune{
	'Á', 'É', 'Ó', 'Ú', 'Ü', 'ü', '´', '¡', '*', '\'', '—', '©', '℠', '•', '"', '"',
	'À', 'Â', 'Ç', 'È', 'Ê', 'Ë', 'ë', 'Î', 'Ï', 'ï', 'Ô', 'Ù', 'ù', 'Û', '«', '»',
}

// extended13 maps the low 5 bits of a 0x13 0x2X-0x3X selector (data2 -
// 0x20) to its extended character.
var extended13 = [32]rune{
	'Ã', 'ã', 'Í', 'Ì', 'ì', 'Ò', 'ò', 'Õ', 'õ', '{', '}', '\\', '^', '_', '|', '~',
	'Ä', 'ä', 'Ö', 'ö', 'ß', '¥', '¤', '¦', 'Å', 'å', 'Ø', 'ø', '┌', '┐', '└', '┘',
}

// specialChar returns the special character selected by data2 (already
// known to be in 0x30..0x3F with data1 == 0x11).
func specialChar(data2 byte) rune {
	return specialChars[data2-0x30]
}

// extendedChar returns the extended character selected by (data1,
// data2), already known to be a valid extended selector.
func extendedChar(data1, data2 byte) rune {
	if data1 == 0x12 {
		return extended12[data2-0x20]
	}
	return extended13[data2-0x20]
}
