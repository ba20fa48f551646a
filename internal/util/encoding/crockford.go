package encoding

import (
	"encoding/base32"
	"strings"
	"unicode"
)

// crockfordB32LC is Crockford's alphabet in lowercase. Output carries no padding.
var crockfordB32LC = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

// EncodeCrockfordB32LC encodes input with Crockford's Base32 alphabet in lowercase.
// Upload identifiers are rendered this way so they survive being read aloud or retyped.
func EncodeCrockfordB32LC(input []byte) string {
	return crockfordB32LC.EncodeToString(input)
}

// DecodeCrockfordB32LC is the inverse of EncodeCrockfordB32LC. The input is
// normalized first.
func DecodeCrockfordB32LC(input string) ([]byte, error) {
	return crockfordB32LC.DecodeString(NormalizeCrockfordB32LC(input)) //nolint:wrapcheck
}

// NormalizeCrockfordB32LC maps a human-entered identifier onto the canonical
// lowercase form. Whitespace and hyphens are dropped, 'o' becomes '0' and
// 'i'/'l' become '1'.
func NormalizeCrockfordB32LC(input string) string {
	return strings.Map(func(r rune) rune {
		switch r = unicode.ToLower(r); {
		case unicode.IsSpace(r), r == '-':
			return -1
		case r == 'o':
			return '0'
		case r == 'i', r == 'l':
			return '1'
		default:
			return r
		}
	}, input)
}
