package parser

import (
	"strconv"
	"strings"
)

// radixOf splits a numeric lexeme into its digits and base, honouring
// the 0x/0b/0o/0d prefixes and the bare-zero octal convention.
func radixOf(s string) (digits string, base int) {
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return s[2:], 16
		case 'b', 'B':
			return s[2:], 2
		case 'o', 'O':
			return s[2:], 8
		case 'd', 'D':
			return s[2:], 10
		default:
			return s, 8
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return s, 8
	}
	return s, 10
}

// hasRadixPrefix reports a 0x/0b/0o style lexeme; 0d counts as plain
// decimal once the prefix is stripped.
func hasRadixPrefix(s string) bool {
	return len(s) > 2 && s[0] == '0' && strings.ContainsRune("xXbBoO", rune(s[1]))
}

// ParseInt converts an integer lexeme to its unsigned 64-bit value.
func ParseInt(s string) (uint64, error) {
	digits, base := radixOf(s)
	return strconv.ParseUint(digits, base, 64)
}

// ParseFloat converts a float lexeme to a 64-bit double. Lexemes with a
// 0x/0b/0o prefix are parsed as whole and fractional digit runs in that
// radix; everything else, including the bare-zero "0." forms, reads as
// decimal.
func ParseFloat(s string) (float64, error) {
	digits, base := radixOf(s)
	if !hasRadixPrefix(s) {
		return strconv.ParseFloat(digits, 64)
	}

	whole, fract, _ := strings.Cut(digits, ".")
	var value float64
	if whole != "" {
		w, err := strconv.ParseUint(whole, base, 64)
		if err != nil {
			return 0, err
		}
		value = float64(w)
	}
	if fract != "" {
		f, err := strconv.ParseUint(fract, base, 64)
		if err != nil {
			return 0, err
		}
		scale := 1.0
		for range fract {
			scale *= float64(base)
		}
		value += float64(f) / scale
	}
	return value, nil
}
