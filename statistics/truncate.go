package statistics

import (
	"unicode/utf8"
)

// BinaryPrefixLength is the maximum number of bytes kept in the statistics of
// binary and text columns.
const BinaryPrefixLength = 16

// TruncateMinBinary returns a lower bound of v at most BinaryPrefixLength
// bytes long.
func TruncateMinBinary(v []byte) []byte {
	return truncateMinBinary(v, BinaryPrefixLength)
}

// TruncateMaxBinary returns an upper bound of v at most BinaryPrefixLength
// bytes long. It reports false when the kept prefix is all 0xFF and no such
// bound exists.
func TruncateMaxBinary(v []byte) ([]byte, bool) {
	return truncateMaxBinary(v, BinaryPrefixLength)
}

// TruncateMinText returns a lower bound of s at most BinaryPrefixLength bytes
// long that does not split a UTF-8 sequence.
func TruncateMinText(s string) string {
	return truncateMinText(s, BinaryPrefixLength)
}

// TruncateMaxText returns a valid UTF-8 upper bound of s at most
// BinaryPrefixLength bytes long, or false when none exists.
func TruncateMaxText(s string) (string, bool) {
	return truncateMaxText(s, BinaryPrefixLength)
}

func truncateMinBinary(v []byte, limit int) []byte {
	if len(v) <= limit {
		return v
	}
	return v[:limit]
}

// truncateMaxBinary drops trailing 0xFF bytes from the prefix and increments
// the last remaining byte. The input is never modified.
func truncateMaxBinary(v []byte, limit int) ([]byte, bool) {
	if len(v) <= limit {
		return v, true
	}
	n := limit
	for n > 0 && v[n-1] == 0xFF {
		n--
	}
	if n == 0 {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, v[:n])
	out[n-1]++
	return out, true
}

// textBoundary returns the largest rune start <= limit. len(s) must exceed
// limit.
func textBoundary(s string, limit int) int {
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func truncateMinText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:textBoundary(s, limit)]
}

// truncateMaxText replaces the last rune of the kept prefix with its successor.
// Runes without a successor that fits are dropped and the carry moves left.
func truncateMaxText(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, true
	}
	prefix := s[:textBoundary(s, limit)]
	for len(prefix) > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix)
		prefix = prefix[:len(prefix)-size]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		next, ok := nextRune(r)
		if !ok || len(prefix)+utf8.RuneLen(next) > limit {
			continue
		}
		return prefix + string(next), true
	}
	return "", false
}

// nextRune returns the next valid code point after r
func nextRune(r rune) (rune, bool) {
	r++
	if r >= 0xD800 && r <= 0xDFFF {
		r = 0xE000
	}
	if r > utf8.MaxRune {
		return 0, false
	}
	return r, true
}
