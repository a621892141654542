// Package shortcode renders the internal 64-bit identifiers as compact URL
// and wire tokens. The encoding is a pure bijection: Encode then Decode
// always round-trips, and Decode rejects anything Encode could not have
// produced.
package shortcode

import (
	"errors"
	"strings"
)

// Crockford-style base-32 alphabet: lowercase, no i/l/o/u, so codes survive
// hand transcription.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// 64 bits at 5 bits per character.
const codeLen = 13

var ErrBadCode = errors.New("malformed short code")

// Encode renders v as a fixed-length short code, least significant digits
// first so small ids still get distinct-looking prefixes.
func Encode(v uint64) string {
	var buf [codeLen]byte
	for i := 0; i < codeLen; i++ {
		buf[i] = alphabet[v&31]
		v >>= 5
	}
	return string(buf[:])
}

// Decode inverts Encode. Wrong length, foreign characters, and values that
// overflow 64 bits all fail with ErrBadCode.
func Decode(code string) (uint64, error) {
	if len(code) != codeLen {
		return 0, ErrBadCode
	}
	var v uint64
	for i := codeLen - 1; i >= 0; i-- {
		d := strings.IndexByte(alphabet, code[i])
		if d < 0 {
			return 0, ErrBadCode
		}
		if i == codeLen-1 && d > 15 {
			// The top character carries only 4 significant bits.
			return 0, ErrBadCode
		}
		v = v<<5 | uint64(d)
	}
	return v, nil
}
