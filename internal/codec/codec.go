// internal/codec/codec.go
//
// Reversible obfuscation for answer words shipped to clients.
//
// Encoding:
//  1. base64 (standard alphabet) of the word's UTF-8 bytes.
//  2. trailing '=' padding stripped and its count kept as one decimal digit.
//  3. every remaining character shifted by +1 on even indexes, -1 on odd.
//  4. the padding digit appended at the very end.
//
// This is not encryption. It only keeps the literal answer out of page
// source and network payloads. There is no integrity check: a corrupted
// token decodes to garbage instead of failing.
package codec

import (
	"encoding/base64"
	"strings"
)

// Encode turns word into an opaque token. Encode("") == "0".
func Encode(word string) string {
	b64 := base64.StdEncoding.EncodeToString([]byte(word))
	padding := strings.Count(b64, "=")
	stripped := strings.TrimRight(b64, "=")

	out := make([]byte, 0, len(stripped)+1)
	for i := 0; i < len(stripped); i++ {
		out = append(out, shift(stripped[i], i, +1))
	}
	// Base64 of short words never needs more than 2 padding chars; the
	// format reserves a single digit.
	out = append(out, byte('0'+padding%10))
	return string(out)
}

// Decode reverses Encode. It never fails: malformed tokens produce
// whatever the lenient base64 decoder can recover, possibly "".
func Decode(token string) string {
	if token == "" {
		return ""
	}
	last := token[len(token)-1]
	body := token[:len(token)-1]

	padding := 0
	if last >= '0' && last <= '9' {
		padding = int(last - '0')
	}

	unshifted := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		unshifted[i] = shift(body[i], i, -1)
	}
	return string(decodeLenient(string(unshifted) + strings.Repeat("=", padding)))
}

// RoundTrips reports whether token is exactly what Encode produces for
// its own decoded form. It is a sanity check only; Decode does not use it.
func RoundTrips(token string) bool {
	return Encode(Decode(token)) == token
}

// shift moves c by dir on even indexes and by -dir on odd ones.
func shift(c byte, i int, dir int) byte {
	if i%2 != 0 {
		dir = -dir
	}
	return byte(int(c) + dir)
}

func decodeLenient(s string) []byte {
	dst := make([]byte, base64.StdEncoding.DecodedLen(len(s)))
	n, err := base64.StdEncoding.Decode(dst, []byte(s))
	if err == nil {
		return dst[:n]
	}
	// wrong padding digit or corrupted characters: keep what decodes
	raw := strings.TrimRight(s, "=")
	dst = make([]byte, base64.RawStdEncoding.DecodedLen(len(raw)))
	n, _ = base64.RawStdEncoding.Decode(dst, []byte(raw))
	return dst[:n]
}
