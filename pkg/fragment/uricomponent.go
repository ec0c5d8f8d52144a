package fragment

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedURI reports an invalid percent-escape sequence.
var ErrMalformedURI = errors.New("malformed URI sequence")

const upperHex = "0123456789ABCDEF"

func unreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// EncodeURIComponent escapes s the way ECMAScript's encodeURIComponent does.
// Invalid UTF-8 is encoded as U+FFFD.
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var buf [utf8.UTFMax]byte
	for _, r := range s {
		if r < utf8.RuneSelf && unreserved(byte(r)) {
			b.WriteByte(byte(r))
			continue
		}
		n := utf8.EncodeRune(buf[:], r)
		for _, c := range buf[:n] {
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		}
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func escapedByte(s string, i int) (byte, error) {
	if i+2 >= len(s) || s[i] != '%' {
		return 0, fmt.Errorf("%w: truncated escape at %d", ErrMalformedURI, i)
	}
	hi, ok1 := unhex(s[i+1])
	lo, ok2 := unhex(s[i+2])
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("%w: bad hex at %d", ErrMalformedURI, i)
	}
	return hi<<4 | lo, nil
}

// DecodeURIComponent reverses EncodeURIComponent with ECMAScript's
// decodeURIComponent rules: every escape is decoded, and multi-byte
// escapes must form exactly one well-formed UTF-8 sequence.
func DecodeURIComponent(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] != '%' {
			out = append(out, s[i])
			i++
			continue
		}
		b, err := escapedByte(s, i)
		if err != nil {
			return "", err
		}
		i += 3
		if b < utf8.RuneSelf {
			out = append(out, b)
			continue
		}
		var n int
		switch {
		case b&0xE0 == 0xC0:
			n = 2
		case b&0xF0 == 0xE0:
			n = 3
		case b&0xF8 == 0xF0:
			n = 4
		default:
			return "", fmt.Errorf("%w: invalid lead byte %#x", ErrMalformedURI, b)
		}
		seq := []byte{b}
		for j := 1; j < n; j++ {
			cb, err := escapedByte(s, i)
			if err != nil {
				return "", err
			}
			if cb&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: invalid continuation byte %#x", ErrMalformedURI, cb)
			}
			seq = append(seq, cb)
			i += 3
		}
		if !utf8.Valid(seq) {
			return "", fmt.Errorf("%w: invalid UTF-8 sequence", ErrMalformedURI)
		}
		out = append(out, seq...)
	}
	return string(out), nil
}
