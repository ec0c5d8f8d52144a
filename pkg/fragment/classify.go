package fragment

// LooksLikeDocument reports whether percent-decoded text is plausibly a
// markdown document rather than noise. It accepts text containing at least
// one ASCII letter or digit, a Hangul syllable, a newline, or one of the
// markdown punctuation characters # * _ ` [ ] ( ) { } > - +.
//
// This is best effort by nature: payloads carry no method tag, so any
// string that survives percent-decoding and contains one such character
// is treated as a document.
func LooksLikeDocument(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return true
		case r >= 0xAC00 && r <= 0xD7A3:
			return true
		}
		switch r {
		case '#', '*', '_', '`', '[', ']', '(', ')', '{', '}', '>', '-', '+', '\n':
			return true
		}
	}
	return false
}

// len16 returns the length of s in UTF-16 code units, the unit browsers
// use for string length.
func len16(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
