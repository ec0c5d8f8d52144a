package fragment

import (
	"errors"
	"strings"
	"unicode/utf16"
)

// uriAlphabet is lz-string's URI-safe key string. The 65th character ('$')
// is never produced by a 6-bit writer but is accepted when decoding.
const uriAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+-$"

var (
	// ErrCorrupt reports a payload that is not valid lz-string data.
	ErrCorrupt = errors.New("corrupt compressed payload")
	// ErrTooLarge reports a payload whose expansion exceeds the output limit.
	ErrTooLarge = errors.New("decompressed payload exceeds limit")
)

var uriReverse = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(uriAlphabet); i++ {
		t[uriAlphabet[i]] = int8(i)
	}
	return t
}()

// lzNode is a dictionary trie node; each path from the root spells a phrase.
type lzNode struct {
	code     int
	unit     uint16
	pending  bool // single-unit phrase not yet emitted as a literal
	children map[uint16]*lzNode
}

func (n *lzNode) child(u uint16) (*lzNode, bool) {
	if n.children == nil {
		return nil, false
	}
	c, ok := n.children[u]
	return c, ok
}

func (n *lzNode) add(u uint16, c *lzNode) {
	if n.children == nil {
		n.children = make(map[uint16]*lzNode)
	}
	n.children[u] = c
}

type bitWriter struct {
	out  strings.Builder
	val  int
	pos  int
	size int
}

func (w *bitWriter) bit(b int) {
	w.val = w.val<<1 | b
	if w.pos == w.size-1 {
		w.pos = 0
		w.out.WriteByte(uriAlphabet[w.val])
		w.val = 0
		return
	}
	w.pos++
}

// bits writes the low n bits of v, least significant first.
func (w *bitWriter) bits(n, v int) {
	for i := 0; i < n; i++ {
		w.bit(v & 1)
		v >>= 1
	}
}

func (w *bitWriter) flush() {
	for {
		w.val <<= 1
		if w.pos == w.size-1 {
			w.out.WriteByte(uriAlphabet[w.val])
			return
		}
		w.pos++
	}
}

// CompressToEncodedURIComponent produces the same output as lz-string's
// compressToEncodedURIComponent for the UTF-16 form of s.
func CompressToEncodedURIComponent(s string) string {
	units := utf16.Encode([]rune(s))
	w := &bitWriter{size: 6}

	root := &lzNode{}
	dictSize := 3
	numBits := 2
	enlargeIn := 2

	grow := func() {
		enlargeIn--
		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}
	}
	emit := func(n *lzNode) {
		if n.pending {
			if n.unit < 256 {
				w.bits(numBits, 0)
				w.bits(8, int(n.unit))
			} else {
				w.bits(numBits, 1)
				w.bits(16, int(n.unit))
			}
			grow()
			n.pending = false
		} else {
			w.bits(numBits, n.code)
		}
		grow()
	}

	var cur *lzNode
	for _, u := range units {
		single, ok := root.child(u)
		if !ok {
			single = &lzNode{code: dictSize, unit: u, pending: true}
			dictSize++
			root.add(u, single)
		}
		if cur == nil {
			cur = single
			continue
		}
		if next, ok := cur.child(u); ok {
			cur = next
			continue
		}
		emit(cur)
		cur.add(u, &lzNode{code: dictSize, unit: u})
		dictSize++
		cur = single
	}
	if cur != nil {
		emit(cur)
	}

	w.bits(numBits, 2)
	w.flush()
	return w.out.String()
}

type bitReader struct {
	input    string
	val      int
	position int
	index    int
	err      error
}

const resetValue = 32

func (r *bitReader) value(i int) int {
	if i >= len(r.input) {
		return 0
	}
	v := uriReverse[r.input[i]]
	if v < 0 {
		r.err = ErrCorrupt
		return 0
	}
	return int(v)
}

func (r *bitReader) read(n int) int {
	bits := 0
	for power := 1; power != 1<<n; power <<= 1 {
		resb := r.val & r.position
		r.position >>= 1
		if r.position == 0 {
			r.position = resetValue
			r.val = r.value(r.index)
			r.index++
		}
		if resb > 0 {
			bits |= power
		}
	}
	return bits
}

// DecompressFromEncodedURIComponent reverses CompressToEncodedURIComponent.
// Expansion stops with ErrTooLarge once the output would exceed limit
// UTF-16 code units; a limit <= 0 disables the check.
func DecompressFromEncodedURIComponent(s string, limit int) (string, error) {
	if s == "" {
		return "", nil
	}
	s = strings.ReplaceAll(s, " ", "+")
	r := &bitReader{input: s, position: resetValue, index: 1}
	r.val = r.value(0)

	dict := make([][]uint16, 3, 64)
	dictSize := 4
	numBits := 3
	enlargeIn := 4

	var c []uint16
	switch r.read(2) {
	case 0:
		c = []uint16{uint16(r.read(8))}
	case 1:
		c = []uint16{uint16(r.read(16))}
	case 2:
		return "", r.err
	default:
		return "", ErrCorrupt
	}
	if r.err != nil {
		return "", r.err
	}
	dict = append(dict, c)
	w := c
	out := make([]uint16, 0, len(s)*2)
	out = append(out, c...)

	for {
		if r.index > len(s) {
			return "", ErrCorrupt
		}
		code := r.read(numBits)
		switch code {
		case 0, 1:
			width := 8
			if code == 1 {
				width = 16
			}
			dict = append(dict, []uint16{uint16(r.read(width))})
			dictSize++
			code = dictSize - 1
			enlargeIn--
		case 2:
			if r.err != nil {
				return "", r.err
			}
			return string(utf16.Decode(out)), nil
		}
		if r.err != nil {
			return "", r.err
		}
		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}

		var entry []uint16
		switch {
		case code < len(dict) && code >= 3:
			entry = dict[code]
		case code == dictSize:
			entry = append(append(make([]uint16, 0, len(w)+1), w...), w[0])
		default:
			return "", ErrCorrupt
		}
		if limit > 0 && len(out)+len(entry) > limit {
			return "", ErrTooLarge
		}
		out = append(out, entry...)

		dict = append(dict, append(append(make([]uint16, 0, len(w)+1), w...), entry[0]))
		dictSize++
		enlargeIn--
		w = entry

		if enlargeIn == 0 {
			enlargeIn = 1 << numBits
			numBits++
		}
	}
}
