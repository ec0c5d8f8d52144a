package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURIComponent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"# Hello", "%23%20Hello"},
		{"a b&c=d/é", "a%20b%26c%3Dd%2F%C3%A9"},
		{"-_.!~*'()", "-_.!~*'()"},
		{"😀", "%F0%9F%98%80"},
		{"line\nbreak", "line%0Abreak"},
		{"100%", "100%25"},
		{"\xff", "%EF%BF%BD"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EncodeURIComponent(c.in), "input %q", c.in)
	}
}

func TestDecodeURIComponent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"%23%20Hello", "# Hello"},
		{"plain", "plain"},
		{"%25", "%"},
		{"%c3%a9", "é"},
		{"%F0%9F%98%80", "😀"},
		{"a+b", "a+b"},
	}
	for _, c := range cases {
		got, err := DecodeURIComponent(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got)
	}
}

func TestDecodeURIComponentMalformed(t *testing.T) {
	for _, in := range []string{
		"%",
		"%4",
		"%zz",
		"abc%",
		"%C3",
		"%C3%28",
		"%C3A9",
		"%ED%A0%80", // surrogate half
		"%C0%80",    // overlong
		"%FF",
		"%80",
	} {
		_, err := DecodeURIComponent(in)
		assert.ErrorIs(t, err, ErrMalformedURI, "input %q", in)
	}
}

func TestURIComponentRoundTrip(t *testing.T) {
	for _, in := range []string{"", "# 제목\n본문", "tabs\tand\r\nCRLF", "<script>alert(1)</script>", "𝔸"} {
		got, err := DecodeURIComponent(EncodeURIComponent(in))
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}
