// Package fragment converts markdown documents to and from URL fragments.
//
// A payload is produced by one of two reversible transforms: lz-string's
// URI-safe compression or plain percent-encoding. The transform is not
// recorded in the payload, so decoding classifies by trial: compression
// first, then percent-decoding gated by LooksLikeDocument. Payloads are
// wire compatible with links produced by the browser editor.
package fragment

import (
	"errors"
	"fmt"
	"io"
	"log"
)

// Method names the transform that produced a payload.
type Method string

const (
	MethodNone Method = "none"
	MethodLZ   Method = "lz"
	MethodURL  Method = "url"
)

func (m Method) String() string { return string(m) }

const (
	// MaxPayloadLen bounds the payload accepted by the decoder.
	MaxPayloadLen = 100_000
	// MaxDocumentLen bounds the document recovered by the decoder.
	MaxDocumentLen = 1_000_000
	// MaxInputLen bounds the document accepted by the encoder.
	MaxInputLen = 1_000_000
)

// ErrInputTooLarge is returned by Encode for documents over MaxInputLen.
var ErrInputTooLarge = errors.New("input text too large")

// Encoding is an encoded document plus the transform that was chosen.
type Encoding struct {
	Data   string `json:"data"`
	Method Method `json:"method"`
}

// Encode returns the shorter of the compressed and percent-encoded forms
// of text, preferring compression on a tie. Lengths are UTF-16 code units.
func Encode(text string) (Encoding, error) {
	return encode(text, MaxInputLen)
}

func encode(text string, max int) (Encoding, error) {
	if text == "" {
		return Encoding{Data: "", Method: MethodNone}, nil
	}
	if n := len16(text); n > max {
		return Encoding{}, fmt.Errorf("%w: %d characters (limit %d)", ErrInputTooLarge, n, max)
	}
	compressed := CompressToEncodedURIComponent(text)
	escaped := EncodeURIComponent(text)
	if len(compressed) <= len(escaped) {
		return Encoding{Data: compressed, Method: MethodLZ}, nil
	}
	return Encoding{Data: escaped, Method: MethodURL}, nil
}

// EncodeRoundTrip is Encode for links that must reopen. When the
// percent-encoded candidate would be misread by d (it also parses as
// compressed data, or fails LooksLikeDocument) the compressed candidate
// is returned instead. Payloads stay readable by any Decoder.
func EncodeRoundTrip(text string, d *Decoder) (Encoding, error) {
	enc, err := Encode(text)
	if err != nil || enc.Method != MethodURL {
		return enc, err
	}
	if d.Decode(enc.Data) == text {
		return enc, nil
	}
	return Encoding{Data: CompressToEncodedURIComponent(text), Method: MethodLZ}, nil
}

// Limits are the size bounds applied by a Decoder.
type Limits struct {
	MaxPayload  int
	MaxDocument int
}

// DefaultLimits returns the bounds shared with the browser editor.
func DefaultLimits() Limits {
	return Limits{MaxPayload: MaxPayloadLen, MaxDocument: MaxDocumentLen}
}

// Decoder recovers documents from payloads of unknown provenance.
// Rejections are logged, never returned.
type Decoder struct {
	Limits Limits
	Log    *log.Logger
}

// NewDecoder returns a Decoder with default limits. A nil logger discards output.
func NewDecoder(logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Decoder{Limits: DefaultLimits(), Log: logger}
}

// Decode returns the document carried by payload, or "" when none can be
// recovered.
func (d *Decoder) Decode(payload string) string {
	doc, _ := d.Classify(payload)
	return doc
}

// Classify is Decode that also reports which transform recovered the
// document. The method is MethodNone whenever the document is "".
func (d *Decoder) Classify(payload string) (string, Method) {
	if payload == "" {
		return "", MethodNone
	}
	if n := len16(payload); n > d.Limits.MaxPayload {
		d.logf("fragment: payload too large (%d characters), ignoring", n)
		return "", MethodNone
	}

	doc, err := DecompressFromEncodedURIComponent(payload, d.Limits.MaxDocument)
	switch {
	case errors.Is(err, ErrTooLarge):
		d.logf("fragment: decompressed document exceeds %d characters, ignoring", d.Limits.MaxDocument)
		return "", MethodNone
	case err != nil:
		d.logf("fragment: lz decode failed: %v", err)
	case doc != "":
		return doc, MethodLZ
	}

	doc, err = DecodeURIComponent(payload)
	if err != nil {
		d.logf("fragment: percent decode failed: %v", err)
		return "", MethodNone
	}
	if len16(doc) > d.Limits.MaxDocument {
		d.logf("fragment: percent-decoded document exceeds %d characters, ignoring", d.Limits.MaxDocument)
		return "", MethodNone
	}
	if LooksLikeDocument(doc) {
		return doc, MethodURL
	}
	return "", MethodNone
}

func (d *Decoder) logf(format string, args ...any) {
	if d.Log != nil {
		d.Log.Printf(format, args...)
	}
}
