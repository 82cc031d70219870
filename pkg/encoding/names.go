// Package encoding converts group and material names found in mesh sources
// into UTF-8 before they are written to the output format.
package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// NameDecoder converts names from a source charset to UTF-8.
// The zero value passes names through unchanged.
type NameDecoder struct {
	charset string
	enc     encoding.Encoding
}

// NewNameDecoder returns a decoder for the given charset label
// (e.g. "euc-kr", "windows-1252", "shift_jis"). An empty label or
// "utf-8" returns a pass-through decoder.
func NewNameDecoder(charset string) (*NameDecoder, error) {
	label := strings.ToLower(strings.TrimSpace(charset))
	if label == "" || label == "utf-8" || label == "utf8" {
		return &NameDecoder{}, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown name encoding %q: %w", charset, err)
	}
	return &NameDecoder{charset: label, enc: enc}, nil
}

// Charset returns the configured charset label, empty for UTF-8.
func (d *NameDecoder) Charset() string {
	if d == nil {
		return ""
	}
	return d.charset
}

// Decode converts s to UTF-8. Names that are already valid UTF-8 ASCII, or
// that fail to convert, are returned as-is.
func (d *NameDecoder) Decode(s string) string {
	if d == nil || d.enc == nil || isASCII(s) {
		return s
	}

	result, _, err := transform.String(d.enc.NewDecoder(), s)
	if err != nil || !utf8.ValidString(result) {
		return s
	}
	return result
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
