package ebase

import (
	"strings"
	"unicode"
)

// StringPool is the auxiliary text section of an EBase container. Entries are
// NUL-terminated and may carry trailing space padding.
type StringPool struct {
	data []byte
}

// NewStringPool wraps a raw pool section. The bytes are not copied; callers
// must not mutate them afterwards.
func NewStringPool(data []byte) *StringPool {
	return &StringPool{data: data}
}

// Resolve dereferences an absolute byte offset into a right-trimmed string.
// The second return is false when the offset lies outside the pool.
func (p *StringPool) Resolve(offset uint32) (string, bool) {
	if p == nil || int(offset) >= len(p.data) {
		return "", false
	}
	end := int(offset)
	for end < len(p.data) && p.data[end] != 0 {
		end++
	}
	return strings.TrimRight(string(p.data[offset:end]), " \t"), true
}

// isPrintable reports whether s is non-empty and consists of printable runes
// only. Used to judge whether a trial-shift decode produced real text rather
// than reinterpreted binary noise.
func isPrintable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
