package ormx

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// aliaser shortens identifiers that exceed the dialect limit. Short forms
// are memoized, so the same long name always maps to the same alias within
// one Select.
//
//	"_VeryLongRelationName__column" -> "_VeryLongRel_3f2a9c0d1b7e4a55"
type aliaser struct {
	maxLen  int
	toShort map[string]string
	toLong  map[string]string
}

func newAliaser(maxLen int) *aliaser {
	return &aliaser{
		maxLen:  maxLen,
		toShort: make(map[string]string),
		toLong:  make(map[string]string),
	}
}

// hashSuffixLen is "_" plus 16 hex digits.
const hashSuffixLen = 17

func (a *aliaser) shorten(name string) (string, error) {
	if short, ok := a.toShort[name]; ok {
		return short, nil
	}
	short := name
	if a.maxLen > 0 && len(name) > a.maxLen {
		prefixLen := a.maxLen - hashSuffixLen
		if prefixLen < 1 {
			return "", fmt.Errorf("%w: identifier limit %d is too small to shorten %q", ErrIllegalState, a.maxLen, name)
		}
		short = fmt.Sprintf("%s_%016x", name[:prefixLen], xxhash.Sum64String(name))
	}
	if other, taken := a.toLong[short]; taken && other != name {
		return "", fmt.Errorf("%w: alias %q of %q collides with alias of %q", ErrIllegalState, short, name, other)
	}
	a.toShort[name] = short
	a.toLong[short] = name
	return short, nil
}
