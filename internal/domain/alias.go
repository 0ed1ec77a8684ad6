// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"
)

const MaxAliasLen = 32

// Alias is a session-scoped pseudonym. It is not an identity and is only
// compared by string equality.
type Alias string

// NewAlias trims raw and checks its length.
func NewAlias(raw string) (Alias, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrAliasEmpty
	}
	if utf8.RuneCountInString(s) > MaxAliasLen {
		return "", ErrAliasTooLong
	}
	return Alias(s), nil
}
