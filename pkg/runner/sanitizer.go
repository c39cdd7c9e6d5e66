package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxInputSize bounds a typed title or actor name.
	DefaultMaxInputSize = 4096
	// MaxTokenSize is the longest button token any channel can hand back
	// (a Discord custom id).
	MaxTokenSize = 100
)

var (
	ErrInputTooLarge = errors.New("message too long")
	ErrInvalidUTF8   = errors.New("message is not valid UTF-8")
)

// SanitizeInput prepares typed text for the catalog query: oversized or
// non-UTF-8 text is refused and terminal control codes are removed. Line
// breaks and tabs survive. A non-positive limit uses DefaultMaxInputSize.
func SanitizeInput(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	// A truncated title would search for something else.
	if err := check(input, limit); err != nil {
		return "", err
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeToken prepares a pressed button token for decoding. Tokens never
// carry whitespace or control codes, so both are dropped.
func SanitizeToken(token string) (string, error) {
	if err := check(token, MaxTokenSize); err != nil {
		return "", err
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, token), nil
}

func check(s string, limit int) error {
	if len(s) > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	return nil
}
