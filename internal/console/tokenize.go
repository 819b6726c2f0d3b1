package console

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

// splitShell splits s into words with POSIX shell quoting rules. Input
// the shell would reject is repaired rather than refused: an unterminated
// quote runs to the end of the line and a trailing backslash is dropped.
func splitShell(s string) []string {
	words, err := shellquote.Split(s)
	for attempt := 0; err != nil && attempt < maxQuoteRepairs; attempt++ {
		switch {
		case errors.Is(err, shellquote.UnterminatedEscapeError):
			s = strings.TrimSuffix(s, `\`)
		case errors.Is(err, shellquote.UnterminatedSingleQuoteError):
			s += "'"
		case errors.Is(err, shellquote.UnterminatedDoubleQuoteError):
			s += `"`
		}
		words, err = shellquote.Split(s)
	}
	if err != nil {
		return strings.Fields(s)
	}
	if len(words) == 0 {
		return nil
	}
	return words
}

// maxQuoteRepairs bounds how many closing characters splitShell appends.
const maxQuoteRepairs = 3

// findLiteral locates the first '{' or '[' outside quotes and the end of
// its balanced span. An unbalanced span runs to the end of s.
func findLiteral(s string) (start, end int, ok bool) {
	start = -1
	depth := 0
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				i++
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '{', '[':
			if start < 0 {
				start = i
			}
			depth++
		case '}', ']':
			if start >= 0 {
				depth--
				if depth == 0 {
					return start, i + 1, true
				}
			}
		}
	}

	if start < 0 {
		return 0, 0, false
	}
	return start, len(s), true
}

// splitCommaArgs splits a dot-form argument list on commas outside quotes
// and brackets. Each argument is unquoted; blank arguments are dropped.
func splitCommaArgs(s string) []string {
	var args []string
	var quote byte
	depth := 0
	last := 0

	flush := func(piece string) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return
		}
		args = append(args, strings.Join(splitShell(piece), " "))
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(s[last:i])
				last = i + 1
			}
		}
	}
	flush(s[last:])
	return args
}

// splitRaw splits s on separator bytes outside quotes without removing the
// quotes. Empty pieces are dropped.
func splitRaw(s string, isSep func(byte) bool) []string {
	var pieces []string
	var quote byte
	last := 0

	flush := func(piece string) {
		if piece = strings.TrimSpace(piece); piece != "" {
			pieces = append(pieces, piece)
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
		case isSep(c):
			flush(s[last:i])
			last = i + 1
		}
	}
	flush(s[last:])
	return pieces
}

func isSpaceByte(c byte) bool { return c == ' ' || c == '\t' }

func isCommaByte(c byte) bool { return c == ',' }
