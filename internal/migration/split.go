package migration

import "strings"

// splitSQL splits a script into statements on top-level semicolons.
// Semicolons inside quoted identifiers, string literals, dollar-quoted bodies
// and comments don't end a statement. Comments are dropped.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(script); {
		c := script[i]

		switch {
		case c == '-' && strings.HasPrefix(script[i:], "--"):
			end := strings.IndexByte(script[i:], '\n')
			if end < 0 {
				i = len(script)
			} else {
				i += end
			}

		case c == '/' && strings.HasPrefix(script[i:], "/*"):
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
			} else {
				i += end + 4
			}
			current.WriteByte(' ')

		case c == '\'' || c == '"':
			end := closingQuote(script, i+1, c)
			current.WriteString(script[i:end])
			i = end

		case c == '$':
			tag, ok := dollarTag(script[i:])
			if !ok {
				current.WriteByte(c)
				i++
				continue
			}
			end := strings.Index(script[i+len(tag):], tag)
			if end < 0 {
				current.WriteString(script[i:])
				i = len(script)
			} else {
				stop := i + len(tag) + end + len(tag)
				current.WriteString(script[i:stop])
				i = stop
			}

		case c == ';':
			flush()
			i++

		default:
			current.WriteByte(c)
			i++
		}
	}
	flush()

	return statements
}

// closingQuote returns the index just past the quote that closes the literal
// opened before start. Doubled quotes are escapes.
func closingQuote(s string, start int, quote byte) int {
	for i := start; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// dollarTag returns the opening tag ($$ or $name$) at the start of s.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			return s[:i+1], true
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && i > 1:
		default:
			return "", false
		}
	}
	return "", false
}
