package expr

import (
	"fmt"
	"strings"
)

// translate rewrites a Vega expression into HCL expression syntax.
// Single-quoted strings become double-quoted, strict (in)equality becomes
// plain (in)equality, and template sequences inside strings are escaped so
// they stay literal.
func translate(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case ch == '\'' || ch == '"':
			n, err := translateString(&b, src[i:])
			if err != nil {
				return "", err
			}
			i += n
		case strings.HasPrefix(src[i:], "==="):
			b.WriteString("==")
			i += 3
		case strings.HasPrefix(src[i:], "!=="):
			b.WriteString("!=")
			i += 3
		default:
			b.WriteByte(ch)
			i++
		}
	}
	return b.String(), nil
}

// translateString copies the string literal at the start of s as a
// double-quoted HCL string and returns the number of bytes consumed.
func translateString(b *strings.Builder, s string) (int, error) {
	quote := s[0]
	b.WriteByte('"')
	for i := 1; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == quote:
			b.WriteByte('"')
			return i + 1, nil
		case ch == '\\':
			if i+1 >= len(s) {
				return 0, fmt.Errorf("unterminated string literal")
			}
			next := s[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i++
		case ch == '"':
			b.WriteString(`\"`)
		case (ch == '$' || ch == '%') && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte(ch)
			b.WriteByte(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(ch)
		}
	}
	return 0, fmt.Errorf("unterminated string literal")
}
