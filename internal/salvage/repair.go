package salvage

import "strings"

// repairQuotes escapes double quotes that appear inside a string value rather
// than closing it, and escapes raw control characters inside strings.
//
// A quote closes the current string only when the next non-space character is
// a structural delimiter or the end of input. The heuristic can mis-handle
// prose such as `"he said "no", twice"`; callers treat the output as a
// candidate, never as a guaranteed repair.
func repairQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			if closesString(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesString(s string, from int) bool {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}
