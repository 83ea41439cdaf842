package salvage

import (
	"encoding/json"
	"strings"
)

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func decodeArray(s string) ([]any, bool) {
	var a []any
	if err := json.Unmarshal([]byte(s), &a); err != nil || a == nil {
		return nil, false
	}
	return a, true
}

// balancedSpan returns s[start:end+1] where end closes the opener at start.
// With quoted set, delimiters inside JSON strings are ignored.
func balancedSpan(s string, start int, open, close byte, quoted bool) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != open {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quoted && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if quoted {
				inString = true
			}
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// fencedBlocks yields the body of each ``` fence, with an optional json tag removed.
// An unterminated final fence yields the remainder of the text.
func fencedBlocks(text string) []string {
	const fence = "```"

	var blocks []string
	rest := text
	for {
		i := strings.Index(rest, fence)
		if i < 0 {
			return blocks
		}
		body := rest[i+len(fence):]
		if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			body = body[4:]
		}

		end := strings.Index(body, fence)
		if end < 0 {
			return append(blocks, body)
		}
		blocks = append(blocks, body[:end])
		rest = body[end+len(fence):]
	}
}
