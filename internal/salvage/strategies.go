package salvage

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// trimWindow bounds how many trailing bytes the trim pass gives up.
const trimWindow = 200

var (
	// Matches objects nested up to three levels deep.
	objectCandidate = regexp.MustCompile(`\{(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*\}`)
	arrayCandidate  = regexp.MustCompile(`(?s)\[.*?\]`)
	itemsKey        = regexp.MustCompile(`"items"\s*:\s*\[`)
)

// ObjectStrategies returns the object recovery chain in evaluation order.
func ObjectStrategies() []Strategy[map[string]any] {
	return []Strategy[map[string]any]{
		{Name: "direct", Attempt: directObject},
		{Name: "decoder-prefix", Attempt: prefixObject},
		{Name: "last-brace", Attempt: lastBraceObject},
		{Name: "fenced-block", Attempt: fencedObject},
		{Name: "brace-match", Attempt: braceMatchObject},
		{Name: "regex-scan", Attempt: scanObjects},
	}
}

// ArrayStrategies returns the array recovery chain in evaluation order.
func ArrayStrategies() []Strategy[[]any] {
	return []Strategy[[]any]{
		{Name: "direct", Attempt: directArray},
		{Name: "decoder-prefix", Attempt: prefixArray},
		{Name: "fenced-block", Attempt: fencedArray},
		{Name: "bracket-match", Attempt: bracketMatchArray},
		{Name: "regex-scan", Attempt: scanArrays},
		{Name: "object-field", Attempt: arrayFromObject},
	}
}

func directObject(text string) (map[string]any, bool) {
	return decodeObject(strings.TrimSpace(text))
}

func prefixObject(text string) (map[string]any, bool) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

func lastBraceObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	end := strings.LastIndexByte(trimmed, '}')
	if end < 0 {
		return nil, false
	}
	return decodeObject(trimmed[:end+1])
}

func fencedObject(text string) (map[string]any, bool) {
	for _, block := range fencedBlocks(text) {
		start := strings.IndexByte(block, '{')
		if start < 0 {
			continue
		}
		if span, ok := balancedSpan(block, start, '{', '}', true); ok {
			if m, ok := decodeObject(span); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// braceMatchObject slices from the first '{' to its matching '}' and then
// applies progressively looser repairs to that slice. The string-aware match
// is tried first; the raw depth match covers strings broken by stray quotes.
func braceMatchObject(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	var spans []string
	if span, ok := balancedSpan(text, start, '{', '}', true); ok {
		spans = append(spans, span)
	}
	if span, ok := balancedSpan(text, start, '{', '}', false); ok && (len(spans) == 0 || spans[0] != span) {
		spans = append(spans, span)
	}
	if len(spans) == 0 {
		spans = append(spans, strings.TrimRightFunc(text[start:], unicode.IsSpace))
	}

	for _, span := range spans {
		if m, ok := repairObject(span); ok {
			return m, true
		}
	}
	return nil, false
}

func repairObject(span string) (map[string]any, bool) {
	if m, ok := decodeObject(span); ok {
		return m, true
	}
	if m, ok := decodeObject(repairQuotes(span)); ok {
		return m, true
	}
	if m, ok := trimTrailing(span); ok {
		return m, true
	}
	return closeItemsArray(span)
}

func trimTrailing(span string) (map[string]any, bool) {
	for k := 1; k <= trimWindow && k < len(span); k++ {
		candidate := strings.TrimRightFunc(span[:len(span)-k], unicode.IsSpace)
		if !strings.HasSuffix(candidate, "}") {
			continue
		}
		if m, ok := decodeObject(candidate); ok {
			return m, true
		}
	}
	return nil, false
}

// closeItemsArray cuts the slice right after the "items" array and re-closes
// the object. An unterminated array is cut after its last complete element.
func closeItemsArray(span string) (map[string]any, bool) {
	loc := itemsKey.FindStringIndex(span)
	if loc == nil {
		return nil, false
	}
	open := loc[1] - 1

	var candidates []string
	if arr, ok := balancedSpan(span, open, '[', ']', true); ok {
		candidates = append(candidates, span[:open]+arr+"}")
	} else if cut := lastCompleteElement(span, open); cut > 0 {
		candidates = append(candidates, span[:cut+1]+"]}")
	}

	for _, c := range candidates {
		if m, ok := decodeObject(c); ok {
			return m, true
		}
		if m, ok := decodeObject(repairQuotes(c)); ok {
			return m, true
		}
	}
	return nil, false
}

// lastCompleteElement returns the index of the last '}' or ']' that closes a
// direct child of the array opened at open, or -1.
func lastCompleteElement(s string, open int) int {
	last := -1
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
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
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 1 {
				last = i
			}
			if depth <= 0 {
				return last
			}
		}
	}
	return last
}

// scanObjects tries every string-aware balanced object in the text, then
// falls back to the nesting-limited pattern.
func scanObjects(text string) (map[string]any, bool) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		if span, ok := balancedSpan(text, i, '{', '}', true); ok {
			if m, ok := decodeObject(span); ok {
				return m, true
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	for _, candidate := range objectCandidate.FindAllString(text, -1) {
		if m, ok := decodeObject(candidate); ok {
			return m, true
		}
	}
	return nil, false
}

func directArray(text string) ([]any, bool) {
	return decodeArray(strings.TrimSpace(text))
}

func prefixArray(text string) ([]any, bool) {
	var a []any
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(text)))
	if err := dec.Decode(&a); err != nil || a == nil {
		return nil, false
	}
	return a, true
}

func fencedArray(text string) ([]any, bool) {
	for _, block := range fencedBlocks(text) {
		start := strings.IndexByte(block, '[')
		if start < 0 {
			continue
		}
		if span, ok := balancedSpan(block, start, '[', ']', true); ok {
			if a, ok := decodeArray(span); ok {
				return a, true
			}
		}
	}
	return nil, false
}

func bracketMatchArray(text string) ([]any, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return nil, false
	}
	span, ok := balancedSpan(text, start, '[', ']', true)
	if !ok {
		return nil, false
	}
	if a, ok := decodeArray(span); ok {
		return a, true
	}
	return decodeArray(repairQuotes(span))
}

func scanArrays(text string) ([]any, bool) {
	for _, candidate := range arrayCandidate.FindAllString(text, -1) {
		if a, ok := decodeArray(candidate); ok {
			return a, true
		}
	}
	return nil, false
}

// arrayFromObject accepts a wrapper object such as {"topics": [...]} and
// returns its first array-valued field in key order.
func arrayFromObject(text string) ([]any, bool) {
	m, _, ok := run(ObjectStrategies(), text)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if a, ok := m[k].([]any); ok {
			return a, true
		}
	}
	return nil, false
}
