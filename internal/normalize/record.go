// Package normalize is the boundary between loosely shaped agent output and
// the strict domain types. Nothing past this package handles ad hoc keys.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stugorf/hdc-digest/internal/domain"
)

const (
	fieldTitle         = "title"
	fieldPublishedDate = "published_date"
	fieldURL           = "url"
	fieldSummary       = "summary"
	fieldSourceType    = "source_type"
	fieldPublisher     = "publisher"
	fieldQuality       = "quality"

	aliasType = "type"
)

var markup = regexp.MustCompile(`<[a-zA-Z/!]|&[a-zA-Z#][a-zA-Z0-9]*;`)

// Record maps a raw agent record onto the fixed item field set. A "type" key
// stands in for a missing "source_type"; unknown keys are discarded and
// missing fields become empty strings.
func Record(raw map[string]any) domain.Item {
	if raw == nil {
		return domain.Item{}
	}

	sourceType, ok := raw[fieldSourceType]
	if !ok {
		sourceType = raw[aliasType]
	}

	return domain.Item{
		Title:         plainText(stringValue(raw[fieldTitle])),
		PublishedDate: stringValue(raw[fieldPublishedDate]),
		URL:           stringValue(raw[fieldURL]),
		Summary:       plainText(stringValue(raw[fieldSummary])),
		SourceType:    strings.ToLower(stringValue(sourceType)),
		Publisher:     stringValue(raw[fieldPublisher]),
		Quality:       quality(raw[fieldQuality]),
	}
}

// Items normalizes the "items" array of a salvaged section object. Entries
// that are not objects, or that carry no URL, are skipped, and so is any
// entry whose canonical URL repeats an earlier one.
func Items(section map[string]any) []domain.Item {
	rawItems, _ := section["items"].([]any)

	items := make([]domain.Item, 0, len(rawItems))
	seen := make(map[string]struct{}, len(rawItems))
	for _, entry := range rawItems {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := Record(obj)
		key := CanonicalURL(item.URL)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}
	return items
}

// Strings returns the string elements of a salvaged JSON array, trimmed,
// skipping empty and non-string entries.
func Strings(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitByVerdict separates items admitted by the quality gate from the rest,
// preserving order.
func SplitByVerdict(items []domain.Item) (kept, dropped []domain.Item) {
	for _, item := range items {
		if item.Quality.Kept() {
			kept = append(kept, item)
		} else {
			dropped = append(dropped, item)
		}
	}
	return kept, dropped
}

// quality tolerates partial or malformed verdict objects. A bare string is
// read as the verdict itself.
func quality(v any) *domain.Quality {
	switch q := v.(type) {
	case map[string]any:
		return &domain.Quality{
			Verdict:    domain.Verdict(strings.ToUpper(stringValue(q["verdict"]))),
			Confidence: strings.ToLower(stringValue(q["confidence"])),
			Reason:     stringValue(q["reason"]),
		}
	case string:
		if strings.TrimSpace(q) == "" {
			return nil
		}
		return &domain.Quality{Verdict: domain.Verdict(strings.ToUpper(strings.TrimSpace(q)))}
	default:
		return nil
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool, int, int64:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// plainText flattens HTML fragments that search agents sometimes echo back.
func plainText(s string) string {
	if !markup.MatchString(s) {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
