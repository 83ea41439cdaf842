package usecase

import (
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
)

// FilterSeen removes every kept item whose canonical url is in seenKept and
// every dropped item whose canonical url is in seenDropped. Section order and
// the order of surviving items are preserved; the input is not modified.
func FilterSeen(sections []domain.Section, seenKept, seenDropped map[string]struct{}) []domain.Section {
	out := make([]domain.Section, 0, len(sections))
	for _, section := range sections {
		out = append(out, domain.Section{
			Name:    section.Name,
			Query:   section.Query,
			Items:   unseen(section.Items, seenKept),
			Dropped: unseen(section.Dropped, seenDropped),
		})
	}
	return out
}

func unseen(items []domain.Item, seen map[string]struct{}) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[normalize.CanonicalURL(item.URL)]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// CollapseRepeats keeps only the first occurrence of each canonical url
// across all sections of one batch, separately for kept and dropped items.
// Order is otherwise preserved.
func CollapseRepeats(sections []domain.Section) []domain.Section {
	keptSeen := map[string]struct{}{}
	droppedSeen := map[string]struct{}{}

	out := make([]domain.Section, 0, len(sections))
	for _, section := range sections {
		out = append(out, domain.Section{
			Name:    section.Name,
			Query:   section.Query,
			Items:   firstOccurrences(section.Items, keptSeen),
			Dropped: firstOccurrences(section.Dropped, droppedSeen),
		})
	}
	return out
}

func firstOccurrences(items []domain.Item, seen map[string]struct{}) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		key := normalize.CanonicalURL(item.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
