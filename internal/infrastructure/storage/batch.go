package storage

import (
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
)

type batchRow struct {
	kind    domain.ItemKind
	section string
	item    domain.Item
}

// batchRows flattens a digest into upsert rows. A canonical url is written at
// most once per kind in a run; the first occurrence wins.
func batchRows(digest domain.Digest) []batchRow {
	seen := map[domain.ItemKind]map[string]struct{}{
		domain.KindKept:    {},
		domain.KindDropped: {},
	}

	var rows []batchRow
	add := func(kind domain.ItemKind, section string, items []domain.Item) {
		for _, item := range items {
			url := normalize.CanonicalURL(item.URL)
			if _, dup := seen[kind][url]; dup {
				continue
			}
			seen[kind][url] = struct{}{}
			rows = append(rows, batchRow{kind: kind, section: section, item: item})
		}
	}
	for _, section := range digest.Sections {
		add(domain.KindKept, section.Name, section.Items)
		add(domain.KindDropped, section.Name, section.Dropped)
	}
	return rows
}
