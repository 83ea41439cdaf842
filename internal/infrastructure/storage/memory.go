package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
	"github.com/stugorf/hdc-digest/internal/ports"
)

// MemoryStore keeps both histories in process memory. It is used when no
// database DSN is configured and mirrors the Postgres upsert semantics.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[domain.ItemKind]map[string]domain.StoredItem
}

var (
	_ ports.SeenStore  = (*MemoryStore)(nil)
	_ ports.ItemReader = (*MemoryStore)(nil)
)

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[domain.ItemKind]map[string]domain.StoredItem{
		domain.KindKept:    {},
		domain.KindDropped: {},
	}}
}

// LoadSeen returns every canonical url stored for kind.
func (m *MemoryStore) LoadSeen(_ context.Context, kind domain.ItemKind) (map[string]struct{}, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]struct{}, len(m.tables[kind]))
	for url := range m.tables[kind] {
		out[url] = struct{}{}
	}
	return out, nil
}

// Save applies the whole batch or nothing.
func (m *MemoryStore) Save(_ context.Context, digest domain.Digest) error {
	runDate, err := time.Parse(domain.DateLayout, digest.Date)
	if err != nil {
		return fmt.Errorf("run date %q: %w", digest.Date, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range batchRows(digest) {
		m.upsert(row.kind, row.section, row.item, runDate)
	}
	return nil
}

func (m *MemoryStore) upsert(kind domain.ItemKind, section string, item domain.Item, runDate time.Time) {
	url := normalize.CanonicalURL(item.URL)
	verdict, confidence, reason := flattenQuality(item.Quality)

	next := domain.StoredItem{
		URL:               url,
		Title:             item.Title,
		PublishedDate:     item.PublishedDate,
		Summary:           item.Summary,
		SourceType:        item.SourceType,
		Publisher:         item.Publisher,
		SectionName:       section,
		QualityVerdict:    verdict,
		QualityConfidence: confidence,
		QualityReason:     reason,
		FirstSeenDate:     runDate,
		LastSeenDate:      runDate,
		SeenCount:         1,
	}

	if prev, ok := m.tables[kind][url]; ok {
		next.FirstSeenDate = prev.FirstSeenDate
		next.SeenCount = prev.SeenCount + 1
		if prev.LastSeenDate.After(runDate) {
			next.LastSeenDate = prev.LastSeenDate
		}
	}
	m.tables[kind][url] = next
}

// List filters, orders and pages the stored items.
func (m *MemoryStore) List(_ context.Context, filter domain.ListFilter) ([]domain.StoredItem, error) {
	if !filter.Kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", filter.Kind)
	}
	order, err := orderClause(filter.OrderBy)
	if err != nil {
		return nil, err
	}

	items := m.collect(filter.Kind, func(it domain.StoredItem) bool {
		if filter.SectionName != "" && it.SectionName != filter.SectionName {
			return false
		}
		return filter.SourceType == "" || it.SourceType == filter.SourceType
	})
	sortItems(items, order)

	if filter.Offset > 0 {
		if filter.Offset >= uint64(len(items)) {
			return nil, nil
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < uint64(len(items)) {
		items = items[:filter.Limit]
	}
	return items, nil
}

// GetByURL fetches a single item by its canonical url.
func (m *MemoryStore) GetByURL(_ context.Context, kind domain.ItemKind, url string) (domain.StoredItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.tables[kind][normalize.CanonicalURL(url)]
	if !ok {
		return domain.StoredItem{}, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	return item, nil
}

// FirstSeenBetween returns items first seen within [from, to], newest first.
func (m *MemoryStore) FirstSeenBetween(_ context.Context, kind domain.ItemKind, from, to time.Time) ([]domain.StoredItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
	lo, hi := from.Format(domain.DateLayout), to.Format(domain.DateLayout)
	items := m.collect(kind, func(it domain.StoredItem) bool {
		day := it.FirstSeenDate.Format(domain.DateLayout)
		return day >= lo && day <= hi
	})
	sortItems(items, defaultOrder)
	return items, nil
}

// Stats aggregates counts by section and source type plus the first-seen range.
func (m *MemoryStore) Stats(_ context.Context, kind domain.ItemKind) (domain.Stats, error) {
	if !kind.Valid() {
		return domain.Stats{}, fmt.Errorf("unknown item kind %q", kind)
	}
	stats := domain.Stats{BySection: map[string]int{}, BySourceType: map[string]int{}}

	for _, it := range m.collect(kind, nil) {
		stats.TotalItems++
		stats.BySection[it.SectionName]++
		stats.BySourceType[it.SourceType]++
		if stats.DateRange == nil {
			stats.DateRange = &domain.DateRange{Earliest: it.FirstSeenDate, Latest: it.FirstSeenDate}
			continue
		}
		if it.FirstSeenDate.Before(stats.DateRange.Earliest) {
			stats.DateRange.Earliest = it.FirstSeenDate
		}
		if it.FirstSeenDate.After(stats.DateRange.Latest) {
			stats.DateRange.Latest = it.FirstSeenDate
		}
	}
	return stats, nil
}

func (m *MemoryStore) collect(kind domain.ItemKind, keep func(domain.StoredItem) bool) []domain.StoredItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.StoredItem, 0, len(m.tables[kind]))
	for _, it := range m.tables[kind] {
		if keep == nil || keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// sortItems orders by a clause produced by orderClause; url breaks ties.
func sortItems(items []domain.StoredItem, order string) {
	column, direction, _ := strings.Cut(order, " ")
	desc := direction == "DESC"

	sort.SliceStable(items, func(i, j int) bool {
		c := compareColumn(items[i], items[j], column)
		if c == 0 {
			return items[i].URL < items[j].URL
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareColumn(a, b domain.StoredItem, column string) int {
	switch column {
	case "last_seen_date":
		return a.LastSeenDate.Compare(b.LastSeenDate)
	case "seen_count":
		return a.SeenCount - b.SeenCount
	case "published_date":
		return strings.Compare(a.PublishedDate, b.PublishedDate)
	case "title":
		return strings.Compare(a.Title, b.Title)
	default:
		return a.FirstSeenDate.Compare(b.FirstSeenDate)
	}
}
