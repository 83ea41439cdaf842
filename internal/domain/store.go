package domain

import "time"

// ItemKind selects one of the two parallel histories.
type ItemKind string

const (
	KindKept    ItemKind = "kept"
	KindDropped ItemKind = "dropped"
)

// Valid reports whether the kind names a known history.
func (k ItemKind) Valid() bool {
	return k == KindKept || k == KindDropped
}

// StoredItem is the persisted form of an Item with seen bookkeeping.
// Quality fields are flattened; nil means the agent did not provide them.
type StoredItem struct {
	URL               string    `json:"url"`
	Title             string    `json:"title"`
	PublishedDate     string    `json:"published_date"`
	Summary           string    `json:"summary"`
	SourceType        string    `json:"source_type"`
	Publisher         string    `json:"publisher"`
	SectionName       string    `json:"section_name"`
	QualityVerdict    *string   `json:"quality_verdict"`
	QualityConfidence *string   `json:"quality_confidence"`
	QualityReason     *string   `json:"quality_reason"`
	FirstSeenDate     time.Time `json:"first_seen_date"`
	LastSeenDate      time.Time `json:"last_seen_date"`
	SeenCount         int       `json:"seen_count"`
}

// ListFilter narrows and pages a listing of stored items.
type ListFilter struct {
	Kind        ItemKind
	SectionName string
	SourceType  string
	Limit       uint64
	Offset      uint64
	OrderBy     string
}

// DateRange is the earliest and latest first-seen dates in the store.
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Stats aggregates the stored history.
type Stats struct {
	TotalItems   int            `json:"total_items"`
	BySection    map[string]int `json:"by_section"`
	BySourceType map[string]int `json:"by_source_type"`
	DateRange    *DateRange     `json:"date_range,omitempty"`
}
