package domain

import "time"

// DateLayout is the calendar-date format used for published, first-seen and last-seen dates.
const DateLayout = "2006-01-02"

// Verdict is the quality gate decision for a single item.
type Verdict string

const (
	VerdictKeep Verdict = "KEEP"
	VerdictDrop Verdict = "DROP"
)

// Quality carries the gate verdict attached to an item by the upstream agent.
type Quality struct {
	Verdict    Verdict `json:"verdict"`
	Confidence string  `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Kept reports whether the verdict admits the item into the digest.
// Anything other than KEEP, including an unknown verdict, is not kept.
func (q *Quality) Kept() bool {
	return q != nil && q.Verdict == VerdictKeep
}

// Item is one discovered piece of content. Every string field is always present,
// possibly empty; URL is the identity once canonicalized.
type Item struct {
	Title         string   `json:"title"`
	PublishedDate string   `json:"published_date"`
	URL           string   `json:"url"`
	Summary       string   `json:"summary"`
	SourceType    string   `json:"source_type"`
	Publisher     string   `json:"publisher"`
	Quality       *Quality `json:"quality,omitempty"`
}

// Section is a named query lane. An item is in at most one of Items and Dropped.
type Section struct {
	Name    string `json:"name"`
	Query   string `json:"query"`
	Items   []Item `json:"items"`
	Dropped []Item `json:"dropped_items"`
}

// Digest is the outcome of a single batch run.
type Digest struct {
	RunID     string        `json:"run_id"`
	Date      string        `json:"date_utc"`
	TopThemes []string      `json:"top_themes"`
	Sections  []Section     `json:"sections"`
	Duration  time.Duration `json:"duration"`
}

// CountKept returns the number of kept items across sections.
func (d Digest) CountKept() int {
	total := 0
	for _, s := range d.Sections {
		total += len(s.Items)
	}
	return total
}

// CountDropped returns the number of dropped items across sections.
func (d Digest) CountDropped() int {
	total := 0
	for _, s := range d.Sections {
		total += len(s.Dropped)
	}
	return total
}
