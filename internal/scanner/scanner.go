package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/stugorf/hdc-digest/internal/domain"
)

// Category describes a concrete listing endpoint provided by config.
type Category struct {
	Name string
	URL  string
}

// Request carries everything a scanner needs to fill one digest section.
type Request struct {
	Day        time.Time
	Section    string
	Query      string
	SourceType string
	DaysBack   int
	MaxItems   int
	Categories []Category
	Options    map[string]string
}

// WindowStart returns the first calendar day (UTC) covered by the request.
func (r Request) WindowStart() time.Time {
	days := r.DaysBack
	if days < 1 {
		days = 1
	}
	day := r.Day.UTC().Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -(days - 1))
}

// Scanner captures a single retrieval strategy (agent web search, arXiv listing, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Item, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
