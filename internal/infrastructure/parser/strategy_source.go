package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stugorf/hdc-digest/internal/config"
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/ports"
	"github.com/stugorf/hdc-digest/internal/scanner"
)

// StrategySource implements SectionSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sections []config.SectionConfig
	digest   config.DigestConfig
	logger   *slog.Logger
}

var _ ports.SectionSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sections.
func NewStrategySource(reg *scanner.Registry, sections []config.SectionConfig, digest config.DigestConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sections: sections,
		digest:   digest,
		logger:   log,
	}
}

// FetchSections runs each section's scanner in configuration order.
// The first failing section aborts the fetch.
func (s *StrategySource) FetchSections(ctx context.Context, day time.Time) ([]domain.Section, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch sections", "sections", len(s.sections), "day", day.Format(domain.DateLayout))

	out := make([]domain.Section, 0, len(s.sections))
	for _, section := range s.sections {
		name := section.Scanner
		if name == "" {
			name = config.ScannerAgent
		}
		s.debug("process section", "section", section.Name, "scanner", name, "categories", len(section.Categories))
		strategy, err := s.registry.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name, err)
		}

		req := scanner.Request{
			Day:        day,
			Section:    section.Name,
			Query:      section.Query,
			SourceType: section.SourceType,
			DaysBack:   s.digest.DaysBack,
			MaxItems:   s.digest.MaxItemsPerSection,
			Options:    section.Options,
			Categories: toScannerCategories(section.Categories),
		}

		items, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan section %s: %w", section.Name, err)
		}

		for i := range items {
			if items[i].SourceType == "" {
				items[i].SourceType = section.SourceType
			}
		}
		s.debug("section produced items", "section", section.Name, "count", len(items))
		out = append(out, domain.Section{
			Name:  section.Name,
			Query: section.Query,
			Items: items,
		})
	}

	return out, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
