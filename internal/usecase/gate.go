package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
)

// gateSection asks the agent for a verdict on every item of the section and
// splits the section into kept and dropped. Verdicts are matched back to the
// retrieved items by canonical url; an item the agent did not return is
// dropped with no quality attached.
func (p *Pipeline) gateSection(ctx context.Context, section domain.Section) (domain.Section, error) {
	if len(section.Items) == 0 {
		return domain.Section{Name: section.Name, Query: section.Query, Items: []domain.Item{}, Dropped: []domain.Item{}}, nil
	}

	input, err := json.Marshal(section)
	if err != nil {
		return domain.Section{}, fmt.Errorf("marshal section %s: %w", section.Name, err)
	}

	text, err := p.agent.Run(ctx, gatePrompt(section, string(input)))
	if err != nil {
		return domain.Section{}, fmt.Errorf("quality gate %s: %w", section.Name, err)
	}

	raw, err := p.parser.Object(text)
	if err != nil {
		return domain.Section{}, fmt.Errorf("quality gate %s: %w", section.Name, err)
	}

	verdicts := make(map[string]*domain.Quality)
	for _, gated := range normalize.Items(raw) {
		verdicts[normalize.CanonicalURL(gated.URL)] = gated.Quality
	}

	judged := make([]domain.Item, 0, len(section.Items))
	for _, item := range section.Items {
		item.Quality = verdicts[normalize.CanonicalURL(item.URL)]
		judged = append(judged, item)
	}

	kept, dropped := normalize.SplitByVerdict(judged)
	return domain.Section{Name: section.Name, Query: section.Query, Items: kept, Dropped: dropped}, nil
}

func gatePrompt(section domain.Section, input string) string {
	return fmt.Sprintf(`Verify each item is truly about Hyperdimensional Computing (HDC) / VSA / hypervectors.

Mark:
- KEEP if clearly HDC/VSA
- DROP otherwise

Return ONLY JSON:
{
  "name": %q,
  "query": %q,
  "items": [
    {
      "title": "...",
      "published_date": "...",
      "url": "...",
      "summary": "...",
      "source_type": "...",
      "publisher": "...",
      "quality": {
        "verdict": "KEEP|DROP",
        "confidence": "high|medium|low",
        "reason": "one short sentence"
      }
    }
  ]
}

INPUT:
%s
`, section.Name, section.Query, input)
}

// synthesizeThemes asks the agent for the main themes across kept items.
func (p *Pipeline) synthesizeThemes(ctx context.Context, sections []domain.Section) ([]string, error) {
	kept := 0
	for _, s := range sections {
		kept += len(s.Items)
	}
	if kept == 0 {
		return []string{}, nil
	}

	type themeSection struct {
		Name  string        `json:"name"`
		Items []domain.Item `json:"items"`
	}
	input := make([]themeSection, 0, len(sections))
	for _, s := range sections {
		input = append(input, themeSection{Name: s.Name, Items: s.Items})
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal themes input: %w", err)
	}

	text, err := p.agent.Run(ctx, fmt.Sprintf(`Summarize the main themes across the sections below.

Return ONLY JSON:
{
  "top_themes": ["...", "..."]
}

SECTIONS:
%s
`, payload))
	if err != nil {
		return nil, fmt.Errorf("synthesize themes: %w", err)
	}

	raw, err := p.parser.Object(text)
	if err != nil {
		return nil, fmt.Errorf("synthesize themes: %w", err)
	}

	themes, _ := raw["top_themes"].([]any)
	return normalize.Strings(themes), nil
}
