package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/normalize"
	"github.com/stugorf/hdc-digest/internal/ports"
	"github.com/stugorf/hdc-digest/internal/salvage"
	"github.com/stugorf/hdc-digest/internal/scanner"
)

// AgentScanner asks the web-search agent for a section's items and salvages
// the JSON out of its reply.
type AgentScanner struct {
	agent  ports.Agent
	parser *salvage.Parser
	logger *slog.Logger
}

var _ scanner.Scanner = (*AgentScanner)(nil)

// NewAgentScanner wires the agent and the salvage parser.
func NewAgentScanner(agent ports.Agent, parser *salvage.Parser, log *slog.Logger) *AgentScanner {
	if parser == nil {
		parser = salvage.NewParser()
	}
	return &AgentScanner{agent: agent, parser: parser, logger: log}
}

// Name identifies the strategy inside the registry.
func (a *AgentScanner) Name() string {
	return "agent"
}

// Scan runs one search prompt. A reply with no recoverable JSON fails the scan.
func (a *AgentScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Item, error) {
	if a.agent == nil {
		return nil, fmt.Errorf("agent is not configured")
	}

	prompt := sectionPrompt(req)
	text, err := a.agent.Run(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("search section %s: %w", req.Section, err)
	}

	raw, err := a.parser.Object(text)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", req.Section, err)
	}

	items := normalize.Items(raw)
	if req.MaxItems > 0 && len(items) > req.MaxItems {
		items = items[:req.MaxItems]
	}
	a.debug("agent section parsed", "section", req.Section, "items", len(items))
	return items, nil
}

func sectionPrompt(req scanner.Request) string {
	return fmt.Sprintf(`SECTION: %[1]s

Run a web search for the query below.

QUERY:
%[2]s

Return ONLY valid JSON:
{
  "name": %[1]q,
  "query": %[2]q,
  "items": [
    {
      "title": "...",
      "published_date": "YYYY-MM-DD or empty",
      "url": "...",
      "summary": "2-4 factual sentences",
      "source_type": %[3]q,
      "publisher": "publisher or empty"
    }
  ]
}

Rules:
- Focus on items published between %[4]s and %[5]s
- Max %[6]d items
- Drop weak or tangential matches
- JSON only
`, req.Section, req.Query, req.SourceType,
		req.WindowStart().Format(domain.DateLayout), req.Day.UTC().Format(domain.DateLayout),
		req.MaxItems)
}

func (a *AgentScanner) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
