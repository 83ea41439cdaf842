package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stugorf/hdc-digest/internal/config"
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/scanner"
)

type stubScanner struct {
	name     string
	items    []domain.Item
	requests []scanner.Request
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Item, error) {
	s.requests = append(s.requests, req)
	out := make([]domain.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func TestStrategySourceFetchSections(t *testing.T) {
	agent := &stubScanner{name: config.ScannerAgent, items: []domain.Item{{URL: "https://a", SourceType: "blog"}, {URL: "https://b"}}}
	arxiv := &stubScanner{name: config.ScannerArxiv, items: []domain.Item{{URL: "https://arxiv.org/abs/1", SourceType: "paper"}}}

	reg := scanner.NewRegistry()
	reg.Register(agent)
	reg.Register(arxiv)

	sections := []config.SectionConfig{
		{Name: "News", Query: "q1", SourceType: "news"},
		{Name: "Papers", Query: "q2", SourceType: "paper", Scanner: config.ScannerArxiv,
			Categories: []config.CategoryConfig{{Name: "cs.ET", URL: "https://arxiv.org/list/cs.ET/new"}}},
	}
	src := NewStrategySource(reg, sections, config.DigestConfig{DaysBack: 2, MaxItemsPerSection: 5}, nil)

	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	got, err := src.FetchSections(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "News", got[0].Name)
	assert.Equal(t, "q1", got[0].Query)
	assert.Equal(t, "blog", got[0].Items[0].SourceType)
	assert.Equal(t, "news", got[0].Items[1].SourceType)
	assert.Equal(t, "Papers", got[1].Name)

	require.Len(t, agent.requests, 1)
	assert.Equal(t, 2, agent.requests[0].DaysBack)
	assert.Equal(t, 5, agent.requests[0].MaxItems)
	require.Len(t, arxiv.requests, 1)
	assert.Equal(t, "cs.ET", arxiv.requests[0].Categories[0].Name)
}

func TestStrategySourceUnknownScanner(t *testing.T) {
	src := NewStrategySource(scanner.NewRegistry(), []config.SectionConfig{{Name: "X", Scanner: "rss"}}, config.DigestConfig{}, nil)

	_, err := src.FetchSections(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rss")
}
