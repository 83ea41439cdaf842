package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/ports"
	"github.com/stugorf/hdc-digest/internal/salvage"
)

// EndedGapWeeks is how long a topic may go without mentions before the
// analyzer reports it as ended.
const EndedGapWeeks = 4

const (
	defaultWeeksBack  = 52
	defaultTopN       = 15
	defaultSampleSize = 50
)

// KeywordTopic maps a topic label to keywords that signal it.
type KeywordTopic struct {
	Topic    string
	Keywords []string
}

// TrendDeps wires the trend analyzer.
type TrendDeps struct {
	Reader     ports.ItemReader
	Agent      ports.Agent
	Parser     *salvage.Parser
	Keywords   []KeywordTopic
	SampleSize int
	// TopicPrompt is prepended to the topic extraction request.
	TopicPrompt string
	Now         func() time.Time
	Logger      *slog.Logger
}

// TrendOptions selects the window and granularity of one analysis.
type TrendOptions struct {
	WeeksBack  int
	TopN       int
	PeriodType domain.PeriodType
	UseAgent   bool
}

// TrendAnalyzer turns the kept-item history into ranked topics with
// active windows and per-period series.
type TrendAnalyzer struct {
	reader      ports.ItemReader
	agent       ports.Agent
	parser      *salvage.Parser
	keywords    []KeywordTopic
	sampleSize  int
	topicPrompt string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTrendAnalyzer constructs the analyzer.
func NewTrendAnalyzer(deps TrendDeps) *TrendAnalyzer {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	parser := deps.Parser
	if parser == nil {
		parser = salvage.NewParser(salvage.WithLogger(deps.Logger))
	}
	sample := deps.SampleSize
	if sample <= 0 {
		sample = defaultSampleSize
	}
	return &TrendAnalyzer{
		reader:      deps.Reader,
		agent:       deps.Agent,
		parser:      parser,
		keywords:    deps.Keywords,
		sampleSize:  sample,
		topicPrompt: strings.TrimSpace(deps.TopicPrompt),
		now:         now,
		logger:      deps.Logger,
	}
}

type bucket struct {
	label string
	start time.Time
	items []domain.StoredItem
}

// Analyze reads items first seen in the lookback window and derives trends.
func (a *TrendAnalyzer) Analyze(ctx context.Context, opts TrendOptions) (domain.TrendAnalysis, error) {
	if a.reader == nil {
		return domain.TrendAnalysis{}, fmt.Errorf("trend analyzer has no item reader")
	}
	if opts.WeeksBack <= 0 {
		opts.WeeksBack = defaultWeeksBack
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}
	if opts.PeriodType == "" {
		opts.PeriodType = domain.PeriodWeek
	}
	if !opts.PeriodType.Valid() {
		return domain.TrendAnalysis{}, fmt.Errorf("unknown period type %q", opts.PeriodType)
	}

	end := dateOf(a.now())
	start := end.AddDate(0, 0, -7*opts.WeeksBack)

	result := domain.TrendAnalysis{
		AnalysisDate: end.Format(domain.DateLayout),
		TopTopics:    []domain.TrendTopic{},
		TimeSeries:   map[string][]domain.TrendDataPoint{},
		PeriodType:   opts.PeriodType,
	}

	items, err := a.reader.FirstSeenBetween(ctx, domain.KindKept, start, end)
	if err != nil {
		return domain.TrendAnalysis{}, fmt.Errorf("load items: %w", err)
	}
	a.debug("trend window loaded", "items", len(items), "from", start.Format(domain.DateLayout))
	if len(items) == 0 {
		return result, nil
	}

	buckets := bucketize(items, start, end, opts.PeriodType)
	topics := a.extractTopics(ctx, items, opts)

	type ranked struct {
		name   string
		total  int
		points []domain.TrendDataPoint
	}
	candidates := make([]ranked, 0, len(topics))
	for _, topic := range topics {
		points, total := series(buckets, topic)
		if total == 0 {
			continue
		}
		candidates = append(candidates, ranked{name: topic, total: total, points: points})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].total > candidates[j].total
	})
	if len(candidates) > opts.TopN {
		candidates = candidates[:opts.TopN]
	}

	for _, c := range candidates {
		result.TopTopics = append(result.TopTopics, lifecycle(c.name, c.total, c.points))
		result.TimeSeries[c.name] = c.points
	}
	return result, nil
}

// extractTopics asks the agent for topic labels when requested and falls
// back to the keyword dictionary on any failure or an empty answer.
func (a *TrendAnalyzer) extractTopics(ctx context.Context, items []domain.StoredItem, opts TrendOptions) []string {
	if opts.UseAgent && a.agent != nil {
		topics, err := a.agentTopics(ctx, items)
		if err == nil && len(topics) > 0 {
			return topics
		}
		if a.logger != nil {
			a.logger.Warn("agent topic extraction failed, using keywords", "error", err, "topics", len(topics))
		}
	}
	return KeywordTopics(items, a.keywords, opts.TopN)
}

func (a *TrendAnalyzer) agentTopics(ctx context.Context, items []domain.StoredItem) ([]string, error) {
	type sample struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	n := len(items)
	if n > a.sampleSize {
		n = a.sampleSize
	}
	content := make([]sample, 0, n)
	for _, it := range items[:n] {
		content = append(content, sample{Title: it.Title, Summary: it.Summary})
	}
	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sample: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following HDC research items and extract the main topics/themes.

Items:
%s

Return ONLY a JSON array of topic strings (2-5 words each).
Focus on recurring themes and important research directions.
Return 10-20 topics.
`, payload)
	if a.topicPrompt != "" {
		prompt = a.topicPrompt + "\n\n" + prompt
	}

	text, err := a.agent.Run(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := a.parser.Array(text)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(raw))
	seen := map[string]struct{}{}
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if _, dup := seen[key]; s == "" || dup {
			continue
		}
		seen[key] = struct{}{}
		topics = append(topics, s)
	}
	return topics, nil
}

// KeywordTopics ranks dictionary topics by raw keyword occurrences over all
// titles and summaries. Only the first keyword of a topic that occurs at all
// is counted.
func KeywordTopics(items []domain.StoredItem, dict []KeywordTopic, limit int) []string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Title+" "+it.Summary)
	}
	text := strings.ToLower(strings.Join(parts, " "))

	type counted struct {
		topic string
		count int
	}
	var counts []counted
	for _, entry := range dict {
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(kw)
			if kw == "" || !strings.Contains(text, kw) {
				continue
			}
			counts = append(counts, counted{topic: entry.Topic, count: strings.Count(text, kw)})
			break
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].count > counts[j].count })

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	out := make([]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, c.topic)
	}
	return out
}

// bucketize lays out every period between start and end, in order, and
// assigns items to them by first-seen date.
func bucketize(items []domain.StoredItem, start, end time.Time, period domain.PeriodType) []*bucket {
	var (
		buckets []*bucket
		index   = map[string]*bucket{}
	)
	for cursor := periodStart(start, period); !cursor.After(end); cursor = nextPeriod(cursor, period) {
		b := &bucket{label: periodLabel(cursor, period), start: cursor}
		buckets = append(buckets, b)
		index[b.label] = b
	}

	for _, it := range items {
		if b, ok := index[periodLabel(dateOf(it.FirstSeenDate), period)]; ok {
			b.items = append(b.items, it)
		}
	}
	return buckets
}

// series counts, per bucket, the items whose title or summary mention topic.
func series(buckets []*bucket, topic string) ([]domain.TrendDataPoint, int) {
	needle := strings.ToLower(topic)
	points := make([]domain.TrendDataPoint, 0, len(buckets))
	total := 0
	for _, b := range buckets {
		count := 0
		for _, it := range b.items {
			if strings.Contains(strings.ToLower(it.Title+" "+it.Summary), needle) {
				count++
			}
		}
		total += count
		points = append(points, domain.TrendDataPoint{
			Period: b.label,
			Date:   representativeDate(b).Format(domain.DateLayout),
			Count:  count,
		})
	}
	return points, total
}

// lifecycle derives start, end and peak from a topic's series.
func lifecycle(name string, total int, points []domain.TrendDataPoint) domain.TrendTopic {
	topic := domain.TrendTopic{Name: name, TotalMentions: total}

	first, last := -1, -1
	for i, p := range points {
		if p.Count == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		if p.Count > topic.PeakCount {
			topic.PeakCount = p.Count
			topic.PeakWeek = p.Date
		}
	}
	if first < 0 {
		return topic
	}
	topic.StartDate = points[first].Date

	lastActive, _ := time.Parse(domain.DateLayout, points[last].Date)
	final, _ := time.Parse(domain.DateLayout, points[len(points)-1].Date)
	gapWeeks := final.Sub(lastActive).Hours() / 24 / 7
	if gapWeeks > EndedGapWeeks {
		ended := points[last].Date
		topic.EndDate = &ended
	}
	return topic
}

func representativeDate(b *bucket) time.Time {
	if len(b.items) == 0 {
		return b.start
	}
	earliest := dateOf(b.items[0].FirstSeenDate)
	for _, it := range b.items[1:] {
		if d := dateOf(it.FirstSeenDate); d.Before(earliest) {
			earliest = d
		}
	}
	return earliest
}

func periodStart(t time.Time, period domain.PeriodType) time.Time {
	t = dateOf(t)
	switch period {
	case domain.PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case domain.PeriodYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset)
	}
}

func nextPeriod(t time.Time, period domain.PeriodType) time.Time {
	switch period {
	case domain.PeriodMonth:
		return t.AddDate(0, 1, 0)
	case domain.PeriodYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 7)
	}
}

func periodLabel(t time.Time, period domain.PeriodType) string {
	switch period {
	case domain.PeriodMonth:
		return t.Format("2006-01")
	case domain.PeriodYear:
		return t.Format("2006")
	default:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (a *TrendAnalyzer) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
