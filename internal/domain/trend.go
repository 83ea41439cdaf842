package domain

// PeriodType is the bucketing granularity of a trend analysis.
type PeriodType string

const (
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
	PeriodYear  PeriodType = "year"
)

// Valid reports whether the granularity is supported.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// TrendDataPoint is one bucket of a topic's time series.
type TrendDataPoint struct {
	Period string `json:"period"`
	Date   string `json:"date"`
	Count  int    `json:"count"`
}

// TrendTopic is a point-in-time view of one topic's activity.
// EndDate is nil while the topic is still active.
type TrendTopic struct {
	Name          string  `json:"name"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date"`
	TotalMentions int     `json:"total_mentions"`
	PeakWeek      string  `json:"peak_week"`
	PeakCount     int     `json:"peak_count"`
}

// Active reports whether the topic has not ended.
func (t TrendTopic) Active() bool {
	return t.EndDate == nil
}

// TrendAnalysis is the result of one analysis run.
type TrendAnalysis struct {
	AnalysisDate string                      `json:"analysis_date"`
	TopTopics    []TrendTopic                `json:"top_topics"`
	TimeSeries   map[string][]TrendDataPoint `json:"time_series"`
	PeriodType   PeriodType                  `json:"period_type"`
}
