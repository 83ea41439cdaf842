package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stugorf/hdc-digest/internal/domain"
)

func trendsCMD(load appLoader) *cobra.Command {
	var (
		weeksBack  int
		topN       int
		periodType string
		noAgent    bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Analyze topic trends over the stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadHistory(load)
			if err != nil {
				return err
			}
			defer application.Close()

			opts := application.DefaultTrendOptions()
			if weeksBack > 0 {
				opts.WeeksBack = weeksBack
			}
			if topN > 0 {
				opts.TopN = topN
			}
			if periodType != "" {
				opts.PeriodType = domain.PeriodType(periodType)
			}
			if noAgent {
				opts.UseAgent = false
			}

			analysis, err := application.AnalyzeTrends(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			}

			fmt.Fprintf(out, "Trend analysis %s (%s buckets, %d topics)\n\n", analysis.AnalysisDate, analysis.PeriodType, len(analysis.TopTopics))
			if len(analysis.TopTopics) == 0 {
				fmt.Fprintln(out, "No topics found in the selected window.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOPIC\tMENTIONS\tSTART\tEND\tPEAK\tSTATUS")
			for _, t := range analysis.TopTopics {
				end, status := "-", "active"
				if !t.Active() {
					end, status = *t.EndDate, "ended"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s (%d)\t%s\n", t.Name, t.TotalMentions, t.StartDate, end, t.PeakWeek, t.PeakCount, status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&weeksBack, "weeks-back", 0, "lookback window in weeks (default from config)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "number of topics to keep (default from config)")
	cmd.Flags().StringVar(&periodType, "period-type", "", "bucket granularity: week, month or year")
	cmd.Flags().BoolVar(&noAgent, "no-agent", false, "use keyword topics only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full analysis including time series as JSON")
	return cmd
}
