package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stugorf/hdc-digest/internal/domain"
)

func queryCMD(load appLoader) *cobra.Command {
	var (
		asJSON  bool
		dropped bool
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect the stored item history",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.PersistentFlags().BoolVar(&dropped, "dropped", false, "query the dropped-item history")

	kind := func() domain.ItemKind {
		if dropped {
			return domain.KindDropped
		}
		return domain.KindKept
	}

	var filter domain.ListFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored items",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadHistory(load)
			if err != nil {
				return err
			}
			defer application.Close()

			filter.Kind = kind()
			items, err := application.Reader().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items, asJSON)
		},
	}
	list.Flags().Uint64Var(&filter.Limit, "limit", 0, "maximum number of items")
	list.Flags().Uint64Var(&filter.Offset, "offset", 0, "items to skip")
	list.Flags().StringVar(&filter.SectionName, "section", "", "filter by section name")
	list.Flags().StringVar(&filter.SourceType, "source-type", "", "filter by source type")
	list.Flags().StringVar(&filter.OrderBy, "order-by", "", "column [asc|desc]: first_seen_date, last_seen_date, seen_count, published_date, title")

	var url string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show one item by url",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadHistory(load)
			if err != nil {
				return err
			}
			defer application.Close()

			item, err := application.Reader().GetByURL(cmd.Context(), kind(), url)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, item)
			}
			printItem(out, item)
			return nil
		},
	}
	show.Flags().StringVar(&url, "url", "", "item url")
	_ = show.MarkFlagRequired("url")

	var start, end string
	dateRange := &cobra.Command{
		Use:   "date-range",
		Short: "List items first seen between two dates (inclusive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(domain.DateLayout, start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := time.Parse(domain.DateLayout, end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if to.Before(from) {
				return fmt.Errorf("--end %s is before --start %s", end, start)
			}

			application, err := loadHistory(load)
			if err != nil {
				return err
			}
			defer application.Close()

			items, err := application.Reader().FirstSeenBetween(cmd.Context(), kind(), from, to)
			if err != nil {
				return err
			}
			return printItems(cmd.OutOrStdout(), items, asJSON)
		},
	}
	dateRange.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	dateRange.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	_ = dateRange.MarkFlagRequired("start")
	_ = dateRange.MarkFlagRequired("end")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate counts over the stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadHistory(load)
			if err != nil {
				return err
			}
			defer application.Close()

			s, err := application.Reader().Stats(cmd.Context(), kind())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, s)
			}
			printStats(out, s)
			return nil
		},
	}

	cmd.AddCommand(list, show, dateRange, stats)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(w io.Writer, items []domain.StoredItem, asJSON bool) error {
	if asJSON {
		if items == nil {
			items = []domain.StoredItem{}
		}
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIRST SEEN\tSEEN\tSECTION\tTYPE\tTITLE\tURL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			it.FirstSeenDate.Format(domain.DateLayout), it.SeenCount, it.SectionName, it.SourceType, it.Title, it.URL)
	}
	return tw.Flush()
}

func printItem(w io.Writer, it domain.StoredItem) {
	fmt.Fprintf(w, "Title:      %s\n", it.Title)
	fmt.Fprintf(w, "URL:        %s\n", it.URL)
	fmt.Fprintf(w, "Section:    %s\n", it.SectionName)
	fmt.Fprintf(w, "Type:       %s\n", it.SourceType)
	fmt.Fprintf(w, "Publisher:  %s\n", it.Publisher)
	fmt.Fprintf(w, "Published:  %s\n", it.PublishedDate)
	fmt.Fprintf(w, "First seen: %s\n", it.FirstSeenDate.Format(domain.DateLayout))
	fmt.Fprintf(w, "Last seen:  %s\n", it.LastSeenDate.Format(domain.DateLayout))
	fmt.Fprintf(w, "Seen count: %d\n", it.SeenCount)
	if it.QualityVerdict != nil {
		fmt.Fprintf(w, "Verdict:    %s (%s) %s\n", *it.QualityVerdict, deref(it.QualityConfidence), deref(it.QualityReason))
	}
	if it.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", it.Summary)
	}
}

func printStats(w io.Writer, s domain.Stats) {
	fmt.Fprintf(w, "Total items: %d\n", s.TotalItems)
	if s.DateRange != nil {
		fmt.Fprintf(w, "First seen:  %s .. %s\n",
			s.DateRange.Earliest.Format(domain.DateLayout), s.DateRange.Latest.Format(domain.DateLayout))
	}
	printCounts(w, "By section", s.BySection)
	printCounts(w, "By source type", s.BySourceType)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %-20s %d\n", name, counts[k])
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
