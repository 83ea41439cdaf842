package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stugorf/hdc-digest/internal/config"
	"github.com/stugorf/hdc-digest/internal/domain"
	"github.com/stugorf/hdc-digest/internal/usecase"
)

type sectionSummary struct {
	Name         string `json:"name"`
	Query        string `json:"query"`
	ItemCount    int    `json:"item_count"`
	DroppedCount int    `json:"dropped_count"`
}

type runSummary struct {
	RunID           string           `json:"run_id"`
	DateUTC         string           `json:"date_utc"`
	DurationSeconds float64          `json:"duration_seconds"`
	TotalItems      int              `json:"total_items"`
	TotalDropped    int              `json:"total_dropped"`
	Sections        []sectionSummary `json:"sections"`
	TopThemes       []string         `json:"top_themes"`
}

func summarize(d domain.Digest) runSummary {
	s := runSummary{
		RunID:           d.RunID,
		DateUTC:         d.Date,
		DurationSeconds: d.Duration.Seconds(),
		TotalItems:      d.CountKept(),
		TotalDropped:    d.CountDropped(),
		TopThemes:       d.TopThemes,
	}
	for _, sec := range d.Sections {
		s.Sections = append(s.Sections, sectionSummary{
			Name:         sec.Name,
			Query:        sec.Query,
			ItemCount:    len(sec.Items),
			DroppedCount: len(sec.Dropped),
		})
	}
	return s
}

func runCMD(load appLoader) *cobra.Command {
	var (
		dryRun   bool
		daysBack int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one digest: search, gate, deduplicate, persist and notify",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, err := load(func(cfg *config.Config) {
				if daysBack > 0 {
					cfg.Digest.DaysBack = daysBack
				}
			})
			if err != nil {
				return err
			}
			defer application.Close()

			digest, err := application.RunDigest(cmd.Context(), usecase.RunOptions{DryRun: dryRun})
			if err != nil {
				logger.Error("digest run failed", "error", err)
				return err
			}

			if !dryRun {
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, usecase.RenderDigest(digest))
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(summarize(digest)); err != nil {
				return err
			}
			return enc.Encode(digest)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "persist but do not notify; print the digest and JSON summary")
	cmd.Flags().IntVar(&daysBack, "days-back", 0, "days to search back (default from config)")
	return cmd
}
