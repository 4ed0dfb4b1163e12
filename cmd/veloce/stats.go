package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/veloce-ai/veloce/pkg/config"
	"github.com/veloce-ai/veloce/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		since      string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show embedding usage and cost statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			ctx := context.Background()

			summaries, err := tr.Summary(ctx)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tCACHE HITS\tFAILURES\tTOKENS\tCOST")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t$%.4f\n",
					s.Model, s.RequestCount, s.CacheHits, s.Failures, s.TotalTokens, s.TotalCost)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			sinceTime := time.Time{}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				sinceTime = t
			}
			cost, err := tr.TotalCost(ctx, sinceTime)
			if err != nil {
				return err
			}
			fmt.Printf("\nTotal cost: $%.4f\n", cost)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "veloce.yaml", "path to config file")
	cmd.Flags().StringVar(&since, "since", "", "start date for the cost total (YYYY-MM-DD)")
	return cmd
}
