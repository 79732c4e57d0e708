package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldsight/sentinel/internal/repository"
)

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily risk computation once and exit.",
	Long:  `Runs baseline aggregation and operator scoring for a single date, prints the run summary as JSON, and exits. Safe to re-run for the same date.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogging(cfg.Logging)

		repo, err := repository.New(cfg.Repository)
		if err != nil {
			return fmt.Errorf("failed to initialize repository: %w", err)
		}
		defer repo.Close()

		// One-shot runs skip the cache and bus; nothing is serving reads
		// and nothing is subscribed.
		runner, err := buildRunner(cfg, repo, nil, nil)
		if err != nil {
			return err
		}

		summary, err := runner.Run(context.Background(), runDate)
		if err != nil {
			return fmt.Errorf("risk computation failed: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Target date (YYYY-MM-DD)")
	runCmd.MarkFlagRequired("date")
}
