package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheNovakAI/google-search-blogger/internal/report"
	"github.com/TheNovakAI/google-search-blogger/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		topic, status, format string
		since                 time.Duration
		limit, offset         int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize past runs from the run history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New("no run history store configured (set --store or store.dsn)")
			}
			defer backend.Close()

			filter := storage.Filter{
				Topic:  topic,
				Status: storage.Status(strings.ToLower(status)),
				Limit:  limit,
				Offset: offset,
			}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			runs, err := backend.Query(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}

			summary := report.GenerateSummary(runs)
			switch strings.ToLower(format) {
			case "text":
				return report.WriteText(cmd.OutOrStdout(), summary)
			case "json":
				return report.WriteJSON(cmd.OutOrStdout(), summary)
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&topic, "topic", "", "only runs for this topic")
	flags.StringVar(&status, "status", "", "only runs with this status: completed or failed")
	flags.DurationVar(&since, "since", 0, "only runs newer than this, e.g. 24h")
	flags.IntVar(&limit, "limit", 20, "maximum runs to show")
	flags.IntVar(&offset, "offset", 0, "runs to skip")
	flags.StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
