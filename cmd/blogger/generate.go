package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheNovakAI/google-search-blogger/internal/report"
)

func newGenerateCmd(a *app) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Search the web for a topic and write a blog article from the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := a.buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := p.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch strings.ToLower(format) {
			case "markdown", "md":
				err = report.WriteMarkdown(w, res.Article)
			case "html":
				err = report.WriteHTML(w, res.Article)
			case "json":
				err = writeJSON(w, res)
			default:
				return fmt.Errorf("unknown format %q (want markdown, html or json)", format)
			}
			if err != nil {
				return err
			}

			a.logger.Info("article written",
				"run_id", res.RunID,
				"sources", len(res.Sources),
				"skipped", len(res.Skipped),
				"duration", res.Duration,
			)
			return nil
		},
	}

	addPipelineFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the article to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, html or json")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
