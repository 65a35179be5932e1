package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deep-search/internal/app"
	"deep-search/internal/logger"
	"deep-search/internal/pipeline"
	"deep-search/internal/provider"
)

const cliSession = "cli"

type runFunc func(ctx context.Context, req pipeline.Request) (pipeline.Result, error)

func main() {
	var deps app.Deps
	run := func(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
		return deps.Pipeline.Run(ctx, req)
	}

	cmd := newRootCmd(run)
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		deps, err = app.BuildWith(cfg, logger.NewWriter(cmd.ErrOrStderr(), level, false))
		return err
	}

	err := cmd.Execute()
	if deps.Pipeline != nil {
		_ = deps.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(run runFunc) *cobra.Command {
	var (
		providerName string
		noImages     bool
		asJSON       bool
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:          "ask [flags] <query...>",
		Short:        "Search the web and print a cited answer",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := provider.ParseName(providerName)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := run(ctx, pipeline.Request{
				Query:      strings.Join(args, " "),
				Provider:   name,
				Session:    cliSession,
				SkipImages: noImages,
			})
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "LLM backend: openai, deepseek or alibabacloud (default from DEFAULT_PROVIDER)")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "skip image enrichment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall run timeout")
	cmd.Flags().BoolP("verbose", "v", false, "log pipeline progress to stderr")
	return cmd
}

func printResult(w io.Writer, res pipeline.Result) {
	if res.RefinedQuery != "" && res.RefinedQuery != res.Query {
		fmt.Fprintf(w, "Searched for: %s\n\n", res.RefinedQuery)
	}
	fmt.Fprintln(w, strings.TrimSpace(res.Answer))

	if len(res.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, s := range res.Sources {
			fmt.Fprintf(w, " [%d] %s\n     %s\n", i+1, s.Title, s.URL)
		}
	}
	if len(res.RelatedSearches) > 0 {
		fmt.Fprintln(w, "\nRelated searches:")
		for _, r := range res.RelatedSearches {
			fmt.Fprintf(w, " - %s\n", r.Query)
		}
	}
	if len(res.Degraded) > 0 {
		fmt.Fprintf(w, "\n(degraded: %s)\n", strings.Join(res.Degraded, ", "))
	}
}
