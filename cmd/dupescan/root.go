package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for dupescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dupescan",
		Short: "Duplicate content and originality scanner",
		Long: `dupescan fingerprints text content with word shingles and compares every
page of an audit against every other page with the Jaccard index.

Pages are classified as exact duplicates, near duplicates or related
content, and each page receives an originality score from 0 to 100 that
combines intrinsic text diversity with duplicate penalties.

Audit local files with 'dupescan analyze' or whole sites with
'dupescan crawl'. Finished audits are stored and can be listed with
'dupescan history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
