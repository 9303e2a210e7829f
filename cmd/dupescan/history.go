package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/database"
	"github.com/nao1215/dupescan/internal/model"
)

// NewHistoryCmd creates the history command.
// It reads audits stored by analyze and crawl.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show stored audit results",
		Long: `History lists audits stored in the history database and shows stored reports.

Every finished analyze or crawl run is stored unless --no-save was given.

Examples:
  # List every stored audit, newest first
  dupescan history

  # List audits of one site
  dupescan history https://docs.example.com

  # List all audited targets
  dupescan history --targets

  # Show a stored report
  dupescan history --id 0b5c1c1e-0c5f-4a39-9a4e-3f8f9d2a1b7c

  # Show the latest report of a site as Markdown
  dupescan history --latest -m https://docs.example.com

  # List the duplicate pairs of a stored audit
  dupescan history --id 0b5c1c1e-0c5f-4a39-9a4e-3f8f9d2a1b7c --duplicates`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("targets", "L", false,
		"List all audited targets")
	cmd.Flags().StringP("id", "i", "",
		"Show the stored report with this audit ID")
	cmd.Flags().Bool("latest", false,
		"Show the latest stored report of the target")
	cmd.Flags().Bool("duplicates", false,
		"With --id, list the stored duplicate pairs instead of the report")

	cmd.Flags().BoolP("json", "j", false,
		"Output report in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output report in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	target     string
	targets    bool
	auditID    string
	latest     bool
	duplicates bool
	dbDir      string
	cfg        *config.Config
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No audit history found.")
		fmt.Fprintln(out, "\nUse 'dupescan analyze' or 'dupescan crawl' to run an audit.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(commandContext(cmd), db, opts, out)
}

// parseHistoryFlags validates flag combinations before the database is opened.
func parseHistoryFlags(cmd *cobra.Command, args []string) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{cfg: config.NewConfig()}

	var err error
	if opts.targets, err = flags.GetBool("targets"); err != nil {
		return nil, err
	}
	if opts.auditID, err = flags.GetString("id"); err != nil {
		return nil, err
	}
	if opts.latest, err = flags.GetBool("latest"); err != nil {
		return nil, err
	}
	if opts.duplicates, err = flags.GetBool("duplicates"); err != nil {
		return nil, err
	}
	if opts.cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	if len(args) > 0 {
		opts.target = args[0]
	}

	switch {
	case opts.cfg.JSONReport && opts.cfg.MarkdownReport:
		return nil, config.ErrConflictingReportFormats
	case opts.latest && opts.target == "":
		return nil, errors.New("--latest requires a target")
	case opts.duplicates && opts.auditID == "":
		return nil, errors.New("--duplicates requires --id")
	case opts.latest && opts.auditID != "":
		return nil, errors.New("--latest and --id cannot be used together")
	}

	return opts, nil
}

// runHistory dispatches to the requested history view.
func runHistory(ctx context.Context, db *database.AuditDB, opts *historyOptions, out io.Writer) error {
	switch {
	case opts.targets:
		return listTargets(ctx, db, out)
	case opts.duplicates:
		return listDuplicateLinks(ctx, db, opts.auditID, out)
	case opts.auditID != "":
		r, err := db.GetReport(ctx, opts.auditID)
		if err != nil {
			return err
		}
		return outputReports(opts.cfg, out, []*model.AuditReport{r})
	case opts.latest:
		r, err := db.GetLatestReport(ctx, opts.target)
		if err != nil {
			return err
		}
		return outputReports(opts.cfg, out, []*model.AuditReport{r})
	default:
		return listAudits(ctx, db, opts.target, out)
	}
}

// listTargets lists every audited target.
func listTargets(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No audited targets found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Audited targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'dupescan history <target>' to see the audits of a target.")

	return nil
}

// listAudits lists stored audits, newest first.
func listAudits(ctx context.Context, db *database.AuditDB, target string, out io.Writer) error {
	metas, err := db.ListReports(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(metas) == 0 {
		if target != "" {
			fmt.Fprintf(out, "No audit history found for %s\n", target)
		} else {
			fmt.Fprintln(out, "No audit history found.")
		}
		return nil
	}

	if target != "" {
		fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", target, len(metas))
	} else {
		fmt.Fprintf(out, "Audit history (%d audits):\n\n", len(metas))
	}
	fmt.Fprintf(out, "  %-36s  %-19s  %5s  %-28s  %s\n", "ID", "Date", "Pages", "Duplicates", "Target")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))

	for _, meta := range metas {
		fmt.Fprintf(out, "  %-36s  %-19s  %5d  %-28s  %s\n",
			meta.AuditID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Pages,
			formatDuplicateSummary(meta.Summary),
			meta.Target,
		)
	}

	fmt.Fprintln(out, "\nUse 'dupescan history --id <id>' to show a stored report.")

	return nil
}

// formatDuplicateSummary condenses a summary into one short column.
func formatDuplicateSummary(summary *model.AuditSummary) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if summary.ExactDuplicatePages > 0 {
		parts = append(parts, fmt.Sprintf("exact:%d", summary.ExactDuplicatePages))
	}
	if summary.NearDuplicatePages > 0 {
		parts = append(parts, fmt.Sprintf("near:%d", summary.NearDuplicatePages))
	}
	if summary.PagesAnalyzed > 0 {
		parts = append(parts, fmt.Sprintf("mean:%.1f", summary.MeanOriginality))
	}

	if len(parts) == 0 {
		return "No duplicates"
	}
	return strings.Join(parts, " ")
}

// listDuplicateLinks lists the stored duplicate pairs of an audit.
func listDuplicateLinks(ctx context.Context, db *database.AuditDB, auditID string, out io.Writer) error {
	if _, err := db.GetReport(ctx, auditID); err != nil {
		return err
	}

	links, err := db.QueryDuplicateLinks(ctx, auditID, "")
	if err != nil {
		return err
	}

	if len(links) == 0 {
		fmt.Fprintf(out, "No duplicates stored for audit %s\n", auditID)
		return nil
	}

	fmt.Fprintf(out, "Duplicate pairs of audit %s (%d):\n\n", auditID, len(links))
	for _, link := range links {
		fmt.Fprintf(out, "  %-5s  %5.1f%%  %s -> %s\n",
			link.Classification, link.Similarity*100, link.FromURL, link.ToURL)
	}

	return nil
}
