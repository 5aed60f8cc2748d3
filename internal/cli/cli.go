package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"locale-patcher/internal/config"
	"locale-patcher/internal/journal"
	"locale-patcher/internal/locator"
	"locale-patcher/internal/patch"
	"locale-patcher/internal/table"
	"locale-patcher/internal/textutil"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// options holds the flags shared by every command. Flags left unset fall
// back to the environment loaded by config.Load.
type options struct {
	cfg *config.Config

	tablePath    string
	root         string
	pathTemplate string
	anchor       string
	locales      []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "locale-patcher",
		Short:         "Re-insert managed translation keys after an anchor field",
		Long:          "Removes previously inserted key-value entries from per-locale translation modules and splices a corrected single-line block back in after the anchor field.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			return setLogLevel(opts.cfg.LogLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.tablePath, "table", "", "Locale table file (.toml, .yaml, .json); default is the embedded table")
	flags.StringVar(&opts.root, "root", "", "Directory relative path templates are resolved against")
	flags.StringVar(&opts.pathTemplate, "path-template", "", "Target file template containing "+locator.Placeholder)
	flags.StringVar(&opts.anchor, "anchor", "", "Anchor field name")
	flags.StringSliceVar(&opts.locales, "locale", nil, "Restrict the run to these locales")

	rootCmd.AddCommand(patchCmd(opts))
	rootCmd.AddCommand(checkCmd(opts))
	rootCmd.AddCommand(tableCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))

	return rootCmd
}

func patchCmd(opts *options) *cobra.Command {
	var (
		dryRun, backup, atomic, strict, useJournal bool
	)

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Patch every locale file of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wo := patch.WriteOptions{
				Backup: backup || opts.cfg.Backup,
				Atomic: atomic || opts.cfg.AtomicWrite,
			}
			return runPatch(cmd, opts, patch.Options{WriteOptions: wo, DryRun: dryRun}, strict, useJournal)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the diff instead of writing files")
	cmd.Flags().BoolVar(&backup, "backup", false, "Keep a .bak copy of every rewritten file")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "Write through a temp file and rename")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any locale fails")
	cmd.Flags().BoolVar(&useJournal, "journal", false, "Record results in the PostgreSQL journal (DATABASE_URL)")

	return cmd
}

func checkCmd(opts *options) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report anchor and managed field state of every locale file without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = opts.cfg.WorkerCount
			}
			return runCheck(cmd, opts, workers)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "Files read concurrently")
	return cmd
}

func tableCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the resolved locale table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, loc, err := opts.resolve()
			if err != nil {
				return err
			}
			printTable(cmd, tbl, loc)
			return nil
		},
	}
}

func historyCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [locale]",
		Short: "Show recent journal entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locale := ""
			if len(args) == 1 {
				locale = args[0]
			}
			return runHistory(cmd, opts, locale, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	return cmd
}

// resolve builds the locale table and locator from flags and environment.
func (o *options) resolve() (*table.Table, *locator.Locator, error) {
	tablePath := firstNonEmpty(o.tablePath, o.cfg.TablePath)

	var (
		tbl *table.Table
		err error
	)
	if tablePath == "" {
		tbl, err = table.Default()
	} else {
		tbl, err = table.Load(tablePath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load locale table: %w", err)
	}

	if anchor := firstNonEmpty(o.anchor, o.cfg.Anchor); anchor != "" && anchor != tbl.Anchor() {
		if tbl, err = tbl.WithAnchor(anchor); err != nil {
			return nil, nil, fmt.Errorf("apply anchor: %w", err)
		}
	}

	if tbl, err = tbl.Select(o.locales); err != nil {
		return nil, nil, fmt.Errorf("select locales: %w", err)
	}

	loc, err := locator.New(firstNonEmpty(o.root, o.cfg.Root), firstNonEmpty(o.pathTemplate, o.cfg.PathTemplate))
	if err != nil {
		return nil, nil, fmt.Errorf("path template: %w", err)
	}

	return tbl, loc, nil
}

// runPatch handles the `patch` command.
func runPatch(cmd *cobra.Command, opts *options, patchOpts patch.Options, strict, useJournal bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	tbl, loc, err := opts.resolve()
	if err != nil {
		return err
	}

	var rec patch.Recorder
	if useJournal {
		if opts.cfg.DatabaseURL == "" {
			return fmt.Errorf("journal requested but DATABASE_URL is not set")
		}
		j, err := journal.Open(ctx, opts.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	log.Info().
		Int("locales", len(tbl.Locales())).
		Str("anchor", tbl.Anchor()).
		Str("template", loc.Template()).
		Bool("dry_run", patchOpts.DryRun).
		Msg("Starting patch run")

	p := patch.NewPatcher(tbl, loc, patchOpts, rec)
	summary, runErr := p.Run(ctx)

	if patchOpts.DryRun {
		out := cmd.OutOrStdout()
		for _, r := range summary.Results {
			if r.Diff != "" {
				fmt.Fprint(out, r.Diff)
			}
		}
	}

	log.Info().
		Int("patched", summary.Patched).
		Int("unchanged", summary.Unchanged).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Str("written", humanize.Bytes(uint64(summary.Bytes))).
		Msg("All locales processed")

	if runErr != nil && (strict || ctx.Err() != nil) {
		return fmt.Errorf("patch run: %w", runErr)
	}
	return nil
}

// runCheck handles the `check` command.
func runCheck(cmd *cobra.Command, opts *options, workers int) error {
	ctx, cancel := setupContext()
	defer cancel()

	tbl, loc, err := opts.resolve()
	if err != nil {
		return err
	}

	p := patch.NewPatcher(tbl, loc, patch.Options{DryRun: true}, nil)
	reports := p.Audit(ctx, workers)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCALE\tANCHORS\tMANAGED\tSTATE\tPATH")

	problems := 0
	for _, r := range reports {
		entry, _ := tbl.Lookup(r.Locale)
		fields := make([]string, 0, len(entry.Fields))
		for _, f := range entry.Fields {
			fields = append(fields, f.Name)
		}

		state := "ok"
		switch {
		case r.Err != nil:
			state = "error"
			log.Error().Err(r.Err).Str("locale", r.Locale).Msg("Locale check failed")
		case r.Pending:
			state = "pending"
		case !r.Healthy(fields):
			state = "duplicates"
		}
		if state != "ok" {
			problems++
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", r.Locale, r.Anchors, managedSummary(r, fields), state, r.Path)
	}
	w.Flush()

	if problems > 0 {
		return fmt.Errorf("%d of %d locales need attention", problems, len(reports))
	}
	log.Info().Int("locales", len(reports)).Msg("All locales up to date")
	return nil
}

// runHistory handles the `history` command.
func runHistory(cmd *cobra.Command, opts *options, locale string, limit int) error {
	ctx, cancel := setupContext()
	defer cancel()

	if opts.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	j, err := journal.Open(ctx, opts.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.History(ctx, locale, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tLOCALE\tSTATUS\tREMOVED\tRUN\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			humanize.Time(e.RecordedAt), e.Locale, e.Status, e.Removed, e.RunID.String()[:8], textutil.Truncate(e.Error, 60))
	}
	return w.Flush()
}

func printTable(cmd *cobra.Command, tbl *table.Table, loc *locator.Locator) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "anchor:  %s\n", tbl.Anchor())
	fmt.Fprintf(out, "managed: %s\n\n", strings.Join(tbl.Managed(), ", "))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCALE\tFIELDS\tPATH\tREPLACEMENT")
	for _, e := range tbl.Entries() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Locale, len(e.Fields), loc.Path(e.Locale), textutil.Truncate(e.Replacement, 40))
	}
	w.Flush()
}

// managedSummary renders the count of each inserted field as name=count,
// only listing fields whose count is not exactly one.
func managedSummary(r *patch.Report, fields []string) string {
	var odd []string
	for _, f := range fields {
		if n := r.Managed[f]; n != 1 {
			odd = append(odd, fmt.Sprintf("%s=%d", f, n))
		}
	}
	if len(odd) == 0 {
		return fmt.Sprintf("%d/%d", len(fields), len(fields))
	}
	return strings.Join(odd, ",")
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func setLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
