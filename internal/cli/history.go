package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/numerus/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string // build history database
	Source   string // only builds of this source file
	Limit    int    // newest N builds
}

// HistoryEntry is one recorded build as shown to the user.
type HistoryEntry struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	PrintResults bool   `json:"print_results"`
	Output       string `json:"output,omitempty"`
	ProgramHash  string `json:"program_hash"`
	CacheKey     string `json:"cache_key"`
	Compiler     string `json:"compiler_version"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds",
		Long: `List the builds recorded by "numerus build --db", oldest first.

The database comes from --db, or from the database setting of the
config file.

Examples:
  numerus history --db builds.db
  numerus history --db builds.db --source prog.num --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the build history database")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only show builds of this source file")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show the newest N builds (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions, f)
	if err != nil {
		return err
	}
	dbPath := cfg.Database
	if opts.Database != "" {
		dbPath = opts.Database
	}
	if dbPath == "" {
		return f.Fail(ExitCommandError, ErrCodeStore, "no database: pass --db or set database in the config file", nil, nil)
	}

	// Opening creates a missing database; history must not.
	if _, err := os.Stat(dbPath); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil, err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	builds, err := st.ListBuilds(ctx, store.ListOptions{SourcePath: opts.Source, Limit: opts.Limit})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}

	entries := make([]HistoryEntry, len(builds))
	for i, b := range builds {
		entries[i] = HistoryEntry{
			ID:           b.ID,
			Seq:          b.Seq,
			Source:       b.SourcePath,
			Target:       b.Target,
			PrintResults: b.PrintResults,
			Output:       b.Output,
			ProgramHash:  b.ProgramHash,
			CacheKey:     b.CacheKey,
			Compiler:     b.CompilerVersion,
		}
	}

	if opts.Format == "json" {
		return f.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}
	for _, e := range entries {
		output := e.Output
		if output == "" {
			output = "(ir)"
		}
		fmt.Fprintf(w, "%4d  %s  %-11s  %s -> %s  %s\n", e.Seq, e.ID, e.Target, e.Source, output, shortHash(e.ProgramHash))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
