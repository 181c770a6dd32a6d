package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/nvandessel/artcheck/internal/config"
	"github.com/nvandessel/artcheck/internal/constants"
	"github.com/nvandessel/artcheck/internal/continuum"
	"github.com/nvandessel/artcheck/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved runs",
		Long: `Inspect runs saved by 'artcheck run'.

By default the database in the configured output directory is used;
--global selects ~/.artcheck/artcheck.db.

Examples:
  artcheck history list --limit 20
  artcheck history show <run-id>
  artcheck history delete <run-id>
  artcheck history prune --keep 10 --older-than 30d`,
	}

	cmd.PersistentFlags().Bool("global", false, "Use the global history database")
	cmd.PersistentFlags().String("dir", "", "Directory holding artcheck.db (overrides config)")

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryDeleteCmd(),
		newHistoryPruneCmd(),
	)
	return cmd
}

// openHistory opens the history database selected by flags and config.
func openHistory(cmd *cobra.Command) (*store.SQLiteResultStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	dir, err := historyDir(cmd, cfg)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteResultStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return s, nil
}

func historyDir(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir, nil
	}
	global, _ := cmd.Flags().GetBool("global")
	if global || constants.Scope(cfg.Output.HistoryScope) == constants.ScopeGlobal {
		return store.GlobalDir()
	}
	return cfg.Output.Dir, nil
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			batchID, _ := cmd.Flags().GetString("batch")

			s, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), store.ListOptions{BatchID: batchID, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tMODE\tCATEGORY\tFILE\tSTATUS")
			for _, r := range runs {
				status := "ok"
				if r.Error != "" {
					status = "error"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Mode, r.Category, r.File, status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum number of runs to list (0 for all)")
	cmd.Flags().String("batch", "", "Only list runs of this batch")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}
			if run == nil {
				return fmt.Errorf("run not found: %s", args[0])
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(run)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Batch:     %s\n", run.BatchID)
			fmt.Fprintf(out, "File:      %s\n", run.File)
			fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Mode:      %s (%s, %s)\n", run.Mode, run.Category, run.QueryMode)
			fmt.Fprintf(out, "Anchor:    month %d = %d\n", run.Anchor.Month, run.Anchor.Year)
			fmt.Fprintf(out, "Tolerance: ±%.0f%%\n", run.Tolerance*100)
			if run.Error != "" {
				fmt.Fprintf(out, "Error:     %s\n", run.Error)
				return nil
			}
			if len(run.Truncated) > 0 {
				fmt.Fprintf(out, "Truncated: %v\n", run.Truncated)
			}
			if len(run.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped:   %v\n", run.Skipped)
			}
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tIN CARE\tSUPPRESSED VL\tWITHIN 30 DAYS")
			for _, y := range run.Years {
				fmt.Fprintf(tw, "%d", y.Year)
				for _, r := range continuum.Ratios {
					c := y.Check(r)
					fmt.Fprintf(tw, "\t%s %s", continuum.ReduceDigits(c.Value), c.Verdict)
				}
				fmt.Fprintln(tw)
			}
			return tw.Flush()
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete one saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old batches from the history",
		Long: `Delete whole batches from the history database.

A batch is kept if any policy keeps it: it is among the --keep most
recent batches, or it is newer than --older-than.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			keep, _ := cmd.Flags().GetInt("keep")
			olderThan, _ := cmd.Flags().GetString("older-than")

			var policies []store.RetentionPolicy
			if cmd.Flags().Changed("keep") {
				if keep < 0 {
					return fmt.Errorf("--keep must be non-negative, got %d", keep)
				}
				policies = append(policies, &store.CountPolicy{MaxCount: keep})
			}
			if olderThan != "" {
				age, err := store.ParseDuration(olderThan)
				if err != nil {
					return fmt.Errorf("invalid --older-than: %w", err)
				}
				policies = append(policies, &store.AgePolicy{MaxAge: age})
			}
			if len(policies) == 0 {
				return fmt.Errorf("specify --keep and/or --older-than")
			}

			s, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			deleted, err := s.Prune(cmd.Context(), &store.CompositePolicy{Policies: policies})
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"deleted": deleted,
					"count":   len(deleted),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d batches\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().Int("keep", 0, "Keep the N most recent batches")
	cmd.Flags().String("older-than", "", "Delete batches older than this (e.g. 30d, 2w, 720h)")
	return cmd
}
