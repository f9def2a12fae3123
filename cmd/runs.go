package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/uistate/api/schemas"
	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/observability"
	"github.com/xkilldash9x/uistate/internal/store"
)

func newRunsCmd() *cobra.Command {
	var limit int

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent task runs",
		Long:  `Lists the most recent task runs recorded in PostgreSQL. Requires postgres.url (or DATABASE_URL).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Get()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("no database configured (hint: set DATABASE_URL)")
			}

			pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			storeService, err := store.New(ctx, pool, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to initialize store service: %w", err)
			}

			runs, err := storeService.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs)
		},
	}

	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return runsCmd
}

func writeRuns(out io.Writer, runs []schemas.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tAPP\tTASK NAME\tSTATUS\tSTATES\tDURATION\tTASK")
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.App, r.TaskName, status, r.CapturedStates,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second), r.Task)
	}
	return w.Flush()
}
