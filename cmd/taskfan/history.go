package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskfan/taskfan/internal/config"
	"github.com/taskfan/taskfan/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [task-id]",
		Short: "List archived task reports, or show one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := cmd.Context()
			store, err := history.Open(ctx, historyPath(cfg))
			if err != nil {
				return fmt.Errorf("failed to open history archive: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showReport(ctx, store, args[0])
			}
			return listReports(ctx, store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max entries to list")

	return cmd
}

func listReports(ctx context.Context, store *history.Store, limit int) error {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No archived reports.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK ID\tNAME\tSTATUS\tPROGRESS\tTIME\tARCHIVED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%.0fms\t%s\n",
			e.TaskID, e.Name, e.Status, e.Progress*100, e.ExecutionTime,
			e.ArchivedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showReport(ctx context.Context, store *history.Store, taskID string) error {
	report, err := store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
