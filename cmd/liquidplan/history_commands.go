package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"liquidplan/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded protocol runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if runs == nil {
					runs = []history.Run{}
				}
				return ctx.emit(cmd, runs, func() string {
					if len(runs) == 0 {
						return "No runs recorded\n"
					}
					return renderTable("", []string{"ID", "Protocol", "Samples", "Status", "Started", "Duration", "Tips"},
						buildHistoryRows(runs),
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight})
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 lists all)")
	return cmd
}

func buildHistoryRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Protocol,
			strconv.Itoa(run.NumSamples),
			string(run.Status),
			run.StartedAt.Local().Format(time.DateTime),
			formatDuration(run.Duration()),
			strconv.Itoa(run.TipsUsed),
		})
	}
	return rows
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its step log (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, history.ErrRunNotFound) {
						return fmt.Errorf("no run matches %q", args[0])
					}
					return err
				}
				return ctx.emit(cmd, run, func() string {
					return renderRun(run)
				})
			})
		},
	}
}

func renderRun(run *history.Run) string {
	fields := [][]string{
		{"ID", run.ID},
		{"Protocol", run.Protocol},
		{"Kind", run.Kind},
		{"Samples", strconv.Itoa(run.NumSamples)},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
		{"Duration", formatDuration(run.Duration())},
		{"Tips used", strconv.Itoa(run.TipsUsed)},
		{"Tip refills", strconv.Itoa(run.TipRefills)},
	}
	if run.ErrorMessage != "" {
		fields = append(fields, []string{"Error", fmt.Sprintf("%s: %s", run.ErrorKind, run.ErrorMessage)})
	}
	if run.LogPath != "" {
		fields = append(fields, []string{"Log", run.LogPath})
	}
	out := renderTable("Run", []string{"Field", "Value"}, fields, nil)

	if len(run.Steps) > 0 {
		rows := make([][]string, 0, len(run.Steps))
		for _, step := range run.Steps {
			rows = append(rows, []string{
				strconv.Itoa(step.Number),
				step.Description,
				yesNo(step.Executed),
				strconv.Itoa(step.WaitSeconds),
				formatDuration(step.Duration),
			})
		}
		out += renderTable("Steps", []string{"Step", "Description", "Executed", "Wait (s)", "Duration"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight})
	}
	return out
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d runs\n", removed)
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
