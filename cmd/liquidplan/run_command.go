package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"liquidplan/internal/liquid"
	"liquidplan/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var noWait bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the configured protocol with operator pauses and a command journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			var waiter liquid.Waiter
			if noWait {
				waiter = &liquid.RecordingWaiter{}
			} else {
				waiter = liquid.NewConsoleWaiter(os.Stdin, cmd.ErrOrStderr(), logger)
			}
			opts := []workflow.ManagerOption{workflow.WithWaiter(waiter)}
			if skipPreflight {
				opts = append(opts, workflow.WithoutPreflight())
			}

			report, runErr := workflow.NewManager(cfg, logger, opts...).Execute(cmd.Context())
			if report == nil {
				return runErr
			}
			if err := ctx.emit(cmd, report, func() string {
				var b strings.Builder
				if report.Result != nil {
					b.WriteString(renderResult(report.Result, false))
				}
				b.WriteString(renderTable("Artifacts", []string{"Artifact", "Path"}, [][]string{
					{"Run", report.RunID},
					{"Command journal", report.JournalPath},
					{"Execution log", report.TimeLogPath},
					{"Run log", report.LogPath},
				}, nil))
				return b.String()
			}); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run %s: %w", report.RunID, runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Record delays and operator pauses instead of blocking on them")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without running preflight checks")
	return cmd
}
