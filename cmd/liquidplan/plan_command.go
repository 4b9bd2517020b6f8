package main

import (
	"github.com/spf13/cobra"

	"liquidplan/internal/protocol"
	"liquidplan/internal/workflow"
)

type planOutput struct {
	Volumes []string         `json:"volumes" yaml:"volumes"`
	Result  *protocol.Result `json:"result" yaml:"result"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var showAspirations bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Simulate the configured protocol and print reagent and tip usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			result, err := workflow.NewManager(cfg, logger).Plan(cmd.Context())
			if err != nil {
				return err
			}
			out := planOutput{Volumes: protocol.VolumeReport(result.Reagents), Result: result}
			if !showAspirations {
				result.Aspirations = nil
			}
			return ctx.emit(cmd, out, func() string {
				return renderVolumes(out.Volumes) + renderResult(result, showAspirations)
			})
		},
	}

	cmd.Flags().BoolVarP(&showAspirations, "aspirations", "a", false, "List every reservoir aspiration with its height and channel")
	return cmd
}

func renderVolumes(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, []string{line})
	}
	return renderTable("Reservoir", []string{"Volumes"}, rows, nil)
}
