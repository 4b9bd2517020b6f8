package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// emit prints v in the format selected by --json/--yaml, or calls text for
// the default table view.
func (c *commandContext) emit(cmd *cobra.Command, v any, text func() string) error {
	switch {
	case c.flags.json:
		return writeJSON(cmd, v)
	case c.flags.yaml:
		return writeYAML(cmd, v)
	default:
		fmt.Fprint(cmd.OutOrStdout(), text())
		return nil
	}
}
