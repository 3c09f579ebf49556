package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/frameprof/profiler"
)

func newSchemaCmd() *cobra.Command {
	var (
		output string
		indent int
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the profiler configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return writeSchema(output, indent)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-",
		`output file, or "-" for stdout`)
	cmd.Flags().IntVar(&indent, "indent", 2,
		"number of spaces per indentation level")

	return cmd
}

func writeSchema(output string, indent int) error {
	if indent < 0 {
		indent = 0
	}

	out, err := json.MarshalIndent(profiler.Schema(), "", strings.Repeat(" ", indent))
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	out = append(out, '\n')

	if output == "" || output == "-" {
		_, err = os.Stdout.Write(out)
		if err != nil {
			return fmt.Errorf("writing schema: %w", err)
		}

		return nil
	}

	err = os.WriteFile(output, out, 0o644) //nolint:gosec // Schema output is not sensitive.
	if err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}

	return nil
}
