package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forma3d/forma/cmd/forma/commands"
	"github.com/forma3d/forma/logger"
)

var rootCmd = &cobra.Command{
	Use:   "forma",
	Short: "forma - procedural geometry generation",
	Long: `forma drives a procedural rule engine: it feeds initial shapes and
rule attributes into the engine and collects generated geometry plus
computed reports.

Available commands:
  generate - Run a generation pass over a shapes document
  engine   - Inspect and initialize the rule engine module
  version  - Show version information

Examples:
  forma generate shapes.yaml --rule-package rules/extrusion.rpk
  forma generate shapes.yaml --encoder com.forma3d.codecs.OBJEncoder --output out
  forma engine info`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.InitializeAtLevel(jsonOutput, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.EngineCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
