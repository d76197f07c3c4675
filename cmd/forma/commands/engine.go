package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forma3d/forma/config"
	"github.com/forma3d/forma/engine/wasm"
)

// EngineCmd groups rule engine lifecycle commands.
var EngineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Inspect and initialize the rule engine module",
}

var engineInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured engine module and its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		pterm.Printf("Engine module: %s\n", pterm.LightCyan(cfg.Engine.ModulePath))
		if wasm.IsInitialized() {
			pterm.Success.Println("Engine initialized")
		} else {
			pterm.Info.Println("Engine not initialized")
		}
		return nil
	},
}

var engineCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the engine module and verify it initializes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if err := wasm.Initialize(cmd.Context(), cfg.Engine.ModulePath); err != nil {
			pterm.Error.Printf("Engine failed to initialize: %v\n", err)
			return err
		}
		defer wasm.Shutdown(cmd.Context())

		pterm.Success.Printf("Engine module loaded: %s\n", cfg.Engine.ModulePath)
		return nil
	},
}

func init() {
	EngineCmd.AddCommand(engineInfoCmd)
	EngineCmd.AddCommand(engineCheckCmd)
}
