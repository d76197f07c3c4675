package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/forma3d/forma/config"
	"github.com/forma3d/forma/engine"
	"github.com/forma3d/forma/engine/wasm"
	"github.com/forma3d/forma/errors"
	"github.com/forma3d/forma/generator"
	"github.com/forma3d/forma/logger"
	"github.com/forma3d/forma/shapefile"
)

// GenerateCmd runs one generation pass over a shapes document.
var GenerateCmd = &cobra.Command{
	Use:   "generate <shapes.yaml>",
	Short: "Run a generation pass over a shapes document",
	Long: `Reads a shapes document, feeds its initial shapes and attribute sets
into the rule engine and prints the generated models as JSON. With a
file-based encoder the models are written into the output directory
instead.

Flags override the corresponding document fields; document fields
override configuration defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().String("rule-package", "", "Rule package to resolve (overrides the document)")
	GenerateCmd.Flags().String("encoder", "", "Encoder identifier (overrides the document)")
	GenerateCmd.Flags().String("output", "", "Output directory for file-based encoders")
	GenerateCmd.Flags().Bool("keep-untouched", false, "Emit geometry-less models for shapes the engine never reported against")
	GenerateCmd.Flags().Bool("watch", false, "Re-run generation whenever the rule package changes")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	doc, err := shapefile.Load(args[0])
	if err != nil {
		return err
	}

	rulePackage, _ := cmd.Flags().GetString("rule-package")
	if rulePackage == "" {
		rulePackage = doc.RulePackage
	}
	encoderID, _ := cmd.Flags().GetString("encoder")
	if encoderID == "" {
		encoderID = doc.Encoder
	}
	if encoderID == "" {
		encoderID = cfg.Generate.Encoder
	}

	encoderOptions := doc.EncoderOptions
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if encoderOptions == nil {
			encoderOptions = make(map[string]any)
		}
		encoderOptions[engine.OptOutputPath] = output
	}
	if encoderID != engine.EncoderInMemory && encoderOptions[engine.OptOutputPath] == nil && cfg.Generate.OutputPath != "" {
		if encoderOptions == nil {
			encoderOptions = make(map[string]any)
		}
		encoderOptions[engine.OptOutputPath] = cfg.Generate.OutputPath
	}

	if err := wasm.Initialize(ctx, cfg.Engine.ModulePath); err != nil {
		return err
	}
	defer wasm.Shutdown(context.Background())

	rt, err := wasm.Default()
	if err != nil {
		return err
	}

	gen := generator.New(rt, doc.InitialShapes(), logger.Logger)
	if keep, _ := cmd.Flags().GetBool("keep-untouched"); keep || cfg.Generate.KeepUntouched {
		gen.KeepUntouched = true
	}
	if !gen.Valid() {
		return errors.WithHint(errors.ErrInvalidGenerator,
			"check the shape geometry and file paths in the shapes document")
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	run := func(rpk string) error {
		models, err := gen.Generate(ctx, doc.AttributeSets(), rpk, encoderID, encoderOptions)
		if err != nil {
			return err
		}
		return printModels(models, encoderID, encoderOptions, jsonOutput)
	}

	if err := run(rulePackage); err != nil {
		return err
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		if rulePackage == "" {
			return errors.New("--watch requires a rule package")
		}
		return watchRulePackage(ctx, rulePackage, run)
	}
	return nil
}

func printModels(models []generator.GeneratedModel, encoderID string, encoderOptions map[string]any, jsonOutput bool) error {
	if encoderID != engine.EncoderInMemory {
		outputPath, _ := encoderOptions[engine.OptOutputPath].(string)
		pterm.Success.Printf("Encoded output written to %s\n", outputPath)
		return nil
	}

	if jsonOutput {
		out := make([]modelJSON, 0, len(models))
		for _, m := range models {
			out = append(out, newModelJSON(m))
		}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	pterm.Success.Printf("Generated %d model(s)\n", len(models))
	for _, m := range models {
		pterm.Printf("  %s shape %d: %d vertices, %d faces, %d report entries\n",
			pterm.Gray("→"),
			m.InitialShapeIndex(),
			len(m.Vertices())/3,
			len(m.FaceCounts()),
			len(m.Report()))
	}
	return nil
}

// modelJSON is the CLI's JSON shape for one generated model.
type modelJSON struct {
	InitialShapeIndex int            `json:"initialShapeIndex"`
	Vertices          []float64      `json:"vertices"`
	Indices           []uint32       `json:"indices"`
	FaceCounts        []uint32       `json:"faceCounts"`
	Report            map[string]any `json:"report"`
}

func newModelJSON(m generator.GeneratedModel) modelJSON {
	report := make(map[string]any, len(m.Report()))
	for k, v := range m.Report() {
		report[k] = v.Interface()
	}
	return modelJSON{
		InitialShapeIndex: m.InitialShapeIndex(),
		Vertices:          m.Vertices(),
		Indices:           m.Indices(),
		FaceCounts:        m.FaceCounts(),
		Report:            report,
	}
}

// watchRulePackage re-runs generation (with the already-resolved state as
// fallback) whenever the rule package file changes, until interrupted.
// Rapid successive writes are debounced.
func watchRulePackage(ctx context.Context, rulePackage string, run func(rpk string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(rulePackage); err != nil {
		return errors.Wrapf(err, "watch rule package %s", rulePackage)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printf("Watching %s, press Ctrl-C to stop\n", rulePackage)

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			logger.Infow("rule package changed, regenerating", "path", rulePackage)
			if err := run(rulePackage); err != nil {
				// Keep watching: a broken intermediate save should not end
				// the session.
				pterm.Warning.Printf("Regeneration failed: %v\n", err)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watcher error", "error", werr)
		}
	}
}
