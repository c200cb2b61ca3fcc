package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/spherical/recipe-extractor/internal/config"
	"github.com/spherical/recipe-extractor/internal/extract"
	"github.com/spherical/recipe-extractor/internal/llm"
	"github.com/spherical/recipe-extractor/internal/observability"
	"github.com/spherical/recipe-extractor/internal/pdf"
	"github.com/spherical/recipe-extractor/internal/pipeline"
)

var (
	cfgFile       string
	modelOverride string
	maxStage      int
	skipRegions   bool
	verbose       bool
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "recipe-extractor <directory>",
	Short: "Extract recipe records from scanned recipe-card PDFs",
	Long: `recipe-extractor finds unprocessed recipe-card PDFs in a directory,
rasterizes them, runs a multi-stage vision-model pipeline (title and
metadata, region detection and cropping, instruction and ingredient
extraction) and writes one JSON recipe record per document alongside the
renamed source assets.`,
	Args:         cobra.ExactArgs(1),
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "override the default vision model")
	rootCmd.Flags().IntVar(&maxStage, "max-stage", config.StageCount, "halt the pipeline after this stage (below 5 writes no records)")
	rootCmd.Flags().BoolVar(&skipRegions, "skip-regions", false, "skip region detection; extract from full page images")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	dir := args[0]

	_ = godotenv.Load() // optional .env

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = modelOverride
	}
	if cmd.Flags().Changed("max-stage") {
		cfg.MaxStage = maxStage
	}
	if cmd.Flags().Changed("skip-regions") {
		cfg.SkipRegionDetection = skipRegions
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if noColor {
		color.NoColor = true
	}

	log := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "recipe-extractor",
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := llm.NewClient()
	if err := client.Ping(ctx, cfg.Stage(1)); err != nil {
		return err
	}

	pipe := pipeline.New(cfg, client, log)
	service := extract.NewService(pdf.NewConverter(), pipe, log)

	var bar *progressbar.ProgressBar
	batch := &extract.Batch{
		Service: service,
		Log:     log,
		OnDocument: func(index, total int, path string) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			if index > 0 {
				_ = bar.Add(1)
			}
			bar.Describe(filepath.Base(path))
		},
	}

	summary, err := batch.Run(ctx, dir)
	if bar != nil {
		_ = bar.Add(1)
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	printSummary(summary, cfg)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Total())
	}
	return nil
}

func printSummary(summary extract.Summary, cfg *config.Config) {
	color.New(color.Bold).Println("Batch summary")
	color.Green("  succeeded: %d", summary.Succeeded)
	if summary.Failed > 0 {
		color.Red("  failed:    %d", summary.Failed)
	} else {
		fmt.Println("  failed:    0")
	}
	if summary.Halted > 0 {
		color.Yellow("  halted:    %d (max_stage=%d, no records written)", summary.Halted, cfg.MaxStage)
	}
	fmt.Printf("  total:     %d\n", summary.Total())
}
