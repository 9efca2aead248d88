package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imageassembly/internal/assembly"
	"imageassembly/internal/config"
	"imageassembly/internal/logging"
	"imageassembly/internal/preflight"
)

// runFlags override configuration values for a single invocation.
type runFlags struct {
	tilesDir     string
	stitchingDir string
	outputDir    string
	logDir       string
	tileSize     int
	compression  string
	bigtiff      string
	workers      int
	logLevel     string
}

func (f *runFlags) registerPaths(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tilesDir, "tiles", "", "Directory holding the acquired source tiles")
	cmd.Flags().StringVar(&f.stitchingDir, "stitching", "", "Directory holding one stitching vector per time point")
	cmd.Flags().StringVar(&f.outputDir, "output", "", "Directory that receives the assembled images")
}

func (f *runFlags) registerAssembly(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "Mirror logs as JSON into this directory")
	cmd.Flags().IntVar(&f.tileSize, "tile-size", 0, "Output tile edge in pixels (multiple of 16)")
	cmd.Flags().StringVar(&f.compression, "compression", "", "Tile codec: none, deflate or zstd")
	cmd.Flags().StringVar(&f.bigtiff, "bigtiff", "", "BigTIFF mode: auto, always or never")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Time points assembled concurrently")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// apply copies the flags the user set onto cfg and re-validates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("tiles") {
		cfg.Paths.TilesDir = f.tilesDir
	}
	if changed("stitching") {
		cfg.Paths.StitchingDir = f.stitchingDir
	}
	if changed("output") {
		cfg.Paths.OutputDir = f.outputDir
	}
	if changed("log-dir") {
		cfg.Paths.LogDir = f.logDir
	}
	if changed("tile-size") {
		cfg.Assembly.TileSize = f.tileSize
	}
	if changed("compression") {
		cfg.Assembly.Compression = f.compression
	}
	if changed("bigtiff") {
		cfg.Assembly.BigTIFF = f.bigtiff
	}
	if changed("workers") {
		cfg.Assembly.Workers = f.workers
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	// Normalize applies the environment level; an explicit flag wins over it.
	if changed("log-level") {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(f.logLevel))
	}
	return cfg.Validate()
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Assemble every discovered time point",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.ValidateRunPaths(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := !jsonOutput && shouldColorize(out)
			results := preflight.RunAll(cfg)
			if failed := preflight.Failed(results); len(failed) > 0 {
				lines, _ := preflightLines(results, colorize)
				for _, line := range lines {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
				return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			opts, err := assembly.OptionsFromConfig(cfg, softwareName)
			if err != nil {
				return err
			}

			report, runErr := assembly.New(opts, logger).Run(cmd.Context())
			if errors.Is(runErr, assembly.ErrOutputLocked) || errors.Is(runErr, assembly.ErrDiscovery) {
				return runErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, newReportJSON(report)); err != nil {
					return err
				}
			} else {
				fmt.Fprint(out, renderReport(report, colorize))
			}
			if runErr != nil && errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("run interrupted after %d of %d time points: %w", report.Assembled, len(report.Results), runErr)
			}
			return runErr
		},
	}

	flags.registerPaths(cmd)
	flags.registerAssembly(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}
