package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"imageassembly/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the run directories without assembling anything",
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

			out := cmd.OutOrStdout()
			lines, failed := preflightLines(preflight.RunAll(cfg), shouldColorize(out))
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if failed > 0 {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	flags.registerPaths(cmd)
	return cmd
}

func preflightLines(results []preflight.Result, colorize bool) ([]string, int) {
	lines := renderSectionHeader("Preflight", colorize)
	failed := 0
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
			failed++
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines, failed
}
