package cli

// This file contains the profile command, which converts method
// entry/exit events into a pprof profile.

import (
	"fmt"
	"os"

	"github.com/apexlog/apexlog/apexlog"
	"github.com/urfave/cli/v2"
)

func (a *App) profile(ctx *cli.Context) error {
	raw, err := a.readLogInput(ctx)
	if err != nil {
		return err
	}

	prof := apexlog.BuildMethodProfile(a.logger, raw)
	if len(prof.Sample) == 0 {
		a.logger.Warn().Msg("No method entry/exit pairs found in log")
	}

	outputPath := ctx.String("output")
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create profile output: %w", err)
	}
	defer f.Close()

	if err := prof.Write(f); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	a.logger.Info().Str("path", outputPath).Int("samples", len(prof.Sample)).Msg("Wrote method profile")
	return nil
}
