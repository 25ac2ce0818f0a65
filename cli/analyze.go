package cli

// This file contains the analyze command, which runs the full-log
// analyzer and renders the result to stdout.

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apexlog/apexlog/apexlog"
	"github.com/urfave/cli/v2"
)

func (a *App) analyze(ctx *cli.Context) error {
	raw, err := a.readLogInput(ctx)
	if err != nil {
		return err
	}

	analysis := apexlog.New(a.logger).Analyze(raw)

	if ctx.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			return fmt.Errorf("failed to encode analysis: %w", err)
		}
		return nil
	}

	renderAnalysis(os.Stdout, analysis)
	return nil
}
