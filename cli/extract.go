package cli

// This file contains the extract command, which isolates the log lines
// belonging to one test method and its optional setup method.

import (
	"fmt"

	"github.com/apexlog/apexlog/apexlog"
	"github.com/urfave/cli/v2"
)

func (a *App) extract(ctx *cli.Context) error {
	raw, err := a.readLogInput(ctx)
	if err != nil {
		return err
	}

	section := apexlog.ExtractMethodSection(
		raw,
		ctx.String("class"),
		ctx.String("method"),
		ctx.String("setup"),
	)

	fmt.Println(section)
	return nil
}
