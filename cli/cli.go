package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "apexlog"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Analyze Apex execution logs and extract test method sections",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "analyze",
		Usage:     "Analyze an execution log and print a structured report",
		ArgsUsage: "[LOGFILE]",
		Action:    app.analyze,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the analysis as JSON instead of a text report",
			},
		},
		Description: `Analyze an execution log and print a structured report.

Reads the log from LOGFILE, or from stdin when LOGFILE is omitted
or given as "-".

Examples:
  apexlog analyze apex.log
  cat apex.log | apexlog analyze --json`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "extract",
		Usage:     "Extract the log section belonging to one test method",
		ArgsUsage: "[LOGFILE]",
		Action:    app.extract,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "class",
				Aliases:  []string{"c"},
				Usage:    "Apex class name containing the test method",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "method",
				Aliases:  []string{"m"},
				Usage:    "Test method name to extract",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "setup",
				Aliases: []string{"s"},
				Usage:   "Optional test setup method name to extract as well",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "profile",
		Usage:     "Build a pprof profile from method entry/exit events",
		ArgsUsage: "[LOGFILE]",
		Action:    app.profile,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path for the gzipped protobuf profile",
				Value:   "profile.pb.gz",
			},
		},
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// readLogInput returns the raw log text from the first positional
// argument, or from stdin when no file is given or the argument is "-".
func (a *App) readLogInput(ctx *cli.Context) (string, error) {
	path := ctx.Args().First()
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read log from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}
	a.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Read log file")
	return string(data), nil
}
