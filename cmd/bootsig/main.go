package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	flagLogLevel  = "loglevel"
	flagLogFormat = "log-format"

	logFormatJSON    = "json"
	logFormatDefault = "default"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bootsig",
		Usage: "Verify secure boot RSA signatures with fixed-width Montgomery arithmetic",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "info",
				Usage:   "Application logging level {debug, info, warn, error}",
				EnvVars: []string{"BOOTSIG_LOGLEVEL"},
			},
			&cli.StringFlag{
				Name:    flagLogFormat,
				Value:   logFormatDefault,
				Usage:   "Log output format {default, json}",
				EnvVars: []string{"BOOTSIG_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			verifyCommand(),
			modExpCommand(),
			keyParamsCommand(),
		},
	}
}

// createLogger writes to stderr so that command output on stdout stays
// machine readable.
func createLogger(c *cli.Context) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.String(flagLogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var writer io.Writer
	switch c.String(flagLogFormat) {
	case logFormatJSON:
		writer = os.Stderr
	default:
		writer = zerolog.ConsoleWriter{
			Out:        colorable.NewColorable(os.Stderr),
			TimeFormat: time.RFC3339,
		}
	}
	log := zerolog.New(writer).With().Timestamp().Logger().Level(level)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	})); err != nil {
		log.Warn().Err(err).Msg("Failed to set GOMAXPROCS")
	}
	return log
}
