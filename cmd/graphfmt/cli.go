package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type options struct {
	path      string
	config    string
	indent    string
	compact   bool
	roundTrip bool
	logger    *slog.Logger
}

// parse reads the command line. done is set when the program should exit
// without doing anything, e.g. after -help.
func parse(args []string, output io.Writer) (opts options, done bool, err error) {
	flagSet := flag.NewFlagSet("graphfmt", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
graphfmt - reformat JSON documents.

Usage:
  graphfmt [options] [FILE]

Arguments:
  FILE
    Document to read. Standard input when omitted or "-".

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Settings document, .yaml, .yml or .hcl.")
	indentFlag := flagSet.String("indent", "  ", "Indentation of nested values.")
	compactFlag := flagSet.Bool("compact", false, "Write without whitespace.")
	roundTripFlag := flagSet.Bool("roundtrip", false, "Read into Go values and write back through the serializer.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, true, nil
		}

		return opts, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() > 1 {
		return opts, false, &ExitError{Code: 2, Message: "graphfmt reads a single document"}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevelFlag)); err != nil {
		return opts, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid log level %q", *logLevelFlag)}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(*logFormatFlag) {
	case "json":
		opts.logger = slog.New(slog.NewJSONHandler(output, handlerOpts))
	case "text":
		opts.logger = slog.New(slog.NewTextHandler(output, handlerOpts))
	default:
		return opts, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid log format %q", *logFormatFlag)}
	}

	opts.path = flagSet.Arg(0)
	opts.config = *configFlag
	opts.indent = *indentFlag
	opts.compact = *compactFlag
	opts.roundTrip = *roundTripFlag

	return opts, false, nil
}
