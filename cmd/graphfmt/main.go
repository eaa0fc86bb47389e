// Command graphfmt reformats JSON documents.
//
// By default tokens are copied as they are read, so member order and
// comments survive. With -roundtrip the document is read into a Go value
// and written back through the serializer, which resolves "$ref" metadata
// and applies the settings of the -config document.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ExitError carries the exit code for usage errors.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func run(in io.Reader, out, errOut io.Writer, args []string) error {
	opts, done, err := parse(args, errOut)
	if err != nil || done {
		return err
	}

	return format(opts, in, out)
}
