package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"graph-serializer/binder"
	"graph-serializer/config"
	"graph-serializer/internal/ctxlog"
	"graph-serializer/serializer"
	"graph-serializer/token"
	"graph-serializer/token/jsontext"
)

var errTrailingData = errors.New("unexpected data after the document")

func format(opts options, in io.Reader, out io.Writer) error {
	ctx := ctxlog.WithLogger(context.Background(), opts.logger)
	logger := ctxlog.FromContext(ctx)

	if opts.path != "" && opts.path != "-" {
		f, err := os.Open(opts.path)
		if err != nil {
			return err
		}
		defer f.Close()

		in = f
	}

	var writerOpts []jsontext.Option
	if !opts.compact {
		writerOpts = append(writerOpts, jsontext.WithIndent(opts.indent))
	}

	r := jsontext.NewReader(in)
	w := jsontext.NewWriter(out, writerOpts...)

	var err error
	if opts.roundTrip {
		err = roundTrip(ctx, opts, r, w)
	} else {
		err = copyDocument(r, w)
	}

	if err != nil {
		return err
	}

	switch ok, err := r.Read(); {
	case err != nil:
		return err
	case ok:
		return fmt.Errorf("%w at offset %d", errTrailingData, r.Offset())
	}

	logger.Debug("Document formatted.", "path", opts.path, "roundtrip", opts.roundTrip)

	_, err = fmt.Fprintln(out)

	return err
}

func copyDocument(r token.Reader, w token.Writer) error {
	if err := token.NextContent(r); err != nil {
		return err
	}

	if err := token.Copy(w, r); err != nil {
		return err
	}

	return w.Flush()
}

func roundTrip(ctx context.Context, opts options, r token.Reader, w token.Writer) error {
	settings := serializer.DefaultSettings()
	settings.Logger = opts.logger

	if opts.config != "" {
		doc, err := config.Load(ctx, opts.config)
		if err != nil {
			return err
		}

		if err := doc.Apply(&settings, binder.NewRegistry()); err != nil {
			return err
		}
	}

	s := serializer.New(settings)

	v, err := s.DeserializeContext(ctx, r, reflect.TypeFor[any]())
	if err != nil {
		return err
	}

	return s.SerializeContext(ctx, w, v)
}
