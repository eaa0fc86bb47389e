package token

import "context"

// WithContext returns a Reader that fails with ctx.Err() once ctx is done.
// Cancellation is observed only when a token is read.
func WithContext(ctx context.Context, r Reader) Reader {
	return &ctxReader{Reader: r, ctx: ctx}
}

type ctxReader struct {
	Reader
	ctx context.Context
}

func (r *ctxReader) Read() (bool, error) {
	if err := r.ctx.Err(); err != nil {
		return false, err
	}

	return r.Reader.Read()
}

// WriterWithContext returns a Writer that fails with ctx.Err() once ctx is
// done. Closing tokens and Flush are still let through so callers can leave
// the output balanced.
func WriterWithContext(ctx context.Context, w Writer) Writer {
	return &ctxWriter{Writer: w, ctx: ctx}
}

type ctxWriter struct {
	Writer
	ctx context.Context
}

func (w *ctxWriter) WriteStartObject() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WriteStartObject()
}

func (w *ctxWriter) WriteStartArray() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WriteStartArray()
}

func (w *ctxWriter) WritePropertyName(name string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WritePropertyName(name)
}

func (w *ctxWriter) WriteValue(v any) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WriteValue(v)
}

func (w *ctxWriter) WriteNull() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WriteNull()
}

func (w *ctxWriter) WriteRaw(raw string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	return w.Writer.WriteRaw(raw)
}
