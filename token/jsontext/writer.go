package jsontext

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"graph-serializer/token"
)

// ErrInvalidState is returned when a token does not fit the writer state.
var ErrInvalidState = errors.New("jsontext: token not valid in the current state")

type wframe struct {
	object  bool
	count   int
	pending bool
}

// Writer is a token.Writer producing JSON text.
type Writer struct {
	w       *bufio.Writer
	indent  string
	stack   []wframe
	scratch []byte
}

var _ token.Writer = (*Writer)(nil)

// Option configures a Writer.
type Option func(*Writer)

// WithIndent makes the writer put every member on its own line, indented by
// indent per level.
func WithIndent(indent string) Option {
	return func(w *Writer) { w.indent = indent }
}

// NewWriter returns a Writer writing to w. Call Flush when done.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	out := &Writer{w: bufio.NewWriter(w)}
	for _, opt := range opts {
		opt(out)
	}

	return out
}

func (w *Writer) top() *wframe {
	if len(w.stack) == 0 {
		return nil
	}

	return &w.stack[len(w.stack)-1]
}

func (w *Writer) newline(depth int) {
	if w.indent == "" {
		return
	}

	w.w.WriteByte('\n')

	for range depth {
		w.w.WriteString(w.indent)
	}
}

// beforeValue writes the separator a value needs in the current state.
func (w *Writer) beforeValue() error {
	top := w.top()

	switch {
	case top == nil:
		return nil
	case top.object:
		if !top.pending {
			return fmt.Errorf("%w: value without a property name", ErrInvalidState)
		}

		top.pending = false
		top.count++
	default:
		if top.count > 0 {
			w.w.WriteByte(',')
		}

		top.count++
		w.newline(len(w.stack))
	}

	return nil
}

func (w *Writer) open(object bool, b byte) error {
	if err := w.beforeValue(); err != nil {
		return err
	}

	w.w.WriteByte(b)
	w.stack = append(w.stack, wframe{object: object})

	return nil
}

func (w *Writer) close(object bool, b byte) error {
	top := w.top()
	if top == nil || top.object != object || top.pending {
		return fmt.Errorf("%w: unexpected %q", ErrInvalidState, b)
	}

	count := top.count
	w.stack = w.stack[:len(w.stack)-1]

	if count > 0 {
		w.newline(len(w.stack))
	}

	return w.w.WriteByte(b)
}

func (w *Writer) WriteStartObject() error { return w.open(true, '{') }

func (w *Writer) WriteEndObject() error { return w.close(true, '}') }

func (w *Writer) WriteStartArray() error { return w.open(false, '[') }

func (w *Writer) WriteEndArray() error { return w.close(false, ']') }

func (w *Writer) WritePropertyName(name string) error {
	top := w.top()
	if top == nil || !top.object || top.pending {
		return fmt.Errorf("%w: property name %q", ErrInvalidState, name)
	}

	if top.count > 0 {
		w.w.WriteByte(',')
	}

	w.newline(len(w.stack))
	w.writeString(name)
	w.w.WriteByte(':')

	if w.indent != "" {
		w.w.WriteByte(' ')
	}

	top.pending = true

	return nil
}

func (w *Writer) WriteNull() error {
	if err := w.beforeValue(); err != nil {
		return err
	}

	_, err := w.w.WriteString("null")

	return err
}

func (w *Writer) WriteRaw(raw string) error {
	if err := w.beforeValue(); err != nil {
		return err
	}

	_, err := w.w.WriteString(raw)

	return err
}

func (w *Writer) WriteComment(text string) error {
	w.newline(len(w.stack))
	_, err := fmt.Fprintf(w.w, "/*%s*/", text)

	return err
}

func (w *Writer) WriteValue(v any) error {
	scalar, err := w.encode(v)
	if err != nil {
		return err
	}

	if err := w.beforeValue(); err != nil {
		return err
	}

	_, err = w.w.Write(scalar)

	return err
}

// encode formats a scalar without touching the writer state, so a bad value
// leaves the output balanced.
func (w *Writer) encode(v any) ([]byte, error) {
	b := w.scratch[:0]

	switch x := v.(type) {
	case nil:
		return append(b, "null"...), nil
	case bool:
		return strconv.AppendBool(b, x), nil
	case string:
		return appendString(b, x), nil
	case []byte:
		return appendString(b, base64.StdEncoding.EncodeToString(x)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(b, rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(b, rv.Uint(), 10), nil
	case reflect.Float32:
		return appendFloat(b, rv.Float(), 32)
	case reflect.Float64:
		return appendFloat(b, rv.Float(), 64)
	case reflect.String:
		return appendString(b, rv.String()), nil
	case reflect.Bool:
		return strconv.AppendBool(b, rv.Bool()), nil
	default:
		return nil, fmt.Errorf("jsontext: unsupported value type %T", v)
	}
}

// WriteEnd closes the innermost container. A property still waiting for its
// value gets null.
func (w *Writer) WriteEnd() error {
	top := w.top()
	if top == nil {
		return fmt.Errorf("%w: nothing to close", ErrInvalidState)
	}

	if top.pending {
		if err := w.WriteNull(); err != nil {
			return err
		}
	}

	if top.object {
		return w.WriteEndObject()
	}

	return w.WriteEndArray()
}

func (w *Writer) Depth() int { return len(w.stack) }

func (w *Writer) State() token.WriteState {
	top := w.top()

	switch {
	case top == nil:
		return token.StateStart
	case top.pending:
		return token.StateProperty
	case top.object:
		return token.StateObject
	default:
		return token.StateArray
	}
}

func (w *Writer) Flush() error { return w.w.Flush() }

func (w *Writer) writeString(s string) {
	w.scratch = appendString(w.scratch[:0], s)
	w.w.Write(w.scratch)
}

// appendFloat keeps a fraction on integral values so they read back as
// floats.
func appendFloat(b []byte, f float64, bits int) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("jsontext: unsupported float value %v", f)
	}

	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}

	start := len(b)
	b = strconv.AppendFloat(b, f, format, -1, bits)

	for _, c := range b[start:] {
		if c == '.' || c == 'e' {
			return b, nil
		}
	}

	return append(b, '.', '0'), nil
}

const hex = "0123456789abcdef"

func appendString(b []byte, s string) []byte {
	b = append(b, '"')

	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				b = append(b, '\\', c)
			case c == '\n':
				b = append(b, '\\', 'n')
			case c == '\r':
				b = append(b, '\\', 'r')
			case c == '\t':
				b = append(b, '\\', 't')
			case c < 0x20:
				b = append(b, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
			default:
				b = append(b, c)
			}

			i++

			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			b = append(b, `\ufffd`...)
		case r == '\u2028' || r == '\u2029':
			b = append(b, '\\', 'u', '2', '0', '2', hex[r&0xf])
		default:
			b = append(b, s[i:i+size]...)
		}

		i += size
	}

	return append(b, '"')
}
