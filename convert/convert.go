// Package convert defines per-type overrides of the graph engine.
package convert

import (
	"reflect"

	"graph-serializer/token"
)

// Engine is the running operation a converter can hand nested values back
// to. It shares reference state, the path and the error policy of the
// operation that invoked the converter.
type Engine interface {
	Serialize(w token.Writer, v any) error
	// Deserialize reads the value the reader is positioned on into a new
	// value of type t.
	Deserialize(r token.Reader, t reflect.Type) (any, error)
}

// Converter takes over reading and writing of the types it claims.
type Converter interface {
	CanConvert(t reflect.Type) bool
	CanRead() bool
	CanWrite() bool
	// ReadValue reads the value the reader is positioned on and leaves the
	// reader on its last token. existing is the current target value or nil.
	ReadValue(r token.Reader, t reflect.Type, existing any, e Engine) (any, error)
	WriteValue(w token.Writer, v any, e Engine) error
}

// Chain is an ordered list of converters; the first match wins.
type Chain []Converter

// Reader returns the first converter that claims t and can read.
func (c Chain) Reader(t reflect.Type) (Converter, bool) {
	for _, conv := range c {
		if conv != nil && conv.CanRead() && conv.CanConvert(t) {
			return conv, true
		}
	}

	return nil, false
}

// Writer returns the first converter that claims t and can write.
func (c Chain) Writer(t reflect.Type) (Converter, bool) {
	for _, conv := range c {
		if conv != nil && conv.CanWrite() && conv.CanConvert(t) {
			return conv, true
		}
	}

	return nil, false
}

// Func builds a Converter for exactly one type from a pair of functions.
// A nil function disables that direction.
type Func[T any] struct {
	Read  func(r token.Reader, e Engine) (T, error)
	Write func(w token.Writer, v T, e Engine) error
}

func (f Func[T]) CanConvert(t reflect.Type) bool { return t == reflect.TypeFor[T]() }

func (f Func[T]) CanRead() bool { return f.Read != nil }

func (f Func[T]) CanWrite() bool { return f.Write != nil }

func (f Func[T]) ReadValue(r token.Reader, _ reflect.Type, _ any, e Engine) (any, error) {
	return f.Read(r, e)
}

func (f Func[T]) WriteValue(w token.Writer, v any, e Engine) error {
	return f.Write(w, v.(T), e)
}
