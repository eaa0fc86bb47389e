// Package serializer walks Go object graphs to and from token streams.
//
// A Serializer is safe for concurrent use: every call gets its own
// reference table, path and error state, and only the contract cache is
// shared.
package serializer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"

	"graph-serializer/token"
	"graph-serializer/token/jsontext"
)

// ErrInvalidTarget is returned by Populate and Unmarshal for targets that
// are not non-nil pointers.
var ErrInvalidTarget = errors.New("serializer: target must be a non-nil pointer")

// Serializer converts Go values to and from token streams.
type Serializer struct {
	settings Settings
}

// New returns a Serializer using settings, with unset fields defaulted.
func New(settings Settings) *Serializer {
	return &Serializer{settings: settings.withDefaults()}
}

// Settings returns the settings in use, defaults filled in.
func (s *Serializer) Settings() Settings {
	return s.settings
}

// Serialize writes v to w.
func (s *Serializer) Serialize(w token.Writer, v any) error {
	return s.serialize(context.Background(), w, v, nil)
}

// SerializeAs writes v as a value declared with type declared, which
// decides whether TypeNameAuto tags the root.
func (s *Serializer) SerializeAs(w token.Writer, v any, declared reflect.Type) error {
	return s.serialize(context.Background(), w, v, declared)
}

func (s *Serializer) SerializeContext(ctx context.Context, w token.Writer, v any) error {
	return s.serialize(ctx, w, v, nil)
}

func (s *Serializer) serialize(ctx context.Context, w token.Writer, v any, declared reflect.Type) error {
	o := s.newOperation(ctx)
	o.writing = true
	w = token.WriterWithContext(o.ctx, w)

	o.log.DebugContext(o.ctx, "serialize started", "type", fmt.Sprintf("%T", v))

	depth := w.Depth()
	if err := o.writeValue(w, reflect.ValueOf(v), declared, nil); err != nil {
		if err := o.catchWrite(w, depth, err, nil, reflect.Value{}, nil, nil); err != nil {
			return err
		}
	}

	o.log.DebugContext(o.ctx, "serialize finished", "recovered", len(o.recovered))

	return o.wrap(KindStructural, w.Flush())
}

// Deserialize reads one value of type t from r.
func (s *Serializer) Deserialize(r token.Reader, t reflect.Type) (any, error) {
	return s.DeserializeContext(context.Background(), r, t)
}

func (s *Serializer) DeserializeContext(ctx context.Context, r token.Reader, t reflect.Type) (any, error) {
	v, err := s.deserialize(ctx, r, t, reflect.Value{}, false)
	if err != nil {
		return nil, err
	}

	return interfaceOf(v), nil
}

// Populate reads into the value target points to, reusing the objects and
// maps already there regardless of ObjectCreationHandling.
func (s *Serializer) Populate(r token.Reader, target any) error {
	return s.into(context.Background(), r, target, true)
}

func (s *Serializer) into(ctx context.Context, r token.Reader, target any, force bool) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("%w, got %T", ErrInvalidTarget, target)
	}

	v, err := s.deserialize(ctx, r, ptr.Type().Elem(), ptr.Elem(), force)
	if err != nil {
		return err
	}

	ptr.Elem().Set(v)

	return nil
}

func (s *Serializer) deserialize(ctx context.Context, r token.Reader, t reflect.Type, existing reflect.Value,
	force bool,
) (reflect.Value, error) {
	o := s.newOperation(ctx)
	r = token.WithContext(o.ctx, r)
	o.reader = r

	o.log.DebugContext(o.ctx, "deserialize started", "type", t.String())

	if err := o.nextContent(r); err != nil {
		return reflect.Value{}, err
	}

	depth := r.Depth()

	v, err := o.read(r, t, existing, nil, force)
	if err != nil {
		if err := o.catchRead(r, depth, err, nil, reflect.Value{}, nil, nil); err != nil {
			return reflect.Value{}, err
		}

		v = reflect.Zero(t)
	}

	o.log.DebugContext(o.ctx, "deserialize finished", "recovered", len(o.recovered))

	out, _ := fit(v, t)

	return out, nil
}

// DeserializeTo reads a T.
func DeserializeTo[T any](s *Serializer, r token.Reader) (T, error) {
	var out T

	v, err := s.deserialize(context.Background(), r, reflect.TypeFor[T](), reflect.Value{}, false)
	if err != nil {
		return out, err
	}

	if v.IsValid() {
		out, _ = v.Interface().(T)
	}

	return out, nil
}

var std = New(DefaultSettings())

// Marshal writes v as compact JSON with DefaultSettings.
func Marshal(v any) ([]byte, error) {
	return marshal(v)
}

// MarshalIndent is Marshal with each nesting level indented by indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return marshal(v, jsontext.WithIndent(indent))
}

func marshal(v any, opts ...jsontext.Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := std.Serialize(jsontext.NewWriter(&buf, opts...), v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal reads JSON data into the value v points to.
func Unmarshal(data []byte, v any) error {
	return std.into(context.Background(), jsontext.NewReader(bytes.NewReader(data)), v, false)
}
