package serializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"graph-serializer/contract"
	"graph-serializer/internal/ctxlog"
	"graph-serializer/reference"
	"graph-serializer/token"
)

// operation is the state of one top-level call. It is never shared between
// goroutines.
type operation struct {
	settings  *Settings
	contracts *contract.Resolver
	ctx       context.Context
	log       *slog.Logger
	refs      reference.Resolver

	path    path
	depth   int
	reader  token.Reader
	writing bool

	// ancestors holds the identities of the containers being written
	ancestors []reference.Key
	// equal holds the first instance of each value written by a member
	// compared by value
	equal []any

	lastFailure struct {
		offset  int64
		message string
		set     bool
	}
	recovered []*ErrorContext
}

func (s *Serializer) newOperation(ctx context.Context) *operation {
	ctx = ctxlog.Ensure(ctx, s.settings.Logger)

	return &operation{
		settings:  &s.settings,
		contracts: s.settings.Contracts,
		ctx:       ctx,
		log:       ctxlog.FromContext(ctx),
		refs:      s.settings.ReferenceResolver(),
	}
}

func (o *operation) offset() int64 {
	if o.writing || o.reader == nil {
		return -1
	}

	return o.reader.Offset()
}

func (o *operation) fail(kind ErrorKind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if msg == "" && err != nil {
		msg = err.Error()
	}

	return &Error{Kind: kind, Path: o.path.String(), Offset: o.offset(), Message: msg, Err: err}
}

// wrap turns errors from collaborators (tokens, converters, callbacks) into
// engine errors. Cancellation and engine errors pass through.
func (o *operation) wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}

	var engineErr *Error
	if errors.As(err, &engineErr) || isCanceled(err) {
		return err
	}

	return o.fail(kind, err, "%s", err.Error())
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (o *operation) contract(t reflect.Type) (*contract.Contract, error) {
	c, err := o.contracts.Contract(t)
	if err != nil {
		return nil, o.fail(KindContractBuild, err, "%s", err.Error())
	}

	return c, nil
}

// handle offers err to the handlers of the node owning the failed member:
// the owner's ErrorCallback, the property's OnError, then Settings.Error.
// It reports whether the error was handled.
func (o *operation) handle(err error, c *contract.Contract, owner reflect.Value, member any, prop *contract.Property) bool {
	var engineErr *Error
	if !errors.As(err, &engineErr) || engineErr.Kind.Fatal() {
		return false
	}

	ctx := engineErr.Context
	if ctx == nil {
		ctx = &ErrorContext{
			Path:           engineErr.Path,
			Member:         member,
			OriginalObject: interfaceOf(owner),
			Err:            engineErr,
		}
		engineErr.Context = ctx
	}

	ctx.CurrentObject = interfaceOf(owner)

	if c != nil && c.HasErrorCallback {
		if cb, ok := callbackOf[contract.ErrorCallback](owner); ok && cb.OnError(ctx) == Continue {
			ctx.Handled = true
		}
	}

	if !ctx.Handled && prop != nil && prop.OnError != nil && prop.OnError(ctx) == Continue {
		ctx.Handled = true
	}

	if !ctx.Handled && o.settings.Error != nil && o.settings.Error(ctx) == Continue {
		ctx.Handled = true
	}

	if !ctx.Handled {
		return false
	}

	o.recovered = append(o.recovered, ctx)
	o.log.WarnContext(o.ctx, "recovered from error", "path", ctx.Path, "error", engineErr.Message)

	return true
}

// guard escalates a handled read error repeating at the same offset.
func (o *operation) guard(err error) error {
	var engineErr *Error
	if !errors.As(err, &engineErr) || o.writing {
		return nil
	}

	last := &o.lastFailure
	if last.set && last.offset == engineErr.Offset && last.message == engineErr.Message {
		return o.fail(KindInfiniteLoop, engineErr, "infinite loop detected from error handling: %s", engineErr.Message)
	}

	last.offset, last.message, last.set = engineErr.Offset, engineErr.Message, true

	return nil
}

func interfaceOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}

	return v.Interface()
}

// callbackOf finds a method set implementation on v or on a pointer to it.
func callbackOf[T any](v reflect.Value) (T, bool) {
	var zero T
	if !v.IsValid() {
		return zero, false
	}

	if cb, ok := v.Interface().(T); ok {
		return cb, true
	}

	if v.Kind() == reflect.Pointer {
		return zero, false
	}

	if !v.CanAddr() {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		v = ptr.Elem()
	}

	cb, ok := v.Addr().Interface().(T)

	return cb, ok
}

// engine lets converters hand nested values back to the operation.
type engine struct{ o *operation }

func (e engine) Serialize(w token.Writer, v any) error {
	return e.o.writeValue(w, reflect.ValueOf(v), nil, nil)
}

func (e engine) Deserialize(r token.Reader, t reflect.Type) (any, error) {
	v, err := e.o.readValue(r, t, reflect.Value{}, nil)
	if err != nil {
		return nil, err
	}

	return interfaceOf(v), nil
}
