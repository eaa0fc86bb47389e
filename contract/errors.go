package contract

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrUnsupportedType = errors.New("type cannot be serialized")
	ErrDuplicateMember = errors.New("duplicate member name")
	ErrExtensionData   = errors.New("invalid extension data member")
	ErrInvalidTag      = errors.New("invalid tag")
	ErrNoConstructor   = errors.New("unable to find a constructor")
	ErrHook            = errors.New("customization hook failed")
)

// BuildError is returned when a contract cannot be built for a type.
type BuildError struct {
	Type   reflect.Type
	Member string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("contract for %s, member %s: %v", e.Type, e.Member, e.Err)
	}

	return fmt.Sprintf("contract for %s: %v", e.Type, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func buildErr(t reflect.Type, member string, err error, format string, args ...any) *BuildError {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}

	return &BuildError{Type: t, Member: member, Err: err}
}
