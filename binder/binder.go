// Package binder maps Go types to the names written in $type and back.
package binder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"graph-serializer/internal/common"
)

var (
	ErrUnknownType   = errors.New("binder: unknown type")
	ErrAmbiguousType = errors.New("binder: ambiguous type name")
)

// Binder resolves type names in both directions.
type Binder interface {
	TypeToName(t reflect.Type) (string, error)
	NameToType(name string) (reflect.Type, error)
}

// Registry is the default Binder. A named type is written as
// "<import path>.<Name>", anything else by its reflect string. Pointers are
// stripped. Go cannot look types up by name, so a type is known once it was
// registered, aliased or written through TypeToName.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	names  map[reflect.Type]string
}

var _ Binder = (*Registry)(nil)

var generic = []reflect.Type{
	reflect.TypeFor[bool](),
	reflect.TypeFor[string](),
	reflect.TypeFor[int](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint64](),
	reflect.TypeFor[float64](),
	reflect.TypeFor[[]byte](),
	reflect.TypeFor[[]any](),
	reflect.TypeFor[map[string]any](),
}

// NewRegistry returns a Registry knowing the generic types and types.
func NewRegistry(types ...reflect.Type) *Registry {
	r := &Registry{
		byName: make(map[string]reflect.Type),
		names:  make(map[reflect.Type]string),
	}

	r.Register(generic...)
	r.Register(types...)

	return r
}

// Name is the default wire name of t.
func Name(t reflect.Type) string {
	t = base(t)
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}

	return t.String()
}

func base(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// Register makes types resolvable under their default names.
func (r *Registry) Register(types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range types {
		r.register(Name(t), base(t), false)
	}
}

// Alias binds wire to t in both directions. The alias replaces the default
// name on write; the default name still resolves on read.
func (r *Registry) Alias(wire string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t = base(t)
	r.register(Name(t), t, false)
	r.register(wire, t, true)
}

func (r *Registry) register(name string, t reflect.Type, preferred bool) {
	r.byName[name] = t

	if _, ok := r.names[t]; !ok || preferred {
		r.names[t] = name
	}
}

func (r *Registry) TypeToName(t reflect.Type) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: nil", ErrUnknownType)
	}

	t = base(t)

	r.mu.RLock()
	name, ok := r.names[t]
	r.mu.RUnlock()

	if ok {
		return name, nil
	}

	if t.Kind() == reflect.Interface {
		return "", fmt.Errorf("%w: interface %s has no concrete name", ErrUnknownType, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name = Name(t)
	r.register(name, t, false)

	return name, nil
}

// NameToType resolves exact names first, then "pkg.Name" short forms and
// bare names when exactly one registered type matches.
func (r *Registry) NameToType(name string) (reflect.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.byName[name]; ok {
		return t, nil
	}

	pkg, short := common.SplitQualified(name)
	if short == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	var found []reflect.Type

	for t := range r.names {
		if t.Name() != short {
			continue
		}

		if pkg == "" || t.PkgPath() == pkg || common.PkgAlias(t.PkgPath()) == pkg ||
			strings.HasSuffix(t.PkgPath(), "/"+pkg) {
			found = append(found, t)
		}
	}

	switch {
	case common.IsSingle(found):
		t, _ := common.First(found)
		return t, nil
	case common.IsEmpty(found):
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	default:
		return nil, fmt.Errorf("%w: %q matches %d types", ErrAmbiguousType, name, len(found))
	}
}
