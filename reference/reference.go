// Package reference maps object identities to the ids written as $id and
// $ref during one serialize or deserialize call.
package reference

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var (
	ErrDuplicateID      = errors.New("reference: id is already bound")
	ErrNotReferenceable = errors.New("reference: value has no identity")
)

// Resolver is the per-operation identity ↔ id map.
type Resolver interface {
	// GetReference returns the id of v, assigning the next one when v is
	// new.
	GetReference(v any) string
	IsReferenced(v any) bool
	AddReference(id string, v any) error
	ResolveReference(id string) (any, bool)
}

// Factory creates a fresh Resolver for each top-level call.
type Factory func() Resolver

// Key identifies a value by its type and address. Slices add their length
// since subslices share an address.
type Key struct {
	Type reflect.Type
	Ptr  uintptr
	Len  int
}

// KeyOf returns the identity of v. Only non-nil pointers, maps and non-empty
// slices have one.
func KeyOf(v any) (Key, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return Key{}, false
		}

		return Key{Type: rv.Type(), Ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Cap() == 0 {
			return Key{}, false
		}

		return Key{Type: rv.Type(), Ptr: rv.Pointer(), Len: rv.Len()}, true
	default:
		return Key{}, false
	}
}

type valued struct {
	id    string
	value any
}

// Table is the default Resolver. Ids are decimal strings counting from 1.
type Table struct {
	next    int
	ids     map[Key]string
	byID    map[string]any
	byValue map[reflect.Type][]valued
	equal   map[reflect.Type]bool
}

var _ Resolver = (*Table)(nil)

// Option configures a Table.
type Option func(*Table)

// WithValueEquality makes values of the given types equal when
// reflect.DeepEqual says so, instead of by identity.
func WithValueEquality(types ...reflect.Type) Option {
	return func(t *Table) {
		for _, typ := range types {
			t.equal[typ] = true
		}
	}
}

// New returns an empty Table.
func New(opts ...Option) *Table {
	t := &Table{
		ids:     make(map[Key]string),
		byID:    make(map[string]any),
		byValue: make(map[reflect.Type][]valued),
		equal:   make(map[reflect.Type]bool),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewFactory returns a Factory producing Tables with opts.
func NewFactory(opts ...Option) Factory {
	return func() Resolver { return New(opts...) }
}

// Referenceable reports whether v can be given an id.
func (t *Table) Referenceable(v any) bool {
	if v == nil {
		return false
	}

	if t.equal[reflect.TypeOf(v)] {
		return true
	}

	_, ok := KeyOf(v)

	return ok
}

func (t *Table) lookup(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	if typ := reflect.TypeOf(v); t.equal[typ] {
		for _, e := range t.byValue[typ] {
			if reflect.DeepEqual(e.value, v) {
				return e.id, true
			}
		}

		return "", false
	}

	key, ok := KeyOf(v)
	if !ok {
		return "", false
	}

	id, ok := t.ids[key]

	return id, ok
}

func (t *Table) GetReference(v any) string {
	if id, ok := t.lookup(v); ok {
		return id
	}

	// ids bound through AddReference are skipped
	var id string
	for {
		t.next++
		id = strconv.Itoa(t.next)

		if _, taken := t.byID[id]; !taken {
			break
		}
	}

	if err := t.AddReference(id, v); err != nil {
		return ""
	}

	return id
}

func (t *Table) IsReferenced(v any) bool {
	_, ok := t.lookup(v)

	return ok
}

func (t *Table) AddReference(id string, v any) error {
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	if v != nil && t.equal[reflect.TypeOf(v)] {
		typ := reflect.TypeOf(v)
		t.byValue[typ] = append(t.byValue[typ], valued{id: id, value: v})
		t.byID[id] = v

		return nil
	}

	key, ok := KeyOf(v)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotReferenceable, v)
	}

	t.ids[key] = id
	t.byID[id] = v

	return nil
}

func (t *Table) ResolveReference(id string) (any, bool) {
	v, ok := t.byID[id]

	return v, ok
}
