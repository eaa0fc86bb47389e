// Package contract describes how Go types map to wire structure.
//
// A Contract is built once per type by a Resolver and cached for the life of
// the process. Contracts are immutable after the customization hook ran.
package contract

import (
	"reflect"
	"strings"

	"graph-serializer/convert"
	"graph-serializer/naming"
	"graph-serializer/options"
	"graph-serializer/primitive"
)

// Contract is the resolved wire shape of one Go type.
type Contract struct {
	Kind Kind
	// UnderlyingType is the type the contract was requested for, pointers
	// included.
	UnderlyingType reflect.Type
	// CreatedType is UnderlyingType with pointers removed.
	CreatedType reflect.Type

	Properties []*Property
	// ExtensionData receives unknown members on read and is written after
	// the properties.
	ExtensionData *Property

	ElemType  reflect.Type // arrays, dictionaries
	KeyType   reflect.Type // dictionaries
	Primitive primitive.KindEnum

	NamingStrategy naming.Strategy
	Converter      convert.Converter

	// IsReference overrides PreserveReferences for values of this type.
	IsReference *bool

	// Factory overrides every other way of creating a value.
	Factory func() any
	// Override is the constructor marked explicit.
	Override *Constructor
	// Constructor is the selected parameterized constructor.
	Constructor *Constructor
	// Default is the registered parameterless constructor.
	Default *Constructor
	// CollectionConstructor builds slices and maps from a filled []Elem or
	// map[K]V.
	CollectionConstructor *Constructor
	// DefaultCreatorNonPublic marks the zero value as usable only with
	// ConstructorHandling AllowNonPublicDefault.
	DefaultCreatorNonPublic bool
	// CreatorErr is raised when a value has to be created.
	CreatorErr error

	HasErrorCallback        bool
	HasDeserializedCallback bool

	byName map[string]*Property
	byFold map[string]*Property
}

// Property is one member of an object contract.
type Property struct {
	WireName       string
	UnderlyingName string
	Index          []int
	DeclaredType   reflect.Type

	Required  Required
	Converter convert.Converter

	Ignored  bool
	Readable bool
	Writable bool

	// ShouldSerialize reports whether the member is written for the owner.
	ShouldSerialize func(owner reflect.Value) bool
	// ShouldDeserialize reports whether a read value is stored into owner.
	ShouldDeserialize func(owner reflect.Value) bool

	Order           int
	HasOrder        bool
	HasExplicitName bool

	NullValueHandling     *options.NullValueHandling
	DefaultValueHandling  *options.DefaultValueHandling
	IsReference           *bool
	TypeNameHandling      *options.TypeNameHandling
	ReferenceLoopHandling *options.ReferenceLoopHandling

	// ValueEquality makes values of this member share an id when
	// reflect.DeepEqual says they are equal, not only when they are the same
	// instance. Set with `graph:"ref=value"`.
	ValueEquality bool

	// OnError is consulted after the owner's ErrorCallback for errors inside
	// this member.
	OnError func(ctx *ErrorContext) Recovery

	declared int
	depth    int
}

// Property returns the property bound to a wire name, falling back to a
// case-insensitive match.
func (c *Contract) Property(name string) (*Property, bool) {
	if p, ok := c.byName[name]; ok {
		return p, true
	}

	p, ok := c.byFold[strings.ToLower(name)]

	return p, ok
}

// Names returns the wire names of the readable properties.
func (c *Contract) Names() []string {
	names := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		if !p.Ignored {
			names = append(names, p.WireName)
		}
	}

	return names
}

func (c *Contract) index() {
	c.byName = make(map[string]*Property, len(c.Properties))
	c.byFold = make(map[string]*Property, len(c.Properties))

	for _, p := range c.Properties {
		if p.Ignored {
			continue
		}

		c.byName[p.WireName] = p

		fold := strings.ToLower(p.WireName)
		if _, ok := c.byFold[fold]; !ok {
			c.byFold[fold] = p
		}
	}
}

// Field returns the member value inside owner, or an invalid Value when an
// embedded pointer on the way is nil.
func (p *Property) Field(owner reflect.Value) reflect.Value {
	v := owner
	for i, x := range p.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}
			}

			v = v.Elem()
		}

		v = v.Field(x)
	}

	return v
}

// FieldForSet is Field allocating nil embedded pointers on the way. owner
// must be addressable.
func (p *Property) FieldForSet(owner reflect.Value) reflect.Value {
	v := owner
	for i, x := range p.Index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}

				v.Set(reflect.New(v.Type().Elem()))
			}

			v = v.Elem()
		}

		v = v.Field(x)
	}

	return v
}

// Recovery is the decision of an error handler.
type Recovery int

const (
	Propagate Recovery = iota // keep unwinding
	Continue                  // the error is handled, go on with the next sibling
)

// ErrorContext describes a failure at one node of the graph. The same
// context travels up while the error is offered to the enclosing nodes.
type ErrorContext struct {
	Path string
	// Member is the property name, dictionary key or element index that
	// failed, or nil.
	Member any
	// OriginalObject is the object the error was raised in.
	OriginalObject any
	// CurrentObject is the object whose handlers are being asked.
	CurrentObject any
	Err           error
	Handled       bool
}

// DynamicMembers is implemented by structs carrying members beyond their
// declared fields.
type DynamicMembers interface {
	MemberNames() []string
	GetMember(name string) (any, bool)
	SetMember(name string, value any) error
}

// ConverterProvider attaches a converter to a type.
type ConverterProvider interface {
	Converter() convert.Converter
}

// ErrorCallback makes a type an error-handling anchor for its subtree.
type ErrorCallback interface {
	OnError(ctx *ErrorContext) Recovery
}

// DeserializedCallback is invoked once a value was populated.
type DeserializedCallback interface {
	OnDeserialized() error
}
