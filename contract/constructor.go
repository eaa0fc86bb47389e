package contract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNotAConstructor           = errors.New("provided function is not a recognizable constructor")
	ErrConstructorIsNotAFunction = errors.New("provided constructor is not a function")
	ErrDoublePointer             = errors.New("constructor does not support double pointers")
	ErrParamNames                = errors.New("constructor parameter names do not match its arity")
)

var errorType = reflect.TypeFor[error]()

// Param is a named constructor parameter. Names bind to wire members
// case-insensitively.
type Param struct {
	Name string
	Type reflect.Type
}

// Constructor is a registered function creating values of one type.
type Constructor struct {
	Func     reflect.Value
	Params   []Param
	Out      reflect.Type
	HasErr   bool
	Explicit bool
}

// ParseConstructor inspects fn and returns a Constructor naming its
// parameters after params.
//
// Supports signatures:
//   - func(args...) T
//   - func(args...) *T
//   - func(args...) (T, error)
//   - func(args...) (*T, error)
func ParseConstructor(fn any, params ...string) (*Constructor, error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func || fnVal.IsNil() {
		return nil, ErrConstructorIsNotAFunction
	}

	fnType := fnVal.Type()
	if fnType.IsVariadic() {
		return nil, ErrNotAConstructor
	}

	out := fnType.Out
	switch fnType.NumOut() {
	case 1:
	case 2:
		if out(1) != errorType {
			return nil, ErrNotAConstructor
		}
	default:
		return nil, ErrNotAConstructor
	}

	dst := out(0)
	if dst.Kind() == reflect.Pointer && dst.Elem().Kind() == reflect.Pointer {
		return nil, ErrDoublePointer
	}

	if dst.Kind() == reflect.Interface {
		return nil, ErrNotAConstructor
	}

	if len(params) != fnType.NumIn() {
		return nil, fmt.Errorf("%w: %d names for %d parameters", ErrParamNames, len(params), fnType.NumIn())
	}

	c := &Constructor{
		Func:   fnVal,
		Out:    dst,
		HasErr: fnType.NumOut() == 2,
		Params: make([]Param, len(params)),
	}

	for i, name := range params {
		c.Params[i] = Param{Name: name, Type: fnType.In(i)}
	}

	return c, nil
}

// Creates returns the type the constructor builds, pointers removed.
func (c *Constructor) Creates() reflect.Type {
	return deref(c.Out)
}

// Param returns the position of a parameter, matching names
// case-insensitively.
func (c *Constructor) Param(name string) (int, bool) {
	for i, p := range c.Params {
		if strings.EqualFold(p.Name, name) {
			return i, true
		}
	}

	return -1, false
}

// Call invokes the constructor. Missing arguments are zero values.
func (c *Constructor) Call(args []reflect.Value) (reflect.Value, error) {
	in := make([]reflect.Value, len(c.Params))
	for i, p := range c.Params {
		if i < len(args) && args[i].IsValid() {
			in[i] = args[i]
		} else {
			in[i] = reflect.Zero(p.Type)
		}
	}

	out := c.Func.Call(in)
	if c.HasErr && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}

	return out[0], nil
}

func (c *Constructor) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.Name + " " + p.Type.String()
	}

	return fmt.Sprintf("func(%s) %s", strings.Join(params, ", "), c.Out)
}

// selectCreators decides once per contract how values are created.
func selectCreators(c *Contract, ctors []*Constructor) {
	if len(ctors) == 0 {
		return
	}

	if c.Kind == KindArray || c.Kind == KindDictionary {
		selectCollectionConstructor(c, ctors)
		return
	}

	var explicit, parameterless, parameterized []*Constructor

	for _, ctor := range ctors {
		switch {
		case ctor.Explicit:
			explicit = append(explicit, ctor)
		case len(ctor.Params) == 0:
			parameterless = append(parameterless, ctor)
		default:
			parameterized = append(parameterized, ctor)
		}
	}

	switch {
	case len(explicit) > 1:
		c.CreatorErr = buildErr(c.CreatedType, "", ErrNoConstructor, "multiple constructors are marked explicit")
		return
	case len(explicit) == 1:
		c.Override = explicit[0]
		return
	}

	switch {
	case len(parameterless) > 1:
		c.CreatorErr = buildErr(c.CreatedType, "", ErrNoConstructor,
			"multiple parameterless constructors are registered")
		return
	case len(parameterless) == 1:
		c.Default = parameterless[0]
		return
	}

	if len(parameterized) == 1 {
		c.Constructor = parameterized[0]
	}

	c.DefaultCreatorNonPublic = true
}

func selectCollectionConstructor(c *Contract, ctors []*Constructor) {
	var want reflect.Type

	switch c.CreatedType.Kind() {
	case reflect.Slice:
		want = reflect.SliceOf(c.ElemType)
	case reflect.Map:
		want = reflect.MapOf(c.KeyType, c.ElemType)
	default:
		c.CreatorErr = buildErr(c.CreatedType, "", ErrNoConstructor, "fixed-size arrays cannot have constructors")
		return
	}

	if len(ctors) > 1 {
		c.CreatorErr = buildErr(c.CreatedType, "", ErrNoConstructor, "collections accept a single constructor")
		return
	}

	ctor := ctors[0]
	if len(ctor.Params) != 1 || ctor.Params[0].Type != want {
		c.CreatorErr = buildErr(c.CreatedType, "", ErrNoConstructor,
			"collection constructor %s must take a single %s parameter", ctor, want)

		return
	}

	c.CollectionConstructor = ctor
}

// Creation says how the engine creates a value of a contract.
type Creation int

const (
	CreateZero          Creation = iota // zero value, then populate
	CreateFactory                       // Contract.Factory, then populate
	CreateDefault                       // parameterless constructor, then populate
	CreateParameterized                 // read members first, then call the constructor
	CreateCollection                    // fill a plain slice or map, then call the constructor
)

// Creation picks the creator for c. The zero value of a type with
// registered constructors is only used when allowNonPublic is set.
func (c *Contract) Creation(allowNonPublic bool) (Creation, *Constructor, error) {
	switch {
	case c.CreatorErr != nil:
		return 0, nil, c.CreatorErr
	case c.Factory != nil:
		return CreateFactory, nil, nil
	case c.CollectionConstructor != nil:
		return CreateCollection, c.CollectionConstructor, nil
	case c.Override != nil && len(c.Override.Params) > 0:
		return CreateParameterized, c.Override, nil
	case c.Override != nil:
		return CreateDefault, c.Override, nil
	case c.Default != nil:
		return CreateDefault, c.Default, nil
	case !c.DefaultCreatorNonPublic, allowNonPublic:
		return CreateZero, nil, nil
	case c.Constructor != nil:
		return CreateParameterized, c.Constructor, nil
	default:
		return 0, nil, buildErr(c.CreatedType, "", ErrNoConstructor,
			"register a parameterless constructor, a single constructor with parameters "+
				"or one marked explicit")
	}
}
