package contract

import (
	"encoding"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"graph-serializer/convert"
	"graph-serializer/naming"
	"graph-serializer/primitive"
)

// Visibility selects which struct fields become properties.
type Visibility int

const (
	OptOut Visibility = iota // every exported field unless ignored
	OptIn                    // only fields with a json or graph tag
)

// Resolver builds and caches contracts. It is safe for concurrent use.
// Options are fixed at construction; contracts never change afterwards.
type Resolver struct {
	naming     naming.Strategy
	visibility Visibility
	hooks      []func(*Contract) error
	converters map[string]convert.Converter
	ctors      map[reflect.Type][]*Constructor
	factories  map[reflect.Type]func() any
	logger     *slog.Logger

	cache sync.Map // reflect.Type -> *Contract
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithNaming sets the naming strategy. Strategies must be comparable.
func WithNaming(s naming.Strategy) Option {
	return func(r *Resolver) error {
		r.naming = s
		return nil
	}
}

func WithVisibility(v Visibility) Option {
	return func(r *Resolver) error {
		r.visibility = v
		return nil
	}
}

// WithHook registers a function called once per type after its contract
// was built. It may adjust the contract; an error fails the build. The hook
// must not request the contract of the type it is given.
func WithHook(fn func(*Contract) error) Option {
	return func(r *Resolver) error {
		r.hooks = append(r.hooks, fn)
		return nil
	}
}

// WithConverter makes c available to `graph:"converter=name"` tags.
func WithConverter(name string, c convert.Converter) Option {
	return func(r *Resolver) error {
		r.converters[name] = c
		return nil
	}
}

// WithConstructor registers a constructor, see ParseConstructor.
func WithConstructor(fn any, params ...string) Option {
	return func(r *Resolver) error {
		return r.addConstructor(fn, params, false)
	}
}

// WithExplicitConstructor registers a constructor that is preferred over
// every other one of its type.
func WithExplicitConstructor(fn any, params ...string) Option {
	return func(r *Resolver) error {
		return r.addConstructor(fn, params, true)
	}
}

// WithFactory makes fn the creator of t. For an interface type fn decides
// the concrete value read when no $type tag is present.
func WithFactory(t reflect.Type, fn func() any) Option {
	return func(r *Resolver) error {
		if t == nil || fn == nil {
			return fmt.Errorf("contract: factory needs a type and a function")
		}

		r.factories[t] = fn

		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) error {
		r.logger = l
		return nil
	}
}

// New returns a private Resolver.
func New(opts ...Option) (*Resolver, error) {
	r := newResolver(naming.Default{}, OptOut)

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.naming == nil {
		r.naming = naming.Default{}
	}

	return r, nil
}

func newResolver(s naming.Strategy, v Visibility) *Resolver {
	return &Resolver{
		naming:     s,
		visibility: v,
		converters: make(map[string]convert.Converter),
		ctors:      make(map[reflect.Type][]*Constructor),
		factories:  make(map[reflect.Type]func() any),
		logger:     slog.Default(),
	}
}

func (r *Resolver) addConstructor(fn any, params []string, explicit bool) error {
	ctor, err := ParseConstructor(fn, params...)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}

	ctor.Explicit = explicit
	t := ctor.Creates()
	r.ctors[t] = append(r.ctors[t], ctor)

	return nil
}

type sharedKey struct {
	naming     naming.Strategy
	visibility Visibility
}

var shared sync.Map // sharedKey -> *Resolver

// Shared returns the process-wide resolver for a naming strategy and
// visibility, so contracts are cached per (type, strategy, visibility).
func Shared(s naming.Strategy, v Visibility) *Resolver {
	if s == nil {
		s = naming.Default{}
	}

	key := sharedKey{naming: s, visibility: v}
	if r, ok := shared.Load(key); ok {
		return r.(*Resolver)
	}

	r, _ := shared.LoadOrStore(key, newResolver(s, v))

	return r.(*Resolver)
}

// Default is the shared resolver with default naming and OptOut visibility.
func Default() *Resolver {
	return Shared(naming.Default{}, OptOut)
}

func (r *Resolver) Naming() naming.Strategy { return r.naming }

// Contract returns the contract of t, building it on first use. Concurrent
// first requests for one type build it once.
func (r *Resolver) Contract(t reflect.Type) (*Contract, error) {
	if t == nil {
		return nil, &BuildError{Err: fmt.Errorf("%w: nil type", ErrUnsupportedType)}
	}

	if c, ok := r.cache.Load(t); ok {
		return c.(*Contract), nil
	}

	c, err, _ := r.group.Do(fmt.Sprintf("%p", t), func() (any, error) {
		if c, ok := r.cache.Load(t); ok {
			return c, nil
		}

		c, err := r.build(t)
		if err != nil {
			return nil, err
		}

		r.cache.Store(t, c)
		r.logger.Debug("contract built", "type", t.String(), "kind", c.Kind.String(),
			"properties", len(c.Properties))

		return c, nil
	})
	if err != nil {
		return nil, err
	}

	return c.(*Contract), nil
}

// Reset drops every cached contract.
func (r *Resolver) Reset() {
	r.cache.Clear()
}

var (
	textMarshaler   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshaler = reflect.TypeFor[encoding.TextUnmarshaler]()
	dynamicMembers  = reflect.TypeFor[DynamicMembers]()
	convProvider    = reflect.TypeFor[ConverterProvider]()
	errorCallback   = reflect.TypeFor[ErrorCallback]()
	deserialized    = reflect.TypeFor[DeserializedCallback]()
	timeType        = reflect.TypeFor[time.Time]()
)

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// implements reports whether t or *t implements iface.
func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || (t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(iface))
}

func isStringLike(t reflect.Type) bool {
	return implements(t, textMarshaler) && implements(t, textUnmarshaler)
}

func (r *Resolver) build(t reflect.Type) (*Contract, error) {
	ct := deref(t)
	c := &Contract{
		UnderlyingType: t,
		CreatedType:    ct,
		NamingStrategy: r.naming,
	}

	if err := classify(c); err != nil {
		return nil, err
	}

	if c.Kind == KindObject || c.Kind == KindDynamic {
		if err := r.members(c); err != nil {
			return nil, err
		}
	}

	c.Factory = r.factories[ct]

	if c.Kind != KindInterface {
		if implements(ct, convProvider) {
			c.Converter = newInstance(ct).(ConverterProvider).Converter()
		}

		c.HasErrorCallback = implements(ct, errorCallback)
		c.HasDeserializedCallback = implements(ct, deserialized)
		selectCreators(c, r.ctors[ct])
	}

	for _, hook := range r.hooks {
		if err := hook(c); err != nil {
			return nil, &BuildError{Type: ct, Err: fmt.Errorf("%w: %w", ErrHook, err)}
		}
	}

	c.index()

	return c, nil
}

// newInstance returns *t when it has the method set, t otherwise.
func newInstance(t reflect.Type) any {
	v := reflect.New(t)
	if t.Implements(convProvider) {
		return v.Elem().Interface()
	}

	return v.Interface()
}

func classify(c *Contract) error {
	t := c.CreatedType

	switch {
	case t.Kind() == reflect.Interface:
		c.Kind = KindInterface
		return nil
	case t == timeType || t == reflect.TypeFor[time.Duration]():
		c.Kind, c.Primitive = KindPrimitive, primitive.Underlying(t)
		return nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 && !isStringLike(t):
		c.Kind, c.Primitive = KindPrimitive, primitive.KindBytes
		return nil
	case isStringLike(t):
		c.Kind = KindStringLike
		return nil
	}

	switch t.Kind() {
	case reflect.Struct:
		c.Kind = KindObject
		if implements(t, dynamicMembers) {
			c.Kind = KindDynamic
		}
	case reflect.Slice, reflect.Array:
		c.Kind, c.ElemType = KindArray, t.Elem()
	case reflect.Map:
		if !validKey(t.Key()) {
			return buildErr(t, "", ErrUnsupportedType, "dictionary key %s is not string-like", t.Key())
		}

		c.Kind, c.KeyType, c.ElemType = KindDictionary, t.Key(), t.Elem()
	default:
		kind := primitive.Underlying(t)
		if kind == 0 {
			return buildErr(t, "", ErrUnsupportedType, "%s values have no wire form", t.Kind())
		}

		c.Kind, c.Primitive = KindPrimitive, kind
	}

	return nil
}

func validKey(t reflect.Type) bool {
	if isStringLike(t) {
		return true
	}

	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
