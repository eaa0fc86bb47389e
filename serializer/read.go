package serializer

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"graph-serializer/contract"
	"graph-serializer/convert"
	"graph-serializer/internal/match"
	"graph-serializer/options"
	"graph-serializer/primitive"
	"graph-serializer/reference"
	"graph-serializer/token"
)

var (
	anyType       = reflect.TypeFor[any]()
	genericObject = reflect.TypeFor[map[string]any]()
	genericArray  = reflect.TypeFor[[]any]()
)

func (o *operation) next(r token.Reader) error {
	return o.wrap(KindStructural, token.Next(r))
}

func (o *operation) nextContent(r token.Reader) error {
	return o.wrap(KindStructural, token.NextContent(r))
}

func (o *operation) skip(r token.Reader) error {
	return o.wrap(KindStructural, token.Skip(r))
}

// catchRead offers err to the handlers and, when one recovers, moves the
// reader to the last token of the failed member so the caller can go on.
func (o *operation) catchRead(r token.Reader, depth int, err error, c *contract.Contract, owner reflect.Value,
	member any, prop *contract.Property,
) error {
	if !o.handle(err, c, owner, member, prop) {
		return err
	}

	if err := o.guard(err); err != nil {
		return err
	}

	return o.resync(r, depth)
}

func (o *operation) resync(r token.Reader, depth int) error {
	for {
		switch {
		case r.Depth() < depth:
			return nil
		case r.Depth() == depth && (r.Type() == token.PropertyName || r.Type().IsStart()):
			return o.skip(r)
		case r.Depth() == depth:
			return nil
		}

		if err := o.next(r); err != nil {
			return err
		}
	}
}

// fit adapts v to t, adding or removing one level of pointers. A nil v
// becomes the zero value of t.
func fit(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Zero(t), true
	}

	if v.Type().AssignableTo(t) {
		return v, true
	}

	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Zero(t), true
		}

		if out, ok := fit(v.Elem(), t); ok {
			return out, true
		}
	}

	if t.Kind() == reflect.Pointer && v.Type().AssignableTo(t.Elem()) {
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)

		return ptr, true
	}

	return reflect.Value{}, false
}

// readerConverter finds the converter claiming t ahead of any contract: the
// property's, then Settings.Converters.
func (o *operation) readerConverter(prop *contract.Property, t reflect.Type) convert.Converter {
	if prop != nil && prop.Converter != nil && prop.Converter.CanRead() {
		return prop.Converter
	}

	if conv, ok := o.settings.Converters.Reader(t); ok {
		return conv
	}

	if conv, ok := o.settings.Converters.Reader(deref(t)); ok {
		return conv
	}

	return nil
}

// readValue reads the value the reader is positioned on as a t, leaving the
// reader on the value's last token.
func (o *operation) readValue(r token.Reader, t reflect.Type, existing reflect.Value, prop *contract.Property) (reflect.Value, error) {
	return o.read(r, t, existing, prop, false)
}

func (o *operation) read(r token.Reader, t reflect.Type, existing reflect.Value, prop *contract.Property,
	force bool,
) (reflect.Value, error) {
	prev := o.reader
	o.reader = r

	defer func() { o.reader = prev }()

	if err := o.ctx.Err(); err != nil {
		return reflect.Value{}, err
	}

	if conv := o.readerConverter(prop, t); conv != nil {
		return o.readConverted(r, conv, t, existing)
	}

	c, err := o.contract(t)
	if err != nil {
		return reflect.Value{}, err
	}

	if c.Converter != nil && c.Converter.CanRead() {
		return o.readConverted(r, c.Converter, t, existing)
	}

	if r.Type() == token.Null {
		return reflect.Zero(t), nil
	}

	switch c.Kind {
	case contract.KindPrimitive:
		return o.readPrimitive(r, c, t)
	case contract.KindStringLike:
		return o.readText(r, c, t)
	}

	switch r.Type() {
	case token.StartObject:
		return o.readObjectValue(r, c, t, existing, force)
	case token.StartArray:
		return o.readArrayValue(r, c, t)
	default:
		if c.Kind == contract.KindInterface && t.NumMethod() == 0 && r.Type().IsScalar() {
			return reflect.ValueOf(r.Value()), nil
		}

		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), t)
	}
}

func (o *operation) readConverted(r token.Reader, conv convert.Converter, t reflect.Type,
	existing reflect.Value,
) (reflect.Value, error) {
	var current any
	if !isNil(existing) {
		current = interfaceOf(existing)
	}

	out, err := conv.ReadValue(r, t, current, engine{o})
	if err != nil {
		return reflect.Value{}, o.wrap(KindConversion, err)
	}

	v, ok := fit(reflect.ValueOf(out), t)
	if !ok {
		return reflect.Value{}, o.fail(KindConversion, nil, "converter %T returned %T, which is not assignable to %s",
			conv, out, t)
	}

	return v, nil
}

func (o *operation) readPrimitive(r token.Reader, c *contract.Contract, t reflect.Type) (reflect.Value, error) {
	if !r.Type().IsScalar() {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), t)
	}

	v, err := primitive.Coerce(r.Value(), c.CreatedType, o.settings.Coercions)
	if err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "")
	}

	out, _ := fit(v, t)

	return out, nil
}

func (o *operation) readText(r token.Reader, c *contract.Contract, t reflect.Type) (reflect.Value, error) {
	text, ok := r.Value().(string)
	if r.Type() != token.String || !ok {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), t)
	}

	ptr := reflect.New(c.CreatedType)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "could not convert string %q to %s: %v", text, t, err)
	}

	out, _ := fit(ptr, t)

	return out, nil
}

func (o *operation) reuse(existing reflect.Value, force bool) bool {
	return !isNil(existing) && (force || o.settings.ObjectCreationHandling != options.CreationReplace)
}

func (o *operation) readObjectValue(r token.Reader, c *contract.Contract, t reflect.Type, existing reflect.Value,
	force bool,
) (reflect.Value, error) {
	if err := o.enter(); err != nil {
		return reflect.Value{}, err
	}
	defer o.leave()

	meta, r, err := o.readMetadata(r)
	if err != nil {
		return reflect.Value{}, err
	}

	o.reader = r

	if meta.hasRef {
		return o.resolveReference(meta.ref, t)
	}

	rc := c

	if meta.hasType {
		rt, err := o.resolveType(meta.typeName, t)
		if err != nil {
			return reflect.Value{}, err
		}

		if rt != t {
			if rc, err = o.contract(rt); err != nil {
				return reflect.Value{}, err
			}

			if !existing.IsValid() || deref(existing.Type()) != rc.CreatedType {
				existing = reflect.Value{}
			}
		}
	}

	if rc.Kind == contract.KindInterface {
		switch {
		case o.reuse(existing, force) && existing.Kind() == reflect.Interface:
			existing = existing.Elem()
			rc, err = o.contract(existing.Type())
		case c.Factory != nil:
			existing = reflect.ValueOf(c.Factory())
			force = true
			rc, err = o.contract(existing.Type())
		case t.NumMethod() == 0 && meta.values:
			rc, err = o.contract(genericArray)
		case t.NumMethod() == 0:
			rc, err = o.contract(genericObject)
		default:
			err = o.fail(KindTypeResolution, nil,
				"could not create an instance of type %s, type is an interface and no type name was found", t)
		}

		if err != nil {
			return reflect.Value{}, err
		}
	}

	var v reflect.Value

	switch rc.Kind {
	case contract.KindObject, contract.KindDynamic:
		v, err = o.readObject(r, rc, existing, meta, force)
	case contract.KindDictionary:
		v, err = o.readDictionary(r, rc, existing, meta, force)
	case contract.KindArray:
		v, err = o.readWrappedArray(r, rc, meta)
	case contract.KindInterface:
		return reflect.Value{}, o.fail(KindTypeResolution, nil,
			"could not create an instance of type %s, type is an interface", rc.UnderlyingType)
	default:
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s",
			token.StartObject, rc.UnderlyingType)
	}

	if err != nil {
		return reflect.Value{}, err
	}

	out, ok := fit(v, t)
	if !ok {
		return reflect.Value{}, o.fail(KindTypeResolution, nil, "%s is not assignable to %s", v.Type(), t)
	}

	return out, nil
}

func (o *operation) resolveReference(id string, t reflect.Type) (reflect.Value, error) {
	target, ok := o.refs.ResolveReference(id)
	if !ok {
		return reflect.Value{}, o.fail(KindReferenceResolution, nil, "could not resolve reference '%s'", id)
	}

	v, ok := fit(reflect.ValueOf(target), t)
	if !ok {
		return reflect.Value{}, o.fail(KindReferenceResolution, nil,
			"reference '%s' points to a %T, which is not assignable to %s", id, target, t)
	}

	return v, nil
}

func (o *operation) addReference(id string, v reflect.Value) error {
	err := o.refs.AddReference(id, v.Interface())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reference.ErrNotReferenceable):
		// empty slices have no identity, nothing can point at them
		o.log.DebugContext(o.ctx, "reference id not registered", "id", id, "type", v.Type().String())
		return nil
	default:
		return o.fail(KindReferenceResolution, err, "")
	}
}

// resolveType maps a "$type" tag to the type to read for declared.
func (o *operation) resolveType(name string, declared reflect.Type) (reflect.Type, error) {
	rt, err := o.settings.Binder.NameToType(name)
	if err != nil {
		if o.settings.UnknownTypeHandling == options.UnknownTypeIgnore {
			o.log.WarnContext(o.ctx, "ignoring unknown type name", "type", name, "path", o.path.String())
			return declared, nil
		}

		return nil, o.fail(KindTypeResolution, err, "type specified in JSON '%s' was not resolved", name)
	}

	switch {
	case rt == declared || rt == deref(declared):
		return declared, nil
	case declared.Kind() != reflect.Interface:
	case rt.Kind() == reflect.Struct && reflect.PointerTo(rt).Implements(declared):
		return reflect.PointerTo(rt), nil
	case rt.Implements(declared):
		return rt, nil
	}

	return nil, o.fail(KindTypeResolution, nil, "type specified in JSON '%s' is not compatible with '%s'", name, declared)
}

// create returns a pointer to the value to populate.
func (o *operation) create(c *contract.Contract, creation contract.Creation, ctor *contract.Constructor,
	existing reflect.Value, force bool,
) (reflect.Value, error) {
	if o.reuse(existing, force) {
		switch {
		case existing.Kind() == reflect.Pointer && existing.Type().Elem() == c.CreatedType:
			return existing, nil
		case existing.Type() == c.CreatedType:
			ptr := reflect.New(c.CreatedType)
			ptr.Elem().Set(existing)

			return ptr, nil
		}
	}

	switch creation {
	case contract.CreateFactory:
		return o.created(reflect.ValueOf(c.Factory()), c)
	case contract.CreateDefault:
		v, err := ctor.Call(nil)
		if err != nil {
			return reflect.Value{}, o.fail(KindConversion, err, "constructor %s failed: %v", ctor, err)
		}

		return o.created(v, c)
	default:
		return reflect.New(c.CreatedType), nil
	}
}

func (o *operation) created(v reflect.Value, c *contract.Contract) (reflect.Value, error) {
	want := reflect.PointerTo(c.CreatedType)
	if out, ok := fit(v, want); ok && !out.IsNil() {
		return out, nil
	}

	return reflect.Value{}, o.fail(KindConversion, nil, "creator of %s returned %s", c.CreatedType, v.Type())
}

func (o *operation) creation(c *contract.Contract) (contract.Creation, *contract.Constructor, error) {
	creation, ctor, err := c.Creation(o.settings.ConstructorHandling == options.ConstructorAllowNonPublicDefault)
	if err != nil {
		return 0, nil, o.fail(KindContractBuild, err, "")
	}

	return creation, ctor, nil
}

// readObject reads the members of a struct. The reader is on the first
// member name or on EndObject. The result is a pointer.
func (o *operation) readObject(r token.Reader, c *contract.Contract, existing reflect.Value, meta metadata,
	force bool,
) (reflect.Value, error) {
	if meta.values {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s property when reading %s",
			keyValues, c.UnderlyingType)
	}

	creation, ctor, err := o.creation(c)
	if err != nil {
		return reflect.Value{}, err
	}

	if creation == contract.CreateParameterized {
		return o.readParameterized(r, c, ctor, meta)
	}

	target, err := o.create(c, creation, ctor, existing, force)
	if err != nil {
		return reflect.Value{}, err
	}

	if meta.hasID {
		if err := o.addReference(meta.id, target); err != nil {
			return reflect.Value{}, err
		}
	}

	seen := make(map[*contract.Property]bool)

	for r.Type() == token.PropertyName {
		name, _ := r.Value().(string)
		depth := r.Depth()

		o.path.pushName(name)
		p, err := o.readMember(r, c, target, name, seen)
		o.path.pop()

		if err != nil {
			if err := o.catchRead(r, depth, err, c, target, name, p); err != nil {
				return reflect.Value{}, err
			}
		}

		if err := o.nextContent(r); err != nil {
			return reflect.Value{}, err
		}
	}

	if err := o.finishObject(r, c, target, seen); err != nil {
		return reflect.Value{}, err
	}

	return target, nil
}

// readMember reads one member into target. It returns the property the
// member is bound to, if any.
func (o *operation) readMember(r token.Reader, c *contract.Contract, target reflect.Value, name string,
	seen map[*contract.Property]bool,
) (*contract.Property, error) {
	p, ok := c.Property(name)
	if !ok {
		return nil, o.readUnknown(r, c, target, name, func() reflect.Value {
			return c.ExtensionData.FieldForSet(target.Elem())
		})
	}

	seen[p] = true

	if err := o.nextContent(r); err != nil {
		return p, err
	}

	field := p.FieldForSet(target.Elem())
	if !p.Writable || !field.IsValid() || (p.ShouldDeserialize != nil && !p.ShouldDeserialize(target.Elem())) {
		return p, o.skip(r)
	}

	v, err := o.readProperty(r, p, field)
	if err != nil {
		return p, err
	}

	field.Set(v)

	return p, nil
}

func (o *operation) readProperty(r token.Reader, p *contract.Property, existing reflect.Value) (reflect.Value, error) {
	if r.Type() == token.Null && p.Required == contract.RequiredAlways {
		return reflect.Value{}, o.fail(KindStructural, nil, "required property '%s' expects a non-null value", p.WireName)
	}

	return o.readValue(r, p.DeclaredType, existing, p)
}

// readUnknown handles a member without a property: extension data, dynamic
// members, then MissingMemberHandling. The reader is on the member name.
func (o *operation) readUnknown(r token.Reader, c *contract.Contract, target reflect.Value, name string,
	extension func() reflect.Value,
) error {
	switch {
	case c.ExtensionData != nil:
		ext := extension()
		if !ext.IsValid() {
			return o.skip(r)
		}

		if err := o.nextContent(r); err != nil {
			return err
		}

		v, err := o.readValue(r, ext.Type().Elem(), reflect.Value{}, nil)
		if err != nil {
			return err
		}

		if ext.IsNil() {
			ext.Set(reflect.MakeMap(ext.Type()))
		}

		ext.SetMapIndex(reflect.ValueOf(name).Convert(ext.Type().Key()), v)

		return nil
	case c.Kind == contract.KindDynamic && target.IsValid():
		if err := o.nextContent(r); err != nil {
			return err
		}

		v, err := o.readValue(r, anyType, reflect.Value{}, nil)
		if err != nil {
			return err
		}

		dm, ok := callbackOf[contract.DynamicMembers](target)
		if !ok {
			return o.skip(r)
		}

		return o.wrap(KindConversion, dm.SetMember(name, interfaceOf(v)))
	case o.settings.MissingMemberHandling == options.MissingMemberError:
		msg := fmt.Sprintf("could not find member '%s' on object of type '%s'", name, c.CreatedType.Name())
		if best, ok := match.Suggest(name, c.Names()); ok {
			msg += fmt.Sprintf(" (did you mean '%s'?)", best)
		}

		return o.fail(KindStructural, nil, "%s", msg)
	default:
		return o.skip(r)
	}
}

// finishObject checks the closing token and required members, then runs the
// deserialized callback.
func (o *operation) finishObject(r token.Reader, c *contract.Contract, target reflect.Value,
	seen map[*contract.Property]bool,
) error {
	if r.Type() != token.EndObject {
		return o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), c.UnderlyingType)
	}

	for _, p := range c.Properties {
		if p.Ignored || p.Required == contract.RequiredDefault || seen[p] {
			continue
		}

		err := o.fail(KindStructural, nil, "required property '%s' not found in JSON", p.WireName)
		if err := o.catchRead(r, r.Depth(), err, c, target, p.WireName, p); err != nil {
			return err
		}
	}

	if !c.HasDeserializedCallback {
		return nil
	}

	cb, ok := callbackOf[contract.DeserializedCallback](target)
	if !ok {
		return nil
	}

	if err := cb.OnDeserialized(); err != nil {
		return o.fail(KindConversion, err, "deserialized callback of %s failed: %v", c.UnderlyingType, err)
	}

	return nil
}

// readParameterized buffers the members, then calls the constructor with
// the ones bound to its parameters and sets the rest afterwards.
func (o *operation) readParameterized(r token.Reader, c *contract.Contract, ctor *contract.Constructor,
	meta metadata,
) (reflect.Value, error) {
	type assignment struct {
		p *contract.Property
		v reflect.Value
	}

	var (
		args  = make([]reflect.Value, len(ctor.Params))
		later []assignment
		ext   reflect.Value
		seen  = make(map[*contract.Property]bool)
	)

	if c.ExtensionData != nil {
		ext = reflect.New(c.ExtensionData.DeclaredType).Elem()
	}

	for r.Type() == token.PropertyName {
		name, _ := r.Value().(string)
		depth := r.Depth()

		o.path.pushName(name)
		p, err := o.readArgument(r, c, ctor, name, args, func(p *contract.Property, v reflect.Value) {
			later = append(later, assignment{p, v})
		}, ext)
		o.path.pop()

		if p != nil {
			seen[p] = true
		}

		if err != nil {
			if err := o.catchRead(r, depth, err, c, reflect.Value{}, name, p); err != nil {
				return reflect.Value{}, err
			}
		}

		if err := o.nextContent(r); err != nil {
			return reflect.Value{}, err
		}
	}

	result, err := ctor.Call(args)
	if err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "constructor %s failed: %v", ctor, err)
	}

	target, err := o.created(result, c)
	if err != nil {
		return reflect.Value{}, err
	}

	if meta.hasID {
		if err := o.addReference(meta.id, target); err != nil {
			return reflect.Value{}, err
		}
	}

	for _, a := range later {
		if field := a.p.FieldForSet(target.Elem()); field.IsValid() {
			field.Set(a.v)
		}
	}

	if ext.IsValid() && ext.Len() > 0 {
		if field := c.ExtensionData.FieldForSet(target.Elem()); field.IsValid() {
			field.Set(ext)
		}
	}

	return target, o.finishObject(r, c, target, seen)
}

func (o *operation) readArgument(r token.Reader, c *contract.Contract, ctor *contract.Constructor, name string,
	args []reflect.Value, assign func(*contract.Property, reflect.Value), ext reflect.Value,
) (*contract.Property, error) {
	p, hasProp := c.Property(name)

	idx, isParam := ctor.Param(name)
	if !isParam && hasProp {
		idx, isParam = ctor.Param(p.UnderlyingName)
	}

	if !hasProp && !isParam {
		return nil, o.readUnknown(r, c, reflect.Value{}, name, func() reflect.Value {
			if ext.IsValid() && ext.IsNil() {
				ext.Set(reflect.MakeMap(ext.Type()))
			}

			return ext
		})
	}

	if err := o.nextContent(r); err != nil {
		return p, err
	}

	if !isParam {
		if !p.Writable {
			return p, o.skip(r)
		}

		v, err := o.readProperty(r, p, reflect.Value{})
		if err == nil {
			assign(p, v)
		}

		return p, err
	}

	param := ctor.Params[idx]
	if !hasProp {
		v, err := o.readValue(r, param.Type, reflect.Value{}, nil)
		if err == nil {
			args[idx] = v
		}

		return nil, err
	}

	v, err := o.readProperty(r, p, reflect.Value{})
	if err != nil {
		return p, err
	}

	if args[idx], err = o.argument(v, param.Type); err != nil {
		return p, err
	}

	return p, nil
}

// argument converts a property value to the type of the constructor
// parameter it is bound to.
func (o *operation) argument(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if out, ok := fit(v, t); ok {
		return out, nil
	}

	if !primitive.IsScalar(v.Type()) {
		return reflect.Value{}, o.fail(KindConversion, nil, "cannot pass %s as parameter of type %s", v.Type(), t)
	}

	wire, err := primitive.Wire(v)
	if err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "")
	}

	if f, ok := wire.(float32); ok {
		wire = float64(f)
	}

	out, err := primitive.Coerce(wire, t, o.settings.Coercions)
	if err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "")
	}

	return out, nil
}

func (o *operation) readArrayValue(r token.Reader, c *contract.Contract, t reflect.Type) (reflect.Value, error) {
	if err := o.enter(); err != nil {
		return reflect.Value{}, err
	}
	defer o.leave()

	switch {
	case c.Kind == contract.KindArray:
	case c.Kind == contract.KindInterface && t.NumMethod() == 0:
		var err error
		if c, err = o.contract(genericArray); err != nil {
			return reflect.Value{}, err
		}
	default:
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), t)
	}

	v, err := o.readArray(r, c, metadata{})
	if err != nil {
		return reflect.Value{}, err
	}

	out, _ := fit(v, t)

	return out, nil
}

// readWrappedArray reads the "$values" member of an array written with
// metadata. The reader is on the "$values" name.
func (o *operation) readWrappedArray(r token.Reader, c *contract.Contract, meta metadata) (reflect.Value, error) {
	if !meta.values {
		return reflect.Value{}, o.fail(KindStructural, nil, "cannot read %s from an object without %s",
			c.UnderlyingType, keyValues)
	}

	o.path.pushName(keyValues)

	if err := o.nextContent(r); err != nil {
		o.path.pop()
		return reflect.Value{}, err
	}

	if r.Type() != token.StartArray {
		defer o.path.pop()
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token for %s", r.Type(), keyValues)
	}

	v, err := o.readArray(r, c, meta)

	o.path.pop()

	if err != nil {
		return reflect.Value{}, err
	}

	if err := o.nextContent(r); err != nil {
		return reflect.Value{}, err
	}

	if r.Type() != token.EndObject {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token after %s", r.Type(), keyValues)
	}

	return v, nil
}

// readArray reads the elements of a slice or array. The reader is on
// StartArray. Elements whose errors were handled are left out.
func (o *operation) readArray(r token.Reader, c *contract.Contract, meta metadata) (reflect.Value, error) {
	creation, ctor, err := o.creation(c)
	if err != nil {
		return reflect.Value{}, err
	}

	fixed := c.CreatedType.Kind() == reflect.Array
	if meta.hasID && (fixed || creation == contract.CreateCollection) {
		return reflect.Value{}, o.fail(KindReferenceResolution, nil,
			"cannot preserve reference to array or readonly list, or list created from a non-default constructor: %s",
			c.UnderlyingType)
	}

	var out reflect.Value

	switch {
	case fixed:
		out = reflect.New(c.CreatedType).Elem()
	case creation == contract.CreateCollection:
		out = reflect.MakeSlice(reflect.SliceOf(c.ElemType), 0, 0)
	default:
		out = reflect.MakeSlice(c.CreatedType, 0, 0)
	}

	for i := 0; ; i++ {
		if err := o.nextContent(r); err != nil {
			return reflect.Value{}, err
		}

		if r.Type() == token.EndArray {
			break
		}

		depth := r.Depth()

		o.path.pushIndex(i)
		v, err := o.readValue(r, c.ElemType, reflect.Value{}, nil)
		if err != nil {
			err = o.catchRead(r, depth, err, c, reflect.Value{}, i, nil)
		}
		o.path.pop()

		if err != nil {
			return reflect.Value{}, err
		}

		if !v.IsValid() {
			continue
		}

		switch {
		case !fixed:
			out = reflect.Append(out, v)
		case i < out.Len():
			out.Index(i).Set(v)
		}
	}

	if creation == contract.CreateCollection {
		return o.collect(c, ctor, out)
	}

	if meta.hasID {
		if err := o.addReference(meta.id, out); err != nil {
			return reflect.Value{}, err
		}
	}

	return out, nil
}

func (o *operation) collect(c *contract.Contract, ctor *contract.Constructor, items reflect.Value) (reflect.Value, error) {
	v, err := ctor.Call([]reflect.Value{items})
	if err != nil {
		return reflect.Value{}, o.fail(KindConversion, err, "constructor %s failed: %v", ctor, err)
	}

	out, ok := fit(v, c.CreatedType)
	if !ok {
		return reflect.Value{}, o.fail(KindConversion, nil, "constructor %s does not create %s", ctor, c.CreatedType)
	}

	return out, nil
}

// readDictionary reads map entries. The reader is on the first entry name or
// on EndObject.
func (o *operation) readDictionary(r token.Reader, c *contract.Contract, existing reflect.Value, meta metadata,
	force bool,
) (reflect.Value, error) {
	if meta.values {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s property when reading %s",
			keyValues, c.UnderlyingType)
	}

	creation, ctor, err := o.creation(c)
	if err != nil {
		return reflect.Value{}, err
	}

	if meta.hasID && creation == contract.CreateCollection {
		return reflect.Value{}, o.fail(KindReferenceResolution, nil,
			"cannot preserve reference to a dictionary created from a non-default constructor: %s", c.UnderlyingType)
	}

	for existing.IsValid() && existing.Kind() == reflect.Pointer && !existing.IsNil() {
		existing = existing.Elem()
	}

	var m reflect.Value

	switch {
	case creation == contract.CreateCollection:
		m = reflect.MakeMap(reflect.MapOf(c.KeyType, c.ElemType))
	case o.reuse(existing, force) && existing.Type() == c.CreatedType:
		m = existing
	case creation == contract.CreateFactory:
		ptr, err := o.created(reflect.ValueOf(c.Factory()), c)
		if err != nil {
			return reflect.Value{}, err
		}

		if m = ptr.Elem(); m.IsNil() {
			m = reflect.MakeMap(c.CreatedType)
		}
	default:
		m = reflect.MakeMap(c.CreatedType)
	}

	if meta.hasID {
		if err := o.addReference(meta.id, m); err != nil {
			return reflect.Value{}, err
		}
	}

	for r.Type() == token.PropertyName {
		name, _ := r.Value().(string)
		depth := r.Depth()

		o.path.pushName(name)
		err := o.readEntry(r, c, m, name)
		o.path.pop()

		if err != nil {
			if err := o.catchRead(r, depth, err, c, m, name, nil); err != nil {
				return reflect.Value{}, err
			}
		}

		if err := o.nextContent(r); err != nil {
			return reflect.Value{}, err
		}
	}

	if r.Type() != token.EndObject {
		return reflect.Value{}, o.fail(KindStructural, nil, "unexpected %s token when reading %s", r.Type(), c.UnderlyingType)
	}

	if creation == contract.CreateCollection {
		return o.collect(c, ctor, m)
	}

	return m, nil
}

func (o *operation) readEntry(r token.Reader, c *contract.Contract, m reflect.Value, name string) error {
	key, err := mapKey(name, c.KeyType)
	if err != nil {
		return o.fail(KindConversion, err, "could not convert string '%s' to dictionary key type '%s'", name, c.KeyType)
	}

	if err := o.nextContent(r); err != nil {
		return err
	}

	v, err := o.readValue(r, c.ElemType, reflect.Value{}, nil)
	if err != nil {
		return err
	}

	m.SetMapIndex(key, v)

	return nil
}

// mapKey parses a wire key the way keyString formats it.
func mapKey(s string, t reflect.Type) (reflect.Value, error) {
	key := reflect.New(t).Elem()

	if u, ok := key.Addr().Interface().(encoding.TextUnmarshaler); ok && t.Kind() != reflect.String {
		return key, u.UnmarshalText([]byte(s))
	}

	switch t.Kind() {
	case reflect.String:
		key.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return key, err
		}

		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return key, err
		}

		key.SetUint(n)
	default:
		return key, fmt.Errorf("unsupported key type %s", t)
	}

	return key, nil
}
