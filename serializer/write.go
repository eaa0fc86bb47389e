package serializer

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"graph-serializer/contract"
	"graph-serializer/convert"
	"graph-serializer/options"
	"graph-serializer/primitive"
	"graph-serializer/reference"
	"graph-serializer/token"
)

const (
	keyID     = "$id"
	keyRef    = "$ref"
	keyType   = "$type"
	keyValues = "$values"
)

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// restore closes what a failed node left open so the writer is back at
// depth.
func (o *operation) restore(w token.Writer, depth int) error {
	if w.State() == token.StateProperty {
		if err := w.WriteNull(); err != nil {
			return err
		}
	}

	for w.Depth() > depth {
		if err := w.WriteEnd(); err != nil {
			return err
		}
	}

	return nil
}

// catchWrite is the catch site around one member, element or entry.
func (o *operation) catchWrite(w token.Writer, depth int, err error, c *contract.Contract, owner reflect.Value,
	member any, prop *contract.Property,
) error {
	if !o.handle(err, c, owner, member, prop) {
		return err
	}

	return o.wrap(KindStructural, o.restore(w, depth))
}

// writerConverter finds the converter claiming v ahead of any contract: the
// property's, then Settings.Converters.
func (o *operation) writerConverter(prop *contract.Property, v reflect.Value) convert.Converter {
	if prop != nil && prop.Converter != nil && prop.Converter.CanWrite() {
		return prop.Converter
	}

	if found, ok := o.settings.Converters.Writer(v.Type()); ok {
		return found
	}

	if found, ok := o.settings.Converters.Writer(deref(v.Type())); ok {
		return found
	}

	return nil
}

// writeConverted hands v to conv, dereferenced when conv claims the
// pointed-to type.
func (o *operation) writeConverted(w token.Writer, conv convert.Converter, v reflect.Value) error {
	value := v.Interface()

	if !conv.CanConvert(v.Type()) {
		base := v
		for base.Kind() == reflect.Pointer && !base.IsNil() {
			base = base.Elem()
		}

		value = base.Interface()
	}

	return o.wrap(KindConversion, conv.WriteValue(w, value, engine{o}))
}

// writeValue writes one node. declared is the static type of the slot
// holding v, nil at the root of a converter call.
func (o *operation) writeValue(w token.Writer, v reflect.Value, declared reflect.Type, prop *contract.Property) error {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}

	if isNil(v) {
		return o.wrap(KindStructural, w.WriteNull())
	}

	if conv := o.writerConverter(prop, v); conv != nil {
		return o.writeConverted(w, conv, v)
	}

	c, err := o.contract(v.Type())
	if err != nil {
		return err
	}

	if c.Converter != nil && c.Converter.CanWrite() {
		return o.writeConverted(w, c.Converter, v)
	}

	preserve := o.preserve(c, prop, v)

	var identity any
	if preserve {
		identity = o.identity(prop, v)
	}

	if preserve && o.refs.IsReferenced(identity) {
		return o.writeReference(w, o.refs.GetReference(identity))
	}

	base := v
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	switch c.Kind {
	case contract.KindPrimitive:
		scalar, err := primitive.Wire(base)
		if err != nil {
			return o.fail(KindConversion, err, "")
		}

		return o.wrap(KindConversion, w.WriteValue(scalar))
	case contract.KindStringLike:
		return o.writeText(w, base)
	}

	if err := o.enter(); err != nil {
		return err
	}
	defer o.leave()

	if key, ok := reference.KeyOf(v.Interface()); ok {
		o.ancestors = append(o.ancestors, key)
		defer func() { o.ancestors = o.ancestors[:len(o.ancestors)-1] }()
	}

	var id string
	if preserve {
		id = o.refs.GetReference(identity)
	}

	typeName, err := o.typeName(c, declared, prop)
	if err != nil {
		return err
	}

	switch c.Kind {
	case contract.KindArray:
		return o.writeArray(w, base, c, prop, id, typeName)
	case contract.KindDictionary:
		return o.writeDictionary(w, base, c, id, typeName)
	default:
		return o.writeObject(w, v, base, c, id, typeName)
	}
}

// identity returns the value the reference resolver sees for v. Members
// compared by value map every equal value to the first one written.
func (o *operation) identity(prop *contract.Property, v reflect.Value) any {
	value := v.Interface()
	if prop == nil || !prop.ValueEquality {
		return value
	}

	for _, seen := range o.equal {
		if reflect.TypeOf(seen) == v.Type() && reflect.DeepEqual(seen, value) {
			return seen
		}
	}

	o.equal = append(o.equal, value)

	return value
}

// enter counts one more open container.
func (o *operation) enter() error {
	o.depth++
	if o.settings.MaxDepth > 0 && o.depth > o.settings.MaxDepth {
		o.depth--
		return o.fail(KindDepthExceeded, nil, "the max depth of %d has been exceeded", o.settings.MaxDepth)
	}

	return nil
}

func (o *operation) leave() { o.depth-- }

func (o *operation) writeReference(w token.Writer, id string) error {
	return o.wrap(KindStructural, writeAll(
		w.WriteStartObject,
		func() error { return w.WritePropertyName(keyRef) },
		func() error { return w.WriteValue(id) },
		w.WriteEndObject,
	))
}

func writeAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	return nil
}

func (o *operation) writeText(w token.Writer, v reflect.Value) error {
	m, ok := callbackOf[encoding.TextMarshaler](v)
	if !ok {
		return o.fail(KindConversion, nil, "%s does not implement encoding.TextMarshaler", v.Type())
	}

	text, err := m.MarshalText()
	if err != nil {
		return o.fail(KindConversion, err, "")
	}

	return o.wrap(KindConversion, w.WriteValue(string(text)))
}

// preserve reports whether v takes part in $id / $ref.
func (o *operation) preserve(c *contract.Contract, prop *contract.Property, v reflect.Value) bool {
	var flag options.PreserveReferences

	switch c.Kind {
	case contract.KindObject, contract.KindDynamic, contract.KindDictionary:
		flag = options.PreserveObjects
	case contract.KindArray:
		flag = options.PreserveArrays
	default:
		return false
	}

	on := o.settings.PreserveReferences.Has(flag)
	if c.IsReference != nil {
		on = *c.IsReference
	}

	if prop != nil && prop.IsReference != nil {
		on = *prop.IsReference
	}

	if !on {
		return false
	}

	_, ok := reference.KeyOf(v.Interface())

	return ok
}

// generic types read back without a type tag
var generic = map[reflect.Type]bool{
	reflect.TypeFor[map[string]any](): true,
	reflect.TypeFor[[]any]():          true,
}

func (o *operation) typeName(c *contract.Contract, declared reflect.Type, prop *contract.Property) (string, error) {
	handling := o.settings.TypeNameHandling
	if prop != nil && prop.TypeNameHandling != nil {
		handling = *prop.TypeNameHandling
	}

	isArray := c.Kind == contract.KindArray

	var write bool

	switch handling {
	case options.TypeNameObjects:
		write = !isArray
	case options.TypeNameArrays:
		write = isArray
	case options.TypeNameAll:
		write = true
	case options.TypeNameAuto:
		write = declared != nil && deref(declared) != c.CreatedType && !generic[c.CreatedType]
	}

	if !write {
		return "", nil
	}

	name, err := o.settings.Binder.TypeToName(c.UnderlyingType)
	if err != nil {
		return "", o.fail(KindTypeResolution, err, "")
	}

	return name, nil
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

func (o *operation) writeMetadata(w token.Writer, id, typeName string) error {
	if id != "" {
		if err := writeAll(
			func() error { return w.WritePropertyName(keyID) },
			func() error { return w.WriteValue(id) },
		); err != nil {
			return err
		}
	}

	if typeName != "" {
		return writeAll(
			func() error { return w.WritePropertyName(keyType) },
			func() error { return w.WriteValue(typeName) },
		)
	}

	return nil
}

// onStack reports whether writing v would revisit a container being
// written, and how to proceed.
func (o *operation) onStack(v reflect.Value, c *contract.Contract, prop *contract.Property, member string) (bool, error) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}

	if isNil(v) {
		return true, nil
	}

	key, ok := reference.KeyOf(v.Interface())
	if !ok || !slices.Contains(o.ancestors, key) {
		return true, nil
	}

	if vc, err := o.contract(v.Type()); err == nil && o.preserve(vc, prop, v) {
		return true, nil
	}

	handling := o.settings.ReferenceLoopHandling
	if prop != nil && prop.ReferenceLoopHandling != nil {
		handling = *prop.ReferenceLoopHandling
	}

	switch handling {
	case options.LoopIgnore:
		o.log.DebugContext(o.ctx, "skipped self referencing loop", "path", o.path.String())
		return false, nil
	case options.LoopSerialize:
		return true, nil
	default:
		return false, o.fail(KindSelfReferencingLoop, nil,
			"self referencing loop detected for %s '%s' with type '%s'", memberKind(c), member, v.Type())
	}
}

func memberKind(c *contract.Contract) string {
	if c != nil && c.Kind == contract.KindArray {
		return "element"
	}

	return "property"
}

func (o *operation) writeObject(w token.Writer, v, base reflect.Value, c *contract.Contract, id, typeName string) error {
	if err := o.wrap(KindStructural, w.WriteStartObject()); err != nil {
		return err
	}

	if err := o.wrap(KindStructural, o.writeMetadata(w, id, typeName)); err != nil {
		return err
	}

	// owner is what error callbacks and ShouldSerialize see
	owner := v
	if v.Kind() != reflect.Pointer {
		owner = base
	}

	for _, p := range c.Properties {
		if err := o.writeProperty(w, owner, base, c, p); err != nil {
			return err
		}
	}

	if c.Kind == contract.KindDynamic {
		if err := o.writeDynamic(w, owner, c); err != nil {
			return err
		}
	}

	if c.ExtensionData != nil {
		if ext := c.ExtensionData.Field(base); ext.IsValid() && ext.Len() > 0 {
			if err := o.writeEntries(w, owner, c, ext, false); err != nil {
				return err
			}
		}
	}

	return o.wrap(KindStructural, w.WriteEndObject())
}

func (o *operation) writeProperty(w token.Writer, owner, base reflect.Value, c *contract.Contract, p *contract.Property) error {
	if p.Ignored || !p.Readable {
		return nil
	}

	fv := p.Field(base)
	if !fv.IsValid() {
		return nil
	}

	if p.ShouldSerialize != nil && !p.ShouldSerialize(base) {
		return nil
	}

	nulls := o.settings.NullValueHandling
	if p.NullValueHandling != nil {
		nulls = *p.NullValueHandling
	}

	if nulls == options.NullIgnore && isNil(fv) {
		return nil
	}

	defaults := o.settings.DefaultValueHandling
	if p.DefaultValueHandling != nil {
		defaults = *p.DefaultValueHandling
	}

	if defaults == options.DefaultIgnore && isEmpty(fv) {
		return nil
	}

	o.path.pushName(p.WireName)
	defer o.path.pop()

	depth := w.Depth()

	write, err := o.onStack(fv, c, p, p.WireName)
	if err != nil {
		return o.catchWrite(w, depth, err, c, owner, p.WireName, p)
	}

	if !write {
		return nil
	}

	if err := o.wrap(KindStructural, w.WritePropertyName(p.WireName)); err != nil {
		return err
	}

	if err := o.writeValue(w, fv, p.DeclaredType, p); err != nil {
		return o.catchWrite(w, depth, err, c, owner, p.WireName, p)
	}

	return nil
}

func (o *operation) writeDynamic(w token.Writer, owner reflect.Value, c *contract.Contract) error {
	members, ok := callbackOf[contract.DynamicMembers](owner)
	if !ok {
		return nil
	}

	for _, name := range members.MemberNames() {
		value, ok := members.GetMember(name)
		if !ok {
			continue
		}

		wire := c.NamingStrategy.PropertyName(name, false)
		if err := o.writeEntry(w, owner, c, wire, reflect.ValueOf(value), nil); err != nil {
			return err
		}
	}

	return nil
}

func (o *operation) writeEntry(w token.Writer, owner reflect.Value, c *contract.Contract, key string, v reflect.Value,
	declared reflect.Type,
) error {
	o.path.pushName(key)
	defer o.path.pop()

	depth := w.Depth()

	write, err := o.onStack(v, c, nil, key)
	if err != nil {
		return o.catchWrite(w, depth, err, c, owner, key, nil)
	}

	if !write {
		return nil
	}

	if err := o.wrap(KindStructural, w.WritePropertyName(key)); err != nil {
		return err
	}

	if err := o.writeValue(w, v, declared, nil); err != nil {
		return o.catchWrite(w, depth, err, c, owner, key, nil)
	}

	return nil
}

func (o *operation) writeArray(w token.Writer, v reflect.Value, c *contract.Contract, prop *contract.Property,
	id, typeName string,
) error {
	wrapped := id != "" || typeName != ""
	if wrapped {
		if err := o.wrap(KindStructural, writeAll(
			w.WriteStartObject,
			func() error { return o.writeMetadata(w, id, typeName) },
			func() error { return w.WritePropertyName(keyValues) },
		)); err != nil {
			return err
		}
	}

	if err := o.wrap(KindStructural, w.WriteStartArray()); err != nil {
		return err
	}

	for i := range v.Len() {
		if err := o.writeElement(w, v, c, prop, i); err != nil {
			return err
		}
	}

	if err := o.wrap(KindStructural, w.WriteEndArray()); err != nil {
		return err
	}

	if wrapped {
		return o.wrap(KindStructural, w.WriteEndObject())
	}

	return nil
}

func (o *operation) writeElement(w token.Writer, v reflect.Value, c *contract.Contract, prop *contract.Property, i int) error {
	o.path.pushIndex(i)
	defer o.path.pop()

	ev := v.Index(i)
	depth := w.Depth()

	// loop handling of the owning property applies to its elements
	var loop *contract.Property
	if prop != nil && prop.ReferenceLoopHandling != nil {
		loop = &contract.Property{ReferenceLoopHandling: prop.ReferenceLoopHandling}
	}

	write, err := o.onStack(ev, c, loop, strconv.Itoa(i))
	if err != nil {
		return o.catchWrite(w, depth, err, c, v, i, nil)
	}

	if !write {
		return nil
	}

	if err := o.writeValue(w, ev, c.ElemType, nil); err != nil {
		return o.catchWrite(w, depth, err, c, v, i, nil)
	}

	return nil
}

func (o *operation) writeDictionary(w token.Writer, v reflect.Value, c *contract.Contract, id, typeName string) error {
	if err := o.wrap(KindStructural, w.WriteStartObject()); err != nil {
		return err
	}

	if err := o.wrap(KindStructural, o.writeMetadata(w, id, typeName)); err != nil {
		return err
	}

	if err := o.writeEntries(w, v, c, v, true); err != nil {
		return err
	}

	return o.wrap(KindStructural, w.WriteEndObject())
}

// writeEntries writes map entries sorted by wire key. Dictionary keys go
// through the naming strategy, extension data keys do not.
func (o *operation) writeEntries(w token.Writer, owner reflect.Value, c *contract.Contract, m reflect.Value, rename bool) error {
	type entry struct {
		key   string
		value reflect.Value
	}

	entries := make([]entry, 0, m.Len())

	iter := m.MapRange()
	for iter.Next() {
		key, err := keyString(iter.Key())
		if err != nil {
			return o.fail(KindConversion, err, "")
		}

		if rename {
			key = c.NamingStrategy.DictionaryKey(key)
		}

		entries = append(entries, entry{key, iter.Value()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	declared := m.Type().Elem()
	for _, e := range entries {
		if err := o.writeEntry(w, owner, c, e.key, e.value, declared); err != nil {
			return err
		}
	}

	return nil
}

func keyString(k reflect.Value) (string, error) {
	if m, ok := callbackOf[encoding.TextMarshaler](k); ok && k.Kind() != reflect.String {
		text, err := m.MarshalText()
		return string(text), err
	}

	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("unsupported dictionary key type %s", k.Type())
	}
}
