package contract

import (
	"reflect"
	"slices"
	"sort"

	"graph-serializer/options"
)

type walker struct {
	r       *Resolver
	owner   reflect.Type
	found   []*Property
	ext     *Property
	visited map[reflect.Type]bool
}

// members discovers the properties of a struct contract. Embedded structs
// are flattened; on a name clash the shallowest member wins and two members
// at the same depth are an error.
func (r *Resolver) members(c *Contract) error {
	w := &walker{r: r, owner: c.CreatedType, visited: map[reflect.Type]bool{}}
	if err := w.walk(c.CreatedType, nil, 0, true); err != nil {
		return err
	}

	props, err := dedupe(c.CreatedType, w.found)
	if err != nil {
		return err
	}

	sort.SliceStable(props, func(i, j int) bool {
		a, b := props[i], props[j]
		switch {
		case a.HasOrder && b.HasOrder:
			return a.Order < b.Order
		case a.HasOrder != b.HasOrder:
			return a.HasOrder
		default:
			return a.declared < b.declared
		}
	})

	c.Properties = props
	c.ExtensionData = w.ext

	return nil
}

func (w *walker) walk(t reflect.Type, index []int, depth int, settable bool) error {
	w.visited[t] = true
	defer delete(w.visited, t)

	for i := range t.NumField() {
		f := t.Field(i)

		tg, err := parseTag(f)
		if err != nil {
			return &BuildError{Type: w.owner, Member: f.Name, Err: err}
		}

		if tg.skip {
			continue
		}

		idx := append(slices.Clone(index), i)

		if f.Anonymous {
			et := deref(f.Type)
			if et.Kind() == reflect.Struct && tg.name == "" && !tg.extension {
				if w.visited[et] {
					continue
				}

				// fields behind an unexported embedded pointer cannot be allocated
				inner := settable && (f.IsExported() || f.Type.Kind() != reflect.Pointer)
				if err := w.walk(et, idx, depth+1, inner); err != nil {
					return err
				}

				continue
			}
		}

		if !f.IsExported() {
			continue
		}

		if w.r.visibility == OptIn && !tg.tagged {
			continue
		}

		if tg.extension {
			if err := w.extension(f, idx, depth); err != nil {
				return err
			}

			continue
		}

		p, err := w.property(f, tg, idx, depth, settable)
		if err != nil {
			return err
		}

		w.found = append(w.found, p)
	}

	return nil
}

func (w *walker) extension(f reflect.StructField, idx []int, depth int) error {
	if f.Type.Kind() != reflect.Map || f.Type.Key().Kind() != reflect.String {
		return buildErr(w.owner, f.Name, ErrExtensionData, "%s is not a map with string keys", f.Type)
	}

	if w.ext != nil && w.ext.depth <= depth {
		return nil
	}

	w.ext = &Property{
		UnderlyingName: f.Name,
		Index:          idx,
		DeclaredType:   f.Type,
		Readable:       true,
		Writable:       true,
		depth:          depth,
	}

	return nil
}

func (w *walker) property(f reflect.StructField, tg tag, idx []int, depth int, settable bool) (*Property, error) {
	name, explicit := f.Name, false
	if tg.name != "" {
		name, explicit = tg.name, true
	}

	p := &Property{
		WireName:              w.r.naming.PropertyName(name, explicit),
		UnderlyingName:        f.Name,
		Index:                 idx,
		DeclaredType:          f.Type,
		Required:              tg.required,
		Readable:              true,
		Writable:              settable,
		Order:                 tg.order,
		HasOrder:              tg.hasOrder,
		HasExplicitName:       explicit,
		IsReference:           tg.ref,
		ValueEquality:         tg.refValue,
		TypeNameHandling:      tg.typeName,
		ReferenceLoopHandling: tg.loop,
		declared:              len(w.found),
		depth:                 depth,
	}

	if tg.omitEmpty {
		h := options.DefaultIgnore
		p.DefaultValueHandling = &h
	}

	if tg.omitNull {
		h := options.NullIgnore
		p.NullValueHandling = &h
	}

	if tg.converter != "" {
		conv, ok := w.r.converters[tg.converter]
		if !ok {
			return nil, buildErr(w.owner, f.Name, ErrInvalidTag, "unknown converter %q", tg.converter)
		}

		p.Converter = conv
	}

	p.ShouldSerialize = shouldSerialize(w.owner, f.Name)

	return p, nil
}

// shouldSerialize finds a `ShouldSerialize<Field>() bool` method on owner
// or *owner.
func shouldSerialize(owner reflect.Type, field string) func(reflect.Value) bool {
	name := "ShouldSerialize" + field

	m, ok := reflect.PointerTo(owner).MethodByName(name)
	if !ok || m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0).Kind() != reflect.Bool {
		return nil
	}

	return func(v reflect.Value) bool {
		if !v.CanAddr() {
			ptr := reflect.New(v.Type())
			ptr.Elem().Set(v)
			v = ptr.Elem()
		}

		return m.Func.Call([]reflect.Value{v.Addr()})[0].Bool()
	}
}

func dedupe(owner reflect.Type, found []*Property) ([]*Property, error) {
	byName := make(map[string][]*Property, len(found))
	for _, p := range found {
		byName[p.WireName] = append(byName[p.WireName], p)
	}

	out := make([]*Property, 0, len(found))

	for _, p := range found {
		group := byName[p.WireName]

		minDepth := group[0].depth
		for _, q := range group {
			minDepth = min(minDepth, q.depth)
		}

		shallowest := 0
		for _, q := range group {
			if q.depth == minDepth {
				shallowest++
			}
		}

		if shallowest > 1 {
			return nil, buildErr(owner, p.UnderlyingName, ErrDuplicateMember, "%q is declared %d times", p.WireName, shallowest)
		}

		if p.depth == minDepth {
			out = append(out, p)
		}
	}

	return out, nil
}
