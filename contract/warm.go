package contract

import "reflect"

// dealer hands out types still needing a contract, each once.
type dealer struct {
	needs []reflect.Type
	done  map[reflect.Type]struct{}
}

func (d *dealer) Needs(t reflect.Type) {
	if t == nil {
		return
	}

	if d.done == nil {
		d.done = make(map[reflect.Type]struct{})
	}

	if _, exists := d.done[t]; !exists {
		d.done[t] = struct{}{}
		d.needs = append(d.needs, t)
	}
}

func (d *dealer) NextNeeds() (reflect.Type, bool) {
	if len(d.needs) == 0 {
		return nil, false
	}

	t := d.needs[0]
	d.needs = d.needs[1:]

	return t, true
}

// Warm builds the contracts of types and of every type reachable through
// their properties, elements and values.
func (r *Resolver) Warm(types ...reflect.Type) error {
	var d dealer
	for _, t := range types {
		d.Needs(t)
	}

	for t, ok := d.NextNeeds(); ok; t, ok = d.NextNeeds() {
		c, err := r.Contract(t)
		if err != nil {
			return err
		}

		for _, p := range c.Properties {
			d.Needs(p.DeclaredType)
		}

		if c.ExtensionData != nil {
			d.Needs(c.ExtensionData.DeclaredType.Elem())
		}

		d.Needs(c.ElemType)
		d.Needs(c.KeyType)
	}

	return nil
}
