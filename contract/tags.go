package contract

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"graph-serializer/internal/common"
	"graph-serializer/options"
)

// tag is the parsed `json` and `graph` tags of a struct field.
type tag struct {
	name      string
	skip      bool
	tagged    bool
	omitEmpty bool
	omitNull  bool
	extension bool
	required  Required
	order     int
	hasOrder  bool
	ref       *bool
	refValue  bool
	typeName  *options.TypeNameHandling
	loop      *options.ReferenceLoopHandling
	converter string
}

func parseTag(field reflect.StructField) (tag, error) {
	var t tag

	if raw, ok := field.Tag.Lookup("json"); ok {
		t.tagged = true

		name, opts, _ := strings.Cut(raw, ",")
		if name == "-" && opts == "" {
			t.skip = true
			return t, nil
		}

		t.name = name

		for _, opt := range strings.Split(opts, ",") {
			if opt == "omitempty" {
				t.omitEmpty = true
			}
		}
	}

	raw, ok := field.Tag.Lookup("graph")
	if !ok {
		return t, nil
	}

	t.tagged = true

	name, opts, _ := strings.Cut(raw, ",")
	if name == "-" && opts == "" {
		t.skip = true
		return t, nil
	}

	if name != "" {
		t.name = name
	}

	if opts == "" {
		return t, nil
	}

	for _, opt := range strings.Split(opts, ",") {
		if err := t.apply(opt); err != nil {
			return t, fmt.Errorf("%w: %q: %w", ErrInvalidTag, opt, err)
		}
	}

	return t, nil
}

func (t *tag) apply(opt string) error {
	key, value := common.Pair(strings.SplitN(strings.TrimSpace(opt), "=", 2))

	switch key {
	case "omitempty":
		t.omitEmpty = true
	case "omitnull":
		t.omitNull = true
	case "extension":
		t.extension = true
	case "required":
		switch value {
		case "", "always":
			t.required = RequiredAlways
		case "allownull":
			t.required = RequiredAllowNull
		default:
			return fmt.Errorf("unknown required mode %q", value)
		}
	case "order":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		t.order, t.hasOrder = n, true
	case "ref":
		ref := true
		if value == "value" {
			t.refValue = true
		} else if value != "" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}

			ref = b
		}

		t.ref = &ref
	case "typename":
		h, err := options.ParseTypeNameHandling(value)
		if err != nil {
			return err
		}

		t.typeName = &h
	case "loop":
		h, err := options.ParseReferenceLoopHandling(value)
		if err != nil {
			return err
		}

		t.loop = &h
	case "converter":
		if value == "" {
			return fmt.Errorf("converter name is empty")
		}

		t.converter = value
	default:
		return fmt.Errorf("unknown option")
	}

	return nil
}
