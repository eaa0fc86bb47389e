package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"graph-serializer/binder"
	"graph-serializer/internal/common"
	"graph-serializer/internal/diagnostic"
	"graph-serializer/internal/match"
	"graph-serializer/naming"
	"graph-serializer/options"
	"graph-serializer/primitive"
	"graph-serializer/serializer"
)

// ErrInvalid is returned by Apply for documents with validation errors.
var ErrInvalid = errors.New("config: invalid document")

var categories = map[string]primitive.CategoryEnum{
	"none":          primitive.CategoryNone,
	"all":           primitive.CategoryAll,
	"default":       primitive.DefaultCategories,
	"safe_number":   primitive.CategorySafeNumber,
	"unsafe_number": primitive.CategoryUnsafeNumber,
	"text_number":   primitive.CategoryTextNumber,
	"numeric_bool":  primitive.CategoryNumericBool,
	"textual_bool":  primitive.CategoryTextualBool,
	"datetime":      primitive.CategoryDatetime,
	"timestamp":     primitive.CategoryTimestamp,
	"duration":      primitive.CategoryDuration,
	"nanoseconds":   primitive.CategoryNanoseconds,
	"seconds":       primitive.CategorySeconds,
	"base64":        primitive.CategoryBase64,
}

var strategies = map[string]func(naming.Options) naming.Strategy{
	"default": func(naming.Options) naming.Strategy { return naming.Default{} },
	"camel":   func(o naming.Options) naming.Strategy { return naming.CamelCase{Options: o} },
	"snake":   func(o naming.Options) naming.Strategy { return naming.SnakeCase{Options: o} },
	"kebab":   func(o naming.Options) naming.Strategy { return naming.KebabCase{Options: o} },
}

// Validate checks every key of d. Alias targets are resolved against reg.
func (d *Document) Validate(reg *binder.Registry) *diagnostic.Diagnostics {
	diags := &diagnostic.Diagnostics{}

	scratch := serializer.DefaultSettings()
	d.apply(&scratch, diags)
	d.checkAliases(reg, diags)

	return diags
}

// Apply validates d and copies its values into s, binding aliases in reg.
// A naming block resets s.Contracts so the resolver for the new strategy
// is picked up.
func (d *Document) Apply(s *serializer.Settings, reg *binder.Registry) error {
	if err := d.Validate(reg).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	d.apply(s, &diagnostic.Diagnostics{})

	for _, a := range d.Aliases {
		t, _ := reg.NameToType(a.Type)
		reg.Alias(a.Name, t)
	}

	if reg != nil {
		s.Binder = reg
	}

	return nil
}

func (d *Document) apply(s *serializer.Settings, diags *diagnostic.Diagnostics) {
	if d.Version != "1" {
		diags.AddError("unsupported_version", "version", "unsupported version %q", d.Version)
	}

	set(diags, "type_name_handling", d.TypeNameHandling, options.ParseTypeNameHandling, &s.TypeNameHandling)
	set(diags, "preserve_references", d.PreserveReferences, options.ParsePreserveReferences, &s.PreserveReferences)
	set(diags, "reference_loop_handling", d.ReferenceLoopHandling, options.ParseReferenceLoopHandling,
		&s.ReferenceLoopHandling)
	set(diags, "missing_member_handling", d.MissingMemberHandling, options.ParseMissingMemberHandling,
		&s.MissingMemberHandling)
	set(diags, "null_value_handling", d.NullValueHandling, options.ParseNullValueHandling, &s.NullValueHandling)
	set(diags, "default_value_handling", d.DefaultValueHandling, options.ParseDefaultValueHandling,
		&s.DefaultValueHandling)
	set(diags, "metadata_handling", d.MetadataHandling, options.ParseMetadataHandling, &s.MetadataHandling)
	set(diags, "constructor_handling", d.ConstructorHandling, options.ParseConstructorHandling,
		&s.ConstructorHandling)
	set(diags, "object_creation_handling", d.ObjectCreationHandling, options.ParseObjectCreationHandling,
		&s.ObjectCreationHandling)
	set(diags, "unknown_type_handling", d.UnknownTypeHandling, options.ParseUnknownTypeHandling,
		&s.UnknownTypeHandling)

	if d.MaxDepth != nil {
		switch depth := *d.MaxDepth; {
		case depth < 0:
			diags.AddError("invalid_value", "max_depth", "max depth must not be negative, got %d", depth)
		case depth == 0:
			diags.AddWarning("unlimited_depth", "max_depth", "max depth 0 disables the depth limit")
			s.MaxDepth = 0
		default:
			s.MaxDepth = depth
		}
	}

	if listed := common.Filter(d.Coercions, func(n string) bool { return strings.TrimSpace(n) != "" }); len(listed) > 0 {
		s.Coercions = coercions(listed, diags)
	}

	if d.Naming != nil {
		d.Naming.apply(s, diags)
	}
}

func (n *Naming) apply(s *serializer.Settings, diags *diagnostic.Diagnostics) {
	strategy, ok := strategies[strings.ToLower(n.Strategy)]
	if !ok {
		e := diags.AddError("invalid_value", "naming.strategy", "unknown naming strategy %q", n.Strategy)
		e.Suggestion, _ = match.Suggest(n.Strategy, keys(strategies))

		return
	}

	s.Naming = strategy(naming.Options{
		OverrideSpecified:     n.OverrideSpecified,
		ProcessDictionaryKeys: n.ProcessDictionaryKeys,
	})
	s.Contracts = nil
}

func coercions(names []string, diags *diagnostic.Diagnostics) primitive.CategoryEnum {
	var out primitive.CategoryEnum

	for _, name := range names {
		c, ok := categories[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			e := diags.AddError("invalid_value", "coercions", "unknown coercion category %q", name)
			e.Suggestion, _ = match.Suggest(name, keys(categories))

			continue
		}

		out |= c
	}

	return out
}

func (d *Document) checkAliases(reg *binder.Registry, diags *diagnostic.Diagnostics) {
	if len(d.Aliases) == 0 {
		return
	}

	if reg == nil {
		diags.AddError("no_registry", "aliases", "aliases need a type registry")
		return
	}

	seen := make(map[string]struct{}, len(d.Aliases))

	for i, a := range d.Aliases {
		key := fmt.Sprintf("aliases[%d]", i)

		if a.Name == "" {
			diags.AddError("missing_name", key, "alias has no name")
			continue
		}

		if _, dup := seen[a.Name]; dup {
			diags.AddError("duplicate_alias", key, "duplicate alias %q", a.Name)
			continue
		}

		seen[a.Name] = struct{}{}

		if _, err := reg.NameToType(a.Type); err != nil {
			diags.AddError("unknown_type", key, "alias %q: %v", a.Name, err)
		}
	}
}

func set[E interface {
	~int
	fmt.Stringer
}](diags *diagnostic.Diagnostics, key, value string, parse func(string) (E, error), dst *E) {
	if value == "" {
		return
	}

	v, err := parse(value)
	if err != nil {
		e := diags.AddError("invalid_value", key, "%v", err)
		e.Suggestion, _ = match.Suggest(value, names[E]())

		return
	}

	*dst = v
}

// names lists the String forms of the small int enums in options.
func names[E interface {
	~int
	fmt.Stringer
}]() []string {
	var out []string

	for i := range 8 {
		if n := E(i).String(); n != common.UnknownStr {
			out = append(out, n)
		}
	}

	return out
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
