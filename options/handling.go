// Package options holds the policy enums that steer the graph engine.
//
// Every enum has a String method and a Parse function so settings can be
// loaded from configuration documents.
package options

import (
	"fmt"
	"strings"

	"graph-serializer/internal/common"
)

// TypeNameHandling controls when "$type" tags are written.
type TypeNameHandling int

const (
	TypeNameNone    TypeNameHandling = iota // never write type tags
	TypeNameObjects                         // tag objects and dictionaries
	TypeNameArrays                          // tag arrays
	TypeNameAll                             // tag every object, dictionary and array
	TypeNameAuto                            // tag when the runtime type differs from the declared one
)

func (h TypeNameHandling) String() string {
	switch h {
	case TypeNameNone:
		return "none"
	case TypeNameObjects:
		return "objects"
	case TypeNameArrays:
		return "arrays"
	case TypeNameAll:
		return "all"
	case TypeNameAuto:
		return "auto"
	default:
		return common.UnknownStr
	}
}

// ParseTypeNameHandling parses the String form of a TypeNameHandling.
func ParseTypeNameHandling(s string) (TypeNameHandling, error) {
	return parse(s, "type name handling", []TypeNameHandling{
		TypeNameNone, TypeNameObjects, TypeNameArrays, TypeNameAll, TypeNameAuto,
	})
}

// PreserveReferences is a bit set selecting which shapes get "$id" / "$ref".
type PreserveReferences int

const (
	PreserveObjects PreserveReferences = 1 << iota // objects and dictionaries
	PreserveArrays                                 // slices

	PreserveAll  PreserveReferences = (1 << iota) - 1 // objects and arrays
	PreserveNone PreserveReferences = 0               // never preserve
)

// Has reports whether all bits of flag are set.
func (p PreserveReferences) Has(flag PreserveReferences) bool {
	return flag != 0 && p&flag == flag
}

func (p PreserveReferences) String() string {
	switch p {
	case PreserveNone:
		return "none"
	case PreserveObjects:
		return "objects"
	case PreserveArrays:
		return "arrays"
	case PreserveAll:
		return "all"
	default:
		return common.UnknownStr
	}
}

// ParsePreserveReferences parses the String form of a PreserveReferences.
func ParsePreserveReferences(s string) (PreserveReferences, error) {
	return parse(s, "preserve references", []PreserveReferences{
		PreserveNone, PreserveObjects, PreserveArrays, PreserveAll,
	})
}

// ReferenceLoopHandling decides what happens when a value is met again
// while it is still being written.
type ReferenceLoopHandling int

const (
	LoopError     ReferenceLoopHandling = iota // fail with a self referencing loop error
	LoopIgnore                                 // omit the cyclic edge
	LoopSerialize                              // write it again, bounded by the max depth
)

func (h ReferenceLoopHandling) String() string {
	switch h {
	case LoopError:
		return "error"
	case LoopIgnore:
		return "ignore"
	case LoopSerialize:
		return "serialize"
	default:
		return common.UnknownStr
	}
}

// ParseReferenceLoopHandling parses the String form of a ReferenceLoopHandling.
func ParseReferenceLoopHandling(s string) (ReferenceLoopHandling, error) {
	return parse(s, "reference loop handling", []ReferenceLoopHandling{LoopError, LoopIgnore, LoopSerialize})
}

// MissingMemberHandling decides what happens to wire keys without a property.
type MissingMemberHandling int

const (
	MissingMemberIgnore MissingMemberHandling = iota
	MissingMemberError
)

func (h MissingMemberHandling) String() string {
	switch h {
	case MissingMemberIgnore:
		return "ignore"
	case MissingMemberError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// ParseMissingMemberHandling parses the String form of a MissingMemberHandling.
func ParseMissingMemberHandling(s string) (MissingMemberHandling, error) {
	return parse(s, "missing member handling", []MissingMemberHandling{MissingMemberIgnore, MissingMemberError})
}

// NullValueHandling decides whether nil members are written.
type NullValueHandling int

const (
	NullInclude NullValueHandling = iota
	NullIgnore
)

func (h NullValueHandling) String() string {
	switch h {
	case NullInclude:
		return "include"
	case NullIgnore:
		return "ignore"
	default:
		return common.UnknownStr
	}
}

// ParseNullValueHandling parses the String form of a NullValueHandling.
func ParseNullValueHandling(s string) (NullValueHandling, error) {
	return parse(s, "null value handling", []NullValueHandling{NullInclude, NullIgnore})
}

// DefaultValueHandling decides whether zero-valued members are written.
type DefaultValueHandling int

const (
	DefaultInclude DefaultValueHandling = iota
	DefaultIgnore
)

func (h DefaultValueHandling) String() string {
	switch h {
	case DefaultInclude:
		return "include"
	case DefaultIgnore:
		return "ignore"
	default:
		return common.UnknownStr
	}
}

// ParseDefaultValueHandling parses the String form of a DefaultValueHandling.
func ParseDefaultValueHandling(s string) (DefaultValueHandling, error) {
	return parse(s, "default value handling", []DefaultValueHandling{DefaultInclude, DefaultIgnore})
}

// MetadataHandling decides where "$id", "$ref", "$type" and "$values" may appear.
type MetadataHandling int

const (
	MetadataDefault   MetadataHandling = iota // metadata must lead the object
	MetadataReadAhead                         // buffer the object and find metadata anywhere
	MetadataIgnore                            // treat metadata keys as data
)

func (h MetadataHandling) String() string {
	switch h {
	case MetadataDefault:
		return "default"
	case MetadataReadAhead:
		return "read_ahead"
	case MetadataIgnore:
		return "ignore"
	default:
		return common.UnknownStr
	}
}

// ParseMetadataHandling parses the String form of a MetadataHandling.
func ParseMetadataHandling(s string) (MetadataHandling, error) {
	return parse(s, "metadata handling", []MetadataHandling{MetadataDefault, MetadataReadAhead, MetadataIgnore})
}

// ConstructorHandling decides whether the zero value of a type with
// registered constructors may be used when none of them qualifies.
type ConstructorHandling int

const (
	ConstructorDefault ConstructorHandling = iota
	ConstructorAllowNonPublicDefault
)

func (h ConstructorHandling) String() string {
	switch h {
	case ConstructorDefault:
		return "default"
	case ConstructorAllowNonPublicDefault:
		return "allow_non_public_default"
	default:
		return common.UnknownStr
	}
}

// ParseConstructorHandling parses the String form of a ConstructorHandling.
func ParseConstructorHandling(s string) (ConstructorHandling, error) {
	return parse(s, "constructor handling", []ConstructorHandling{ConstructorDefault, ConstructorAllowNonPublicDefault})
}

// ObjectCreationHandling decides whether existing targets are populated or replaced.
type ObjectCreationHandling int

const (
	CreationAuto    ObjectCreationHandling = iota // reuse non-nil pointers and maps
	CreationReuse                                 // same as auto
	CreationReplace                               // always create a new value
)

func (h ObjectCreationHandling) String() string {
	switch h {
	case CreationAuto:
		return "auto"
	case CreationReuse:
		return "reuse"
	case CreationReplace:
		return "replace"
	default:
		return common.UnknownStr
	}
}

// ParseObjectCreationHandling parses the String form of an ObjectCreationHandling.
func ParseObjectCreationHandling(s string) (ObjectCreationHandling, error) {
	return parse(s, "object creation handling", []ObjectCreationHandling{CreationAuto, CreationReuse, CreationReplace})
}

// UnknownTypeHandling decides whether unresolvable "$type" tags are fatal.
type UnknownTypeHandling int

const (
	UnknownTypeError UnknownTypeHandling = iota
	UnknownTypeIgnore                    // fall back to the declared type
)

func (h UnknownTypeHandling) String() string {
	switch h {
	case UnknownTypeError:
		return "error"
	case UnknownTypeIgnore:
		return "ignore"
	default:
		return common.UnknownStr
	}
}

// ParseUnknownTypeHandling parses the String form of an UnknownTypeHandling.
func ParseUnknownTypeHandling(s string) (UnknownTypeHandling, error) {
	return parse(s, "unknown type handling", []UnknownTypeHandling{UnknownTypeError, UnknownTypeIgnore})
}

func parse[E fmt.Stringer](s, what string, values []E) (E, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	needle = strings.ReplaceAll(needle, "-", "_")

	for _, v := range values {
		if v.String() == needle {
			return v, nil
		}
	}

	var zero E

	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.String())
	}

	return zero, fmt.Errorf("invalid %s %q, expected one of: %s", what, s, strings.Join(names, ", "))
}
