// Package token defines the pull reader and push writer the graph engine
// walks. Concrete formats live in sub-packages (see jsontext).
package token

import "graph-serializer/internal/common"

// Type is the kind of the token a Reader is positioned on.
type Type uint8

const (
	None Type = iota
	StartObject
	PropertyName
	EndObject
	StartArray
	EndArray
	Null
	Integer // int64, or uint64 beyond the int64 range
	Float   // float64
	String
	Boolean
	Comment
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case StartObject:
		return "StartObject"
	case PropertyName:
		return "PropertyName"
	case EndObject:
		return "EndObject"
	case StartArray:
		return "StartArray"
	case EndArray:
		return "EndArray"
	case Null:
		return "Null"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case String:
		return "String"
	case Boolean:
		return "Boolean"
	case Comment:
		return "Comment"
	default:
		return common.UnknownStr
	}
}

// IsStart reports whether t opens a container.
func (t Type) IsStart() bool { return t == StartObject || t == StartArray }

// IsEnd reports whether t closes a container.
func (t Type) IsEnd() bool { return t == EndObject || t == EndArray }

// IsScalar reports whether t is a complete primitive value.
func (t Type) IsScalar() bool {
	switch t {
	case Null, Integer, Float, String, Boolean:
		return true
	default:
		return false
	}
}

// Reader is a pull reader over a token stream.
//
// Depth is the number of containers enclosing the current token: a
// StartObject and its matching EndObject share a depth, the members in
// between are one deeper.
type Reader interface {
	// Read advances to the next token. It returns false at the end of input.
	Read() (bool, error)
	Type() Type
	// Value is the property name for PropertyName, the scalar for scalar
	// tokens (int64, uint64, float64, string, bool) and nil otherwise.
	Value() any
	Depth() int
	// Offset is a position in the input used in error messages and by the
	// infinite-loop guard.
	Offset() int64
}

// WriteState describes what a Writer accepts next.
type WriteState int

const (
	StateStart    WriteState = iota // top level, a value is expected
	StateObject                     // inside an object, a property name is expected
	StateProperty                   // a property name was written, a value is expected
	StateArray                      // inside an array, a value is expected
)

// Writer is a push writer producing a token stream.
type Writer interface {
	WriteStartObject() error
	WriteEndObject() error
	WriteStartArray() error
	WriteEndArray() error
	WritePropertyName(name string) error
	// WriteValue writes a scalar: nil, bool, string, []byte, any integer
	// or float kind.
	WriteValue(v any) error
	WriteNull() error
	// WriteRaw writes pre-encoded text in value position.
	WriteRaw(raw string) error
	WriteComment(text string) error
	// WriteEnd closes the innermost container, completing a pending
	// property with null first.
	WriteEnd() error
	Depth() int
	State() WriteState
	Flush() error
}

// Token is one captured token.
type Token struct {
	Type   Type
	Value  any
	Depth  int
	Offset int64
}
