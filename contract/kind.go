package contract

//go:generate go tool stringer -type=Kind -output=kind_string.go

// Kind is the wire shape of a contract.
type Kind int

const (
	_ Kind = iota

	KindObject     // struct, written as an object of its properties
	KindArray      // slice or array
	KindDictionary // map with string-like keys
	KindPrimitive  // scalar, see primitive.KindEnum
	KindDynamic    // struct with DynamicMembers
	KindStringLike // encoding.TextMarshaler + encoding.TextUnmarshaler
	KindInterface  // decided by the runtime value or a $type tag
)

// Required says whether a property must be present on read.
type Required int

const (
	RequiredDefault   Required = iota // optional
	RequiredAllowNull                 // must be present, may be null
	RequiredAlways                    // must be present and not null
)
