package serializer_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-serializer/binder"
	"graph-serializer/options"
	"graph-serializer/serializer"
)

type Node struct {
	Name string
	Next *Node
}

type Leaf struct{ V int }

type Pair struct {
	Left, Right *Leaf
}

type Item struct {
	V int `json:"v"`
}

func cycle() *Node {
	n := &Node{Name: "a"}
	n.Next = n

	return n
}

func TestSelfReference(t *testing.T) {
	t.Run("preserve", func(t *testing.T) {
		s := newSerializer(func(s *serializer.Settings) { s.PreserveReferences = options.PreserveObjects })

		out := write(t, s, cycle())
		assert.Equal(t, `{"$id":"1","Name":"a","Next":{"$ref":"1"}}`, out)

		got, err := read[*Node](s, out)
		require.NoError(t, err)
		assert.Same(t, got, got.Next)
	})

	t.Run("error", func(t *testing.T) {
		s := newSerializer(nil)

		err := s.Serialize(discardWriter(), cycle())
		require.ErrorIs(t, err, serializer.ErrSelfReferencingLoop)
		assert.EqualError(t, err,
			"self referencing loop detected for property 'Next' with type '*serializer_test.Node'. Path 'Next'.")
	})

	t.Run("ignore", func(t *testing.T) {
		s := newSerializer(func(s *serializer.Settings) { s.ReferenceLoopHandling = options.LoopIgnore })
		assert.Equal(t, `{"Name":"a"}`, write(t, s, cycle()))
	})

	t.Run("property override", func(t *testing.T) {
		type Tree struct {
			Name   string
			Parent *Tree `graph:",loop=ignore"`
		}

		root := &Tree{Name: "root"}
		root.Parent = root

		assert.Equal(t, `{"Name":"root"}`, write(t, newSerializer(nil), root))
	})
}

func TestSharedInstance(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) { s.PreserveReferences = options.PreserveObjects })

	shared := &Leaf{V: 1}
	out := write(t, s, Pair{Left: shared, Right: shared})
	assert.Equal(t, `{"Left":{"$id":"1","V":1},"Right":{"$ref":"1"}}`, out)

	got, err := read[Pair](s, out)
	require.NoError(t, err)
	assert.Same(t, got.Left, got.Right)
	assert.Equal(t, 1, got.Left.V)

	// without preservation the instance is written twice
	assert.Equal(t, `{"Left":{"V":1},"Right":{"V":1}}`, write(t, newSerializer(nil), Pair{Left: shared, Right: shared}))
}

func TestReferencesInArray(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) { s.PreserveReferences = options.PreserveObjects })

	item := &Item{V: 1}
	out := write(t, s, []*Item{item, item})
	assert.Equal(t, `[{"$id":"1","v":1},{"$ref":"1"}]`, out)

	got, err := read[[]*Item](newSerializer(nil), out)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, got[0], got[1])
}

func TestPreservedSlice(t *testing.T) {
	type Lists struct {
		A, B []int
	}

	s := newSerializer(func(s *serializer.Settings) { s.PreserveReferences = options.PreserveAll })

	shared := []int{1, 2}
	out := write(t, s, &Lists{A: shared, B: shared})
	assert.Equal(t, `{"$id":"1","A":{"$id":"2","$values":[1,2]},"B":{"$ref":"2"}}`, out)

	got, err := read[*Lists](s, out)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got.B)
	assert.Same(t, &got.A[0], &got.B[0])
}

func TestPreservedSliceInInterface(t *testing.T) {
	type Holder struct {
		Data any
	}

	s := newSerializer(func(s *serializer.Settings) { s.PreserveReferences = options.PreserveArrays })

	out := write(t, s, &Holder{Data: []any{int64(1), "x"}})
	assert.Equal(t, `{"Data":{"$id":"1","$values":[1,"x"]}}`, out)

	got, err := read[*Holder](s, out)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "x"}, got.Data)
}

func TestValueEqualityMember(t *testing.T) {
	type Twins struct {
		First  *Leaf `graph:"first,ref=value"`
		Second *Leaf `graph:"second,ref=value"`
	}

	type Siblings struct {
		First  *Leaf `graph:"first,ref"`
		Second *Leaf `graph:"second,ref"`
	}

	s := newSerializer(nil)

	out := write(t, s, &Twins{First: &Leaf{V: 1}, Second: &Leaf{V: 1}})
	assert.Equal(t, `{"first":{"$id":"1","V":1},"second":{"$ref":"1"}}`, out)

	got, err := read[*Twins](s, out)
	require.NoError(t, err)
	assert.Same(t, got.First, got.Second)

	out = write(t, s, &Twins{First: &Leaf{V: 1}, Second: &Leaf{V: 2}})
	assert.Equal(t, `{"first":{"$id":"1","V":1},"second":{"$id":"2","V":2}}`, out)

	out = write(t, s, &Siblings{First: &Leaf{V: 1}, Second: &Leaf{V: 1}})
	assert.Equal(t, `{"first":{"$id":"1","V":1},"second":{"$id":"2","V":1}}`, out)
}

func TestReferenceErrors(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) {
		s.Error = func(*serializer.ErrorContext) serializer.Recovery { return serializer.Continue }
	})

	_, err := read[Pair](s, `{"Left":{"$ref":"9"}}`)
	require.ErrorIs(t, err, serializer.ErrReferenceResolution, "unresolved references are fatal")

	_, err = read[Pair](s, `{"Left":{"$id":"1","V":1},"Right":{"$id":"1","V":2}}`)
	require.ErrorIs(t, err, serializer.ErrReferenceResolution)

	_, err = read[[2]int](s, `{"$id":"1","$values":[1,2]}`)
	require.ErrorIs(t, err, serializer.ErrReferenceResolution)

	got, err := read[Pair](newSerializer(nil), `{"Left":{"$ref":"1","V":1}}`)
	require.ErrorIs(t, err, serializer.ErrStructural)
	assert.Nil(t, got.Left)
}

func TestReadAheadMetadata(t *testing.T) {
	input := `{"Name":"a","Next":{"$ref":"1"},"$id":"1"}`

	_, err := read[*Node](newSerializer(nil), input)
	require.ErrorIs(t, err, serializer.ErrReferenceResolution)

	s := newSerializer(func(s *serializer.Settings) { s.MetadataHandling = options.MetadataReadAhead })
	got, err := read[*Node](s, input)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
	assert.Same(t, got, got.Next)
}

func TestReadAheadRecoveredMembers(t *testing.T) {
	var paths []string

	s := newSerializer(func(s *serializer.Settings) {
		s.MetadataHandling = options.MetadataReadAhead
		s.MissingMemberHandling = options.MissingMemberError
		s.Error = recoverAll(&paths)
	})

	got, err := read[Leaf](s, `{"V":1,"zz":1,"zz":2}`)
	require.NoError(t, err, "each unknown member fails at its own offset")
	assert.Equal(t, Leaf{V: 1}, got)
	assert.Equal(t, []string{"zz", "zz"}, paths)
}

func TestIgnoreMetadata(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) { s.MetadataHandling = options.MetadataIgnore })

	got, err := read[map[string]any](s, `{"$id":"1","$ref":"2","v":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$id": "1", "$ref": "2", "v": int64(1)}, got)
}

type Shape interface{ Area() float64 }

type Square struct{ Side float64 }

func (s *Square) Area() float64 { return s.Side * s.Side }

type Circle struct{ R float64 }

func (c *Circle) Area() float64 { return 3 * c.R * c.R }

type Drawing struct {
	Shapes []Shape
	Main   Shape
}

func TestInterfaceTypeNames(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) { s.TypeNameHandling = options.TypeNameAuto })

	in := Drawing{Shapes: []Shape{&Square{Side: 2}, &Circle{R: 1}}, Main: &Square{Side: 3}}
	out := write(t, s, in)
	assert.Equal(t, `{"Shapes":[`+
		`{"$type":"graph-serializer/serializer_test.Square","Side":2.0},`+
		`{"$type":"graph-serializer/serializer_test.Circle","R":1.0}],`+
		`"Main":{"$type":"graph-serializer/serializer_test.Square","Side":3.0}}`, out)

	got, err := read[Drawing](s, out)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// short names resolve too
	got, err = read[Drawing](s, `{"Main":{"$type":"serializer_test.Circle","R":2}}`)
	require.NoError(t, err)
	assert.Equal(t, &Circle{R: 2}, got.Main)
}

func TestTypeNameResolution(t *testing.T) {
	registry := binder.NewRegistry()
	registry.Alias("square", reflect.TypeFor[Square]())

	s := newSerializer(func(s *serializer.Settings) {
		s.Binder = registry
		s.TypeNameHandling = options.TypeNameObjects
	})

	assert.Equal(t, `{"$type":"square","Side":1.0}`, write(t, s, &Square{Side: 1}))

	_, err := read[Drawing](s, `{"Main":{"$type":"nope.Triangle"}}`)
	require.ErrorIs(t, err, serializer.ErrTypeResolution)
	require.ErrorIs(t, err, binder.ErrUnknownType)

	_, err = read[Drawing](s, `{"Main":{"$type":"graph-serializer/serializer_test.Leaf"}}`)
	require.ErrorIs(t, err, serializer.ErrTypeResolution)

	_, err = read[Drawing](s, `{"Main":{"Side":1}}`)
	require.ErrorIs(t, err, serializer.ErrTypeResolution, "interfaces need a type name or a factory")

	lenient := newSerializer(func(s *serializer.Settings) {
		s.Binder = registry
		s.UnknownTypeHandling = options.UnknownTypeIgnore
	})

	got, err := read[*Square](lenient, `{"$type":"nope.Triangle","Side":4}`)
	require.NoError(t, err)
	assert.Equal(t, &Square{Side: 4}, got)
}
