package binder_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-serializer/binder"
)

type Dog struct{ Name string }

type Cat struct{ Lives int }

type Shape interface{ Area() float64 }

func TestRegistryNames(t *testing.T) {
	r := binder.NewRegistry(reflect.TypeFor[Dog]())

	name, err := r.TypeToName(reflect.TypeFor[*Dog]())
	require.NoError(t, err)
	assert.Equal(t, "graph-serializer/binder_test.Dog", name)

	for _, lookup := range []string{name, "binder_test.Dog", "Dog"} {
		typ, err := r.NameToType(lookup)
		require.NoError(t, err, lookup)
		assert.Equal(t, reflect.TypeFor[Dog](), typ, lookup)
	}

	typ, err := r.NameToType("map[string]interface {}")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[map[string]any](), typ)
}

func TestRegistryLearnsWrittenTypes(t *testing.T) {
	r := binder.NewRegistry()

	_, err := r.NameToType("binder_test.Cat")
	assert.ErrorIs(t, err, binder.ErrUnknownType)

	_, err = r.TypeToName(reflect.TypeFor[Cat]())
	require.NoError(t, err)

	typ, err := r.NameToType("binder_test.Cat")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[Cat](), typ)
}

func TestRegistryAlias(t *testing.T) {
	r := binder.NewRegistry()
	r.Alias("dog", reflect.TypeFor[Dog]())

	name, err := r.TypeToName(reflect.TypeFor[Dog]())
	require.NoError(t, err)
	assert.Equal(t, "dog", name)

	for _, lookup := range []string{"dog", "graph-serializer/binder_test.Dog"} {
		typ, err := r.NameToType(lookup)
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeFor[Dog](), typ)
	}
}

func TestRegistryErrors(t *testing.T) {
	r := binder.NewRegistry()

	_, err := r.TypeToName(reflect.TypeFor[Shape]())
	assert.ErrorIs(t, err, binder.ErrUnknownType)

	_, err = r.NameToType("")
	assert.ErrorIs(t, err, binder.ErrUnknownType)

	_, err = r.NameToType("nowhere.Nothing")
	assert.ErrorIs(t, err, binder.ErrUnknownType)
}
