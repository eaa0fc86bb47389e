package contract_test

import (
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-serializer/contract"
	"graph-serializer/naming"
	"graph-serializer/options"
	"graph-serializer/primitive"
)

type Base struct {
	ID      int
	Comment string
}

type Product struct {
	Base
	Name    string   `json:"name"`
	Price   float64  `graph:",order=1"`
	Tags    []string `json:"tags,omitempty"`
	Hidden  string   `json:"-"`
	Comment string
	secret  string
}

func (p *Product) ShouldSerializeTags() bool { return len(p.Tags) > 1 }

func wireNames(c *contract.Contract) []string {
	names := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		names = append(names, p.WireName)
	}

	return names
}

func TestObjectContract(t *testing.T) {
	r, err := contract.New()
	require.NoError(t, err)

	c, err := r.Contract(reflect.TypeFor[*Product]())
	require.NoError(t, err)

	assert.Equal(t, contract.KindObject, c.Kind)
	assert.Equal(t, reflect.TypeFor[Product](), c.CreatedType)
	assert.Equal(t, []string{"Price", "ID", "name", "tags", "Comment"}, wireNames(c))

	comment, ok := c.Property("comment")
	require.True(t, ok)
	assert.Equal(t, []int{5}, comment.Index, "the outer Comment shadows the embedded one")

	id, ok := c.Property("ID")
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, id.Index)

	tags, _ := c.Property("tags")
	require.NotNil(t, tags.DefaultValueHandling)
	assert.Equal(t, options.DefaultIgnore, *tags.DefaultValueHandling)
	require.NotNil(t, tags.ShouldSerialize)
	assert.False(t, tags.ShouldSerialize(reflect.ValueOf(Product{Tags: []string{"a"}})))
	assert.True(t, tags.ShouldSerialize(reflect.ValueOf(Product{Tags: []string{"a", "b"}})))

	assert.True(t, tags.HasExplicitName)

	_, ok = c.Property("Hidden")
	assert.False(t, ok)
}

func TestNamingStrategy(t *testing.T) {
	r, err := contract.New(contract.WithNaming(naming.CamelCase{}))
	require.NoError(t, err)

	type widget struct {
		Name      string
		UnitPrice float64
		SKU       string `json:"Stock-Unit"`
	}

	c, err := r.Contract(reflect.TypeFor[widget]())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "unitPrice", "Stock-Unit"}, wireNames(c))

	r, err = contract.New(contract.WithNaming(naming.CamelCase{Options: naming.Options{OverrideSpecified: true}}))
	require.NoError(t, err)

	c, err = r.Contract(reflect.TypeFor[widget]())
	require.NoError(t, err)
	assert.Equal(t, "stock-Unit", c.Properties[2].WireName)
}

func TestOptIn(t *testing.T) {
	r, err := contract.New(contract.WithVisibility(contract.OptIn))
	require.NoError(t, err)

	type record struct {
		Kept    int `graph:""`
		Named   int `json:"named"`
		Dropped int
	}

	c, err := r.Contract(reflect.TypeFor[record]())
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept", "named"}, wireNames(c))
}

func TestKinds(t *testing.T) {
	type dynamic struct{ bag }

	tests := []struct {
		typ  reflect.Type
		kind contract.Kind
	}{
		{reflect.TypeFor[[]int](), contract.KindArray},
		{reflect.TypeFor[[3]string](), contract.KindArray},
		{reflect.TypeFor[map[string]int](), contract.KindDictionary},
		{reflect.TypeFor[map[int]bool](), contract.KindDictionary},
		{reflect.TypeFor[*int](), contract.KindPrimitive},
		{reflect.TypeFor[[]byte](), contract.KindPrimitive},
		{reflect.TypeFor[time.Time](), contract.KindPrimitive},
		{reflect.TypeFor[net.IP](), contract.KindStringLike},
		{reflect.TypeFor[any](), contract.KindInterface},
		{reflect.TypeFor[dynamic](), contract.KindDynamic},
	}

	r := contract.Default()

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			c, err := r.Contract(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, c.Kind)
		})
	}

	c, err := r.Contract(reflect.TypeFor[time.Time]())
	require.NoError(t, err)
	assert.Equal(t, primitive.KindTime, c.Primitive)
}

type bag struct{ members map[string]any }

func (b *bag) MemberNames() []string             { return nil }
func (b *bag) GetMember(name string) (any, bool) { v, ok := b.members[name]; return v, ok }
func (b *bag) SetMember(name string, value any) error {
	b.members[name] = value
	return nil
}

func TestBuildErrors(t *testing.T) {
	type inner struct{ A int }
	type twin struct{ A int }
	type clash struct {
		inner
		twin
	}
	type badExtension struct {
		Extra []string `graph:",extension"`
	}
	type badTag struct {
		A int `graph:",sideways"`
	}
	type badConverter struct {
		A int `graph:",converter=missing"`
	}

	tests := []struct {
		typ reflect.Type
		err error
	}{
		{reflect.TypeFor[chan int](), contract.ErrUnsupportedType},
		{reflect.TypeFor[func()](), contract.ErrUnsupportedType},
		{reflect.TypeFor[complex128](), contract.ErrUnsupportedType},
		{reflect.TypeFor[map[[2]int]int](), contract.ErrUnsupportedType},
		{reflect.TypeFor[clash](), contract.ErrDuplicateMember},
		{reflect.TypeFor[badExtension](), contract.ErrExtensionData},
		{reflect.TypeFor[badTag](), contract.ErrInvalidTag},
		{reflect.TypeFor[badConverter](), contract.ErrInvalidTag},
	}

	r := contract.Default()

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			_, err := r.Contract(tt.typ)
			require.ErrorIs(t, err, tt.err)

			var buildErr *contract.BuildError
			assert.True(t, errors.As(err, &buildErr))
		})
	}
}

func TestExtensionData(t *testing.T) {
	type inner struct {
		More map[string]any `graph:",extension"`
	}
	type outer struct {
		inner
		Extra map[string]any `graph:",extension"`
		Name  string
	}

	c, err := contract.Default().Contract(reflect.TypeFor[outer]())
	require.NoError(t, err)

	require.NotNil(t, c.ExtensionData)
	assert.Equal(t, "Extra", c.ExtensionData.UnderlyingName)
	assert.Equal(t, []string{"Name"}, wireNames(c))
}

func TestTagOptions(t *testing.T) {
	type tagged struct {
		A *tagged `graph:"a,required,ref,typename=auto,loop=ignore,omitnull"`
		B string  `graph:"b,required=allownull,ref=false"`
		C *tagged `graph:"c,ref=value"`
	}

	c, err := contract.Default().Contract(reflect.TypeFor[tagged]())
	require.NoError(t, err)

	a, b := c.Properties[0], c.Properties[1]
	assert.Equal(t, contract.RequiredAlways, a.Required)
	assert.True(t, *a.IsReference)
	assert.Equal(t, options.TypeNameAuto, *a.TypeNameHandling)
	assert.Equal(t, options.LoopIgnore, *a.ReferenceLoopHandling)
	assert.Equal(t, options.NullIgnore, *a.NullValueHandling)

	assert.Equal(t, contract.RequiredAllowNull, b.Required)
	assert.False(t, *b.IsReference)
	assert.False(t, a.ValueEquality)

	cp := c.Properties[2]
	assert.True(t, *cp.IsReference)
	assert.True(t, cp.ValueEquality)
}

func TestHook(t *testing.T) {
	calls := 0
	r, err := contract.New(contract.WithHook(func(c *contract.Contract) error {
		calls++

		for _, p := range c.Properties {
			if p.UnderlyingName == "Comment" {
				p.WireName = "note"
			}
		}

		return nil
	}))
	require.NoError(t, err)

	for range 3 {
		c, err := r.Contract(reflect.TypeFor[Base]())
		require.NoError(t, err)

		_, ok := c.Property("note")
		assert.True(t, ok)
	}

	assert.Equal(t, 1, calls)

	failing, err := contract.New(contract.WithHook(func(*contract.Contract) error {
		return errors.New("rejected")
	}))
	require.NoError(t, err)

	_, err = failing.Contract(reflect.TypeFor[Base]())
	assert.ErrorIs(t, err, contract.ErrHook)
}

func TestWarm(t *testing.T) {
	type leaf struct{ V int }
	type tree struct {
		Children []*tree
		Leaves   map[string]leaf
	}

	built := map[reflect.Type]bool{}

	var mu sync.Mutex
	r, err := contract.New(contract.WithHook(func(c *contract.Contract) error {
		mu.Lock()
		defer mu.Unlock()

		built[c.UnderlyingType] = true

		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, r.Warm(reflect.TypeFor[tree]()))

	for _, typ := range []reflect.Type{
		reflect.TypeFor[tree](),
		reflect.TypeFor[[]*tree](),
		reflect.TypeFor[*tree](),
		reflect.TypeFor[map[string]leaf](),
		reflect.TypeFor[leaf](),
		reflect.TypeFor[int](),
		reflect.TypeFor[string](),
	} {
		assert.True(t, built[typ], typ.String())
	}
}

func TestConcurrentBuilds(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	r, err := contract.New(contract.WithHook(func(*contract.Contract) error {
		mu.Lock()
		calls++
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		return nil
	}))
	require.NoError(t, err)

	const workers = 16

	results := make([]*contract.Contract, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			c, err := r.Contract(reflect.TypeFor[Product]())
			assert.NoError(t, err)

			results[i] = c
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, calls)
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}

func TestShared(t *testing.T) {
	assert.Same(t, contract.Default(), contract.Shared(nil, contract.OptOut))
	assert.Same(t, contract.Shared(naming.SnakeCase{}, contract.OptIn), contract.Shared(naming.SnakeCase{}, contract.OptIn))
	assert.NotSame(t, contract.Default(), contract.Shared(naming.CamelCase{}, contract.OptOut))
}
