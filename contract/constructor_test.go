package contract_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-serializer/contract"
)

type money struct {
	Amount   int64
	Currency string
}

func newMoney(amount int64, currency string) money { return money{amount, currency} }

func newEuro(amount int64) (*money, error) {
	if amount < 0 {
		return nil, errors.New("negative amount")
	}

	return &money{amount, "EUR"}, nil
}

func emptyMoney() *money { return &money{Currency: "XXX"} }

func dollars() money { return money{Currency: "USD"} }

type tags []string

func newTags(items []string) tags { return tags(items) }

func TestParseConstructor(t *testing.T) {
	ctor, err := contract.ParseConstructor(newEuro, "amount")
	require.NoError(t, err)

	assert.True(t, ctor.HasErr)
	assert.Equal(t, reflect.TypeFor[money](), ctor.Creates())
	assert.Equal(t, "func(amount int64) *contract_test.money", ctor.String())

	i, ok := ctor.Param("AMOUNT")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	v, err := ctor.Call([]reflect.Value{reflect.ValueOf(int64(5))})
	require.NoError(t, err)
	assert.Equal(t, &money{5, "EUR"}, v.Interface())

	_, err = ctor.Call([]reflect.Value{reflect.ValueOf(int64(-1))})
	assert.EqualError(t, err, "negative amount")

	v, err = ctor.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, &money{0, "EUR"}, v.Interface())
}

func TestParseConstructorErrors(t *testing.T) {
	tests := []struct {
		name   string
		fn     any
		params []string
		err    error
	}{
		{"not a function", 42, nil, contract.ErrConstructorIsNotAFunction},
		{"no result", func() {}, nil, contract.ErrNotAConstructor},
		{"bad second result", func() (money, bool) { return money{}, false }, nil, contract.ErrNotAConstructor},
		{"variadic", func(...int) money { return money{} }, nil, contract.ErrNotAConstructor},
		{"double pointer", func() **money { return nil }, nil, contract.ErrDoublePointer},
		{"interface result", func() any { return nil }, nil, contract.ErrNotAConstructor},
		{"names", newMoney, []string{"amount"}, contract.ErrParamNames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := contract.ParseConstructor(tt.fn, tt.params...)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCreation(t *testing.T) {
	typ := reflect.TypeFor[money]()

	tests := []struct {
		name           string
		opts           []contract.Option
		allowNonPublic bool
		want           contract.Creation
		params         int
		err            error
	}{
		{name: "zero value", want: contract.CreateZero},
		{
			name:   "single parameterized",
			opts:   []contract.Option{contract.WithConstructor(newMoney, "amount", "currency")},
			want:   contract.CreateParameterized,
			params: 2,
		},
		{
			name:           "non-public default allowed",
			opts:           []contract.Option{contract.WithConstructor(newMoney, "amount", "currency")},
			allowNonPublic: true,
			want:           contract.CreateZero,
		},
		{
			name: "parameterless wins",
			opts: []contract.Option{
				contract.WithConstructor(newMoney, "amount", "currency"),
				contract.WithConstructor(emptyMoney),
			},
			want: contract.CreateDefault,
		},
		{
			name: "ambiguous",
			opts: []contract.Option{
				contract.WithConstructor(newMoney, "amount", "currency"),
				contract.WithConstructor(newEuro, "amount"),
			},
			err: contract.ErrNoConstructor,
		},
		{
			name: "explicit wins",
			opts: []contract.Option{
				contract.WithConstructor(newMoney, "amount", "currency"),
				contract.WithConstructor(emptyMoney),
				contract.WithExplicitConstructor(newEuro, "amount"),
			},
			want:   contract.CreateParameterized,
			params: 1,
		},
		{
			name: "two parameterless",
			opts: []contract.Option{
				contract.WithConstructor(emptyMoney),
				contract.WithConstructor(dollars),
			},
			err: contract.ErrNoConstructor,
		},
		{
			name: "parameterless beside explicit",
			opts: []contract.Option{
				contract.WithConstructor(emptyMoney),
				contract.WithConstructor(dollars),
				contract.WithExplicitConstructor(newEuro, "amount"),
			},
			want:   contract.CreateParameterized,
			params: 1,
		},
		{
			name: "two explicit",
			opts: []contract.Option{
				contract.WithExplicitConstructor(newMoney, "amount", "currency"),
				contract.WithExplicitConstructor(newEuro, "amount"),
			},
			err: contract.ErrNoConstructor,
		},
		{
			name: "factory",
			opts: []contract.Option{
				contract.WithConstructor(newMoney, "amount", "currency"),
				contract.WithFactory(typ, func() any { return &money{Currency: "USD"} }),
			},
			want: contract.CreateFactory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := contract.New(tt.opts...)
			require.NoError(t, err)

			c, err := r.Contract(typ)
			require.NoError(t, err)

			creation, ctor, err := c.Creation(tt.allowNonPublic)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, creation)

			if tt.params > 0 {
				require.NotNil(t, ctor)
				assert.Len(t, ctor.Params, tt.params)
			}
		})
	}
}

func TestCollectionConstructor(t *testing.T) {
	r, err := contract.New(contract.WithConstructor(newTags, "items"))
	require.NoError(t, err)

	c, err := r.Contract(reflect.TypeFor[tags]())
	require.NoError(t, err)

	creation, ctor, err := c.Creation(false)
	require.NoError(t, err)
	assert.Equal(t, contract.CreateCollection, creation)
	assert.Equal(t, reflect.TypeFor[[]string](), ctor.Params[0].Type)

	r, err = contract.New(contract.WithConstructor(func(n int) tags { return make(tags, n) }, "n"))
	require.NoError(t, err)

	c, err = r.Contract(reflect.TypeFor[tags]())
	require.NoError(t, err)

	_, _, err = c.Creation(false)
	require.ErrorIs(t, err, contract.ErrNoConstructor)
	assert.Contains(t, err.Error(), "must take a single []string parameter")
}

func TestConstructorOptionError(t *testing.T) {
	_, err := contract.New(contract.WithConstructor("nope"))
	assert.ErrorIs(t, err, contract.ErrConstructorIsNotAFunction)
}
