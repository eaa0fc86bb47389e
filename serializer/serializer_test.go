package serializer_test

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-serializer/contract"
	"graph-serializer/convert"
	"graph-serializer/internal/ctxlog"
	"graph-serializer/naming"
	"graph-serializer/options"
	"graph-serializer/serializer"
	"graph-serializer/token"
	"graph-serializer/token/jsontext"
)

func newSerializer(mutate func(*serializer.Settings)) *serializer.Serializer {
	settings := serializer.DefaultSettings()
	settings.Logger = ctxlog.Discard

	if mutate != nil {
		mutate(&settings)
	}

	return serializer.New(settings)
}

func write(t *testing.T, s *serializer.Serializer, v any) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, s.Serialize(jsontext.NewWriter(&buf), v))

	return buf.String()
}

func read[T any](s *serializer.Serializer, input string) (T, error) {
	return serializer.DeserializeTo[T](s, jsontext.NewReaderString(input))
}

type Color struct{ R, G, B uint8 }

func (c Color) MarshalText() ([]byte, error) {
	return fmt.Appendf(nil, "#%02x%02x%02x", c.R, c.G, c.B), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "#%02x%02x%02x", &c.R, &c.G, &c.B)
	return err
}

type Kinds struct {
	Int    int
	Small  uint8
	Ratio  float32
	Flag   bool
	Text   string
	Raw    []byte
	When   time.Time
	Wait   time.Duration
	Paint  Color
	List   []int
	Pair   [2]string
	Counts map[string]int
	ByID   map[int]string
	Nested *Kinds
	Any    any
	Many   []any
}

func TestRoundTripKinds(t *testing.T) {
	s := newSerializer(nil)

	in := Kinds{
		Int:    -3,
		Small:  200,
		Ratio:  1.5,
		Flag:   true,
		Text:   "line\n\"quoted\"",
		Raw:    []byte("hi"),
		When:   time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Wait:   90 * time.Second,
		Paint:  Color{R: 255, B: 16},
		List:   []int{1, 2, 3},
		Pair:   [2]string{"a", "b"},
		Counts: map[string]int{"b": 2, "a": 1},
		ByID:   map[int]string{10: "ten", 2: "two"},
		Nested: &Kinds{Text: "inner", List: []int{}},
		Any:    map[string]any{"k": int64(1), "f": 2.5},
		Many:   []any{"x", true, nil, int64(4)},
	}

	out := write(t, s, in)
	assert.Contains(t, out, `"Raw":"aGk="`)
	assert.Contains(t, out, `"Paint":"#ff0010"`)
	assert.Contains(t, out, `"Counts":{"a":1,"b":2}`)
	assert.Contains(t, out, `"ByID":{"10":"ten","2":"two"}`)

	got, err := read[Kinds](s, out)
	require.NoError(t, err)

	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\n%s", diff, spew.Sdump(got))
	}
}

type Product struct {
	Name  string
	Price float64
}

func TestCamelCase(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) { s.Naming = naming.CamelCase{} })

	out := write(t, s, Product{Name: "Widget", Price: 9.99})
	assert.Equal(t, `{"name":"Widget","price":9.99}`, out)

	got, err := read[Product](s, out)
	require.NoError(t, err)
	assert.Equal(t, Product{Name: "Widget", Price: 9.99}, got)
}

func TestOmission(t *testing.T) {
	type Sparse struct {
		Name  string
		Note  *string
		Count int
		Tags  []string `json:",omitempty"`
	}

	s := newSerializer(func(s *serializer.Settings) { s.NullValueHandling = options.NullIgnore })
	assert.Equal(t, `{"Name":"a","Count":0}`, write(t, s, Sparse{Name: "a"}))

	s = newSerializer(func(s *serializer.Settings) { s.DefaultValueHandling = options.DefaultIgnore })
	assert.Equal(t, `{"Name":"a"}`, write(t, s, Sparse{Name: "a"}))
}

type Account struct {
	Name  string
	Email string
}

func TestMissingMember(t *testing.T) {
	input := `{"Name":"x","Emial":"y"}`

	got, err := read[Account](newSerializer(nil), input)
	require.NoError(t, err)
	assert.Equal(t, Account{Name: "x"}, got)

	strict := newSerializer(func(s *serializer.Settings) { s.MissingMemberHandling = options.MissingMemberError })
	_, err = read[Account](strict, input)
	require.ErrorIs(t, err, serializer.ErrStructural)
	assert.EqualError(t, err,
		"could not find member 'Emial' on object of type 'Account' (did you mean 'Email'?). Path 'Emial'.")
}

type Money struct {
	Amount   int64
	Currency string
	Note     string
}

func TestParameterizedConstructor(t *testing.T) {
	resolver, err := contract.New(contract.WithConstructor(func(amount int64, currency string) *Money {
		return &Money{Amount: amount, Currency: strings.ToUpper(currency)}
	}, "amount", "currency"))
	require.NoError(t, err)

	input := `{"Note":"tip","Currency":"eur","Amount":5}`

	s := newSerializer(func(s *serializer.Settings) { s.Contracts = resolver })
	got, err := read[*Money](s, input)
	require.NoError(t, err)
	assert.Equal(t, &Money{Amount: 5, Currency: "EUR", Note: "tip"}, got)

	// the zero value counts as the non-public default constructor
	s = newSerializer(func(s *serializer.Settings) {
		s.Contracts = resolver
		s.ConstructorHandling = options.ConstructorAllowNonPublicDefault
	})
	got, err = read[*Money](s, input)
	require.NoError(t, err)
	assert.Equal(t, &Money{Amount: 5, Currency: "eur", Note: "tip"}, got)
}

func TestAmbiguousConstructors(t *testing.T) {
	resolver, err := contract.New(
		contract.WithConstructor(func(amount int64) Money { return Money{Amount: amount} }, "amount"),
		contract.WithConstructor(func(currency string) Money { return Money{Currency: currency} }, "currency"),
	)
	require.NoError(t, err)

	s := newSerializer(func(s *serializer.Settings) {
		s.Contracts = resolver
		s.Error = func(*serializer.ErrorContext) serializer.Recovery { return serializer.Continue }
	})

	_, err = read[Money](s, `{"Amount":1}`)
	require.ErrorIs(t, err, serializer.ErrContractBuild)
	require.ErrorIs(t, err, contract.ErrNoConstructor)
}

type Tags []string

func TestCollectionConstructor(t *testing.T) {
	resolver, err := contract.New(contract.WithConstructor(func(items []string) Tags {
		sort.Strings(items)
		return Tags(items)
	}, "items"))
	require.NoError(t, err)

	s := newSerializer(func(s *serializer.Settings) { s.Contracts = resolver })

	got, err := read[Tags](s, `["b","c","a"]`)
	require.NoError(t, err)
	assert.Equal(t, Tags{"a", "b", "c"}, got)

	_, err = read[Tags](s, `{"$id":"1","$values":["a"]}`)
	require.ErrorIs(t, err, serializer.ErrReferenceResolution)
}

type Document struct {
	ID    int
	Extra map[string]any `graph:",extension"`
}

func TestExtensionData(t *testing.T) {
	s := newSerializer(nil)

	got, err := read[Document](s, `{"color":"red","ID":1,"size":3}`)
	require.NoError(t, err)
	assert.Equal(t, Document{ID: 1, Extra: map[string]any{"color": "red", "size": int64(3)}}, got)

	assert.Equal(t, `{"ID":1,"color":"red","size":3}`, write(t, s, got))
}

type Bag struct {
	Fixed int
	more  map[string]any
}

func (b *Bag) MemberNames() []string {
	names := make([]string, 0, len(b.more))
	for name := range b.more {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (b *Bag) GetMember(name string) (any, bool) {
	v, ok := b.more[name]
	return v, ok
}

func (b *Bag) SetMember(name string, value any) error {
	if b.more == nil {
		b.more = make(map[string]any)
	}

	b.more[name] = value

	return nil
}

func TestDynamicMembers(t *testing.T) {
	s := newSerializer(nil)

	out := write(t, s, &Bag{Fixed: 1, more: map[string]any{"y": "z", "x": int64(2)}})
	assert.Equal(t, `{"Fixed":1,"x":2,"y":"z"}`, out)

	got, err := read[*Bag](s, out)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Fixed)
	assert.Equal(t, map[string]any{"x": int64(2), "y": "z"}, got.more)
}

type Envelope struct {
	Kind string
	Body *Leaf
}

type Parcel struct {
	First  Envelope
	Second Envelope
}

var envelopeConverter = convert.Func[Envelope]{
	Write: func(w token.Writer, v Envelope, e convert.Engine) error {
		if err := w.WriteStartArray(); err != nil {
			return err
		}

		if err := w.WriteValue(v.Kind); err != nil {
			return err
		}

		if err := e.Serialize(w, v.Body); err != nil {
			return err
		}

		return w.WriteEndArray()
	},
	Read: func(r token.Reader, e convert.Engine) (Envelope, error) {
		var env Envelope

		if err := token.Next(r); err != nil {
			return env, err
		}

		env.Kind, _ = r.Value().(string)

		if err := token.Next(r); err != nil {
			return env, err
		}

		body, err := e.Deserialize(r, reflect.TypeFor[*Leaf]())
		if err != nil {
			return env, err
		}

		env.Body, _ = body.(*Leaf)

		return env, token.Next(r)
	},
}

func TestConverterReentry(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) {
		s.PreserveReferences = options.PreserveObjects
		s.Converters = convert.Chain{envelopeConverter}
	})

	shared := &Leaf{V: 7}
	out := write(t, s, Parcel{First: Envelope{"a", shared}, Second: Envelope{"b", shared}})
	assert.Equal(t, `{"First":["a",{"$id":"1","V":7}],"Second":["b",{"$ref":"1"}]}`, out)

	got, err := read[Parcel](s, out)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Second.Kind)
	require.NotNil(t, got.First.Body)
	assert.Same(t, got.First.Body, got.Second.Body)
}

type Gauge struct {
	Level complex128
}

var complexConverter = convert.Func[complex128]{
	Write: func(w token.Writer, v complex128, _ convert.Engine) error {
		return w.WriteValue(strconv.FormatComplex(v, 'g', -1, 128))
	},
	Read: func(r token.Reader, _ convert.Engine) (complex128, error) {
		text, _ := r.Value().(string)
		return strconv.ParseComplex(text, 128)
	},
}

func TestConverterClaimsTypeWithoutContract(t *testing.T) {
	s := newSerializer(func(s *serializer.Settings) {
		s.Converters = convert.Chain{complexConverter}
	})

	out := write(t, s, Gauge{Level: 1})
	assert.Equal(t, `{"Level":"(1+0i)"}`, out)

	got, err := read[Gauge](s, out)
	require.NoError(t, err)
	assert.Equal(t, Gauge{Level: 1}, got)

	_, err = read[Gauge](newSerializer(nil), out)
	require.ErrorIs(t, err, contract.ErrUnsupportedType)
}

type Server struct {
	Name  string
	Port  int
	Peers map[string]int
}

func TestPopulate(t *testing.T) {
	s := newSerializer(nil)

	cfg := &Server{Name: "keep", Port: 80, Peers: map[string]int{"a": 1}}
	require.NoError(t, s.Populate(jsontext.NewReaderString(`{"Port":8080,"Peers":{"b":2}}`), cfg))

	assert.Equal(t, &Server{Name: "keep", Port: 8080, Peers: map[string]int{"a": 1, "b": 2}}, cfg)

	assert.ErrorIs(t, s.Populate(jsontext.NewReaderString(`{}`), Server{}), serializer.ErrInvalidTarget)
}

func TestObjectCreationReplace(t *testing.T) {
	type Holder struct{ Peers map[string]int }

	s := newSerializer(func(s *serializer.Settings) { s.ObjectCreationHandling = options.CreationReplace })

	h := Holder{Peers: map[string]int{"a": 1}}
	require.NoError(t, s.Populate(jsontext.NewReaderString(`{"Peers":{"b":2}}`), &h))
	assert.Equal(t, map[string]int{"b": 2}, h.Peers)
}

func TestMarshalUnmarshal(t *testing.T) {
	data, err := serializer.Marshal(map[string][]int{"b": {2}, "a": {1}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1],"b":[2]}`, string(data))

	var got map[string][]int
	require.NoError(t, serializer.Unmarshal(data, &got))
	assert.Equal(t, map[string][]int{"a": {1}, "b": {2}}, got)

	indented, err := serializer.MarshalIndent(Product{Name: "w", Price: 1}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"Name\": \"w\",\n  \"Price\": 1.0\n}", string(indented))
}

func ExampleMarshal() {
	type Point struct {
		X, Y int
		Tag  string `json:"tag,omitempty"`
	}

	data, err := serializer.Marshal([]Point{{X: 1, Y: 2}, {X: 3, Y: 4, Tag: "end"}})
	if err != nil {
		panic(err)
	}

	fmt.Println(string(data))
	// Output: [{"X":1,"Y":2},{"X":3,"Y":4,"tag":"end"}]
}
