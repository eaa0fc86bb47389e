package primitive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"graph-serializer/internal/common"
)

// ErrUnsupported is returned for targets that are not scalar.
var ErrUnsupported = errors.New("primitive: unsupported target type")

// ConversionError reports a wire value that cannot be stored in a type.
type ConversionError struct {
	Value  any
	Type   reflect.Type
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert %s to %s: %s", describe(e.Value), e.Type, e.Reason)
}

func describe(v any) string {
	switch v := v.(type) {
	case string:
		return "string " + strconv.Quote(v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T %v", v, v)
	}
}

// WireKind classifies a value produced by a token reader.
func WireKind(v any) KindEnum {
	switch v.(type) {
	case int64:
		return KindInt64
	case uint64:
		return KindUint64
	case float64:
		return KindFloat64
	case string:
		return KindString
	case bool:
		return KindBool
	case []byte:
		return KindBytes
	default:
		return 0
	}
}

// Coerce converts a wire scalar into a value of type dst using only the
// conversions allowed enables.
func Coerce(value any, dst reflect.Type, allowed CategoryEnum) (reflect.Value, error) {
	to := Underlying(dst)
	if to == 0 {
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnsupported, dst)
	}

	from := WireKind(value)
	if from == 0 {
		return reflect.Value{}, &ConversionError{Value: value, Type: dst, Reason: "unsupported wire value"}
	}

	if !allowed.Allows(ConversionPair{From: from, To: to}) {
		return reflect.Value{}, &ConversionError{
			Value:  value,
			Type:   dst,
			Reason: fmt.Sprintf("conversion from %s to %s is not enabled", from, to),
		}
	}

	c := coercion{value: value, dst: dst, unsafe: allowed&CategoryUnsafeNumber != 0}
	out := reflect.New(dst).Elem()

	var err error

	switch {
	case to.IsSigned():
		err = c.setInt(out)
	case to.IsUnsigned():
		err = c.setUint(out)
	case to.IsFloat():
		err = c.setFloat(out)
	case to == KindBool:
		err = c.setBool(out)
	case to == KindString:
		err = c.setString(out)
	case to == KindDuration:
		err = c.setDuration(out)
	case to == KindTime:
		err = c.setTime(out)
	case to == KindBytes:
		err = c.setBytes(out)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, dst)
	}

	if err != nil {
		return reflect.Value{}, err
	}

	return out, nil
}

type coercion struct {
	value  any
	dst    reflect.Type
	unsafe bool
}

func (c coercion) fail(reason string) error {
	return &ConversionError{Value: c.value, Type: c.dst, Reason: reason}
}

func (c coercion) setInt(out reflect.Value) error {
	var n int64

	switch v := c.value.(type) {
	case int64:
		n = v
	case uint64:
		if v > math.MaxInt64 && !c.unsafe {
			return c.fail("value out of range")
		}
		n = int64(v)
	case float64:
		if (v != math.Trunc(v) || !common.InRange(math.MinInt64, v, math.MaxInt64)) && !c.unsafe {
			return c.fail("value is not an integer")
		}
		n = int64(v)
	case string:
		parsed, err := parseNumber(v)
		if err != nil {
			return c.fail(err.Error())
		}
		return coercion{value: parsed, dst: c.dst, unsafe: c.unsafe}.setInt(out)
	case bool:
		if v {
			n = 1
		}
	}

	if out.OverflowInt(n) && !c.unsafe {
		return c.fail("value out of range")
	}

	out.SetInt(n)
	return nil
}

func (c coercion) setUint(out reflect.Value) error {
	var n uint64

	switch v := c.value.(type) {
	case int64:
		if v < 0 && !c.unsafe {
			return c.fail("value out of range")
		}
		n = uint64(v)
	case uint64:
		n = v
	case float64:
		if (v != math.Trunc(v) || !common.InRange(0, v, math.MaxUint64)) && !c.unsafe {
			return c.fail("value is not an unsigned integer")
		}
		n = uint64(v)
	case string:
		parsed, err := parseNumber(v)
		if err != nil {
			return c.fail(err.Error())
		}
		return coercion{value: parsed, dst: c.dst, unsafe: c.unsafe}.setUint(out)
	case bool:
		if v {
			n = 1
		}
	}

	if out.OverflowUint(n) && !c.unsafe {
		return c.fail("value out of range")
	}

	out.SetUint(n)
	return nil
}

func (c coercion) setFloat(out reflect.Value) error {
	var f float64

	switch v := c.value.(type) {
	case int64:
		f = float64(v)
		if int64(f) != v && !c.unsafe {
			return c.fail("value cannot be represented exactly")
		}
	case uint64:
		f = float64(v)
		if uint64(f) != v && !c.unsafe {
			return c.fail("value cannot be represented exactly")
		}
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return c.fail("invalid number")
		}
		f = parsed
	}

	if out.OverflowFloat(f) && !c.unsafe {
		return c.fail("value out of range")
	}

	out.SetFloat(f)
	return nil
}

func (c coercion) setBool(out reflect.Value) error {
	switch v := c.value.(type) {
	case bool:
		out.SetBool(v)
	case int64, uint64:
		switch fmt.Sprint(v) {
		case "0":
			out.SetBool(false)
		case "1":
			out.SetBool(true)
		default:
			return c.fail("only 0 and 1 are boolean numbers")
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			out.SetBool(true)
		case "false", "no", "off", "0":
			out.SetBool(false)
		default:
			return c.fail("not a boolean word")
		}
	default:
		return c.fail("not a boolean")
	}

	return nil
}

func (c coercion) setString(out reflect.Value) error {
	switch v := c.value.(type) {
	case string:
		out.SetString(v)
	case int64:
		out.SetString(strconv.FormatInt(v, 10))
	case uint64:
		out.SetString(strconv.FormatUint(v, 10))
	case float64:
		out.SetString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		out.SetString(strconv.FormatBool(v))
	default:
		return c.fail("not a string")
	}

	return nil
}

func (c coercion) setDuration(out reflect.Value) error {
	switch v := c.value.(type) {
	case int64:
		out.SetInt(v)
	case uint64:
		if v > math.MaxInt64 {
			return c.fail("value out of range")
		}
		out.SetInt(int64(v))
	case float64:
		out.SetInt(int64(v * float64(time.Second)))
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return c.fail("invalid duration")
		}
		out.SetInt(int64(d))
	default:
		return c.fail("not a duration")
	}

	return nil
}

func (c coercion) setTime(out reflect.Value) error {
	var t time.Time

	switch v := c.value.(type) {
	case int64:
		t = time.Unix(v, 0).UTC()
	case uint64:
		if v > math.MaxInt64 {
			return c.fail("value out of range")
		}
		t = time.Unix(int64(v), 0).UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return c.fail("invalid RFC 3339 time")
		}
		t = parsed
	default:
		return c.fail("not a time")
	}

	out.Set(reflect.ValueOf(t))
	return nil
}

func (c coercion) setBytes(out reflect.Value) error {
	switch v := c.value.(type) {
	case []byte:
		out.SetBytes(append([]byte(nil), v...))
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return c.fail("invalid base64")
		}
		out.SetBytes(b)
	default:
		return c.fail("not a byte string")
	}

	return nil
}

func parseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid number")
	}

	return f, nil
}

// Wire returns the scalar held by v in the form token writers accept:
// int64, uint64, float32, float64, bool, string or []byte.
func Wire(v reflect.Value) (any, error) {
	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	}

	switch Underlying(v.Type()) {
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64, KindDuration:
		return v.Int(), nil
	case KindUint, KindUint8, KindUint16, KindUint32, KindUint64:
		return v.Uint(), nil
	case KindFloat32:
		return float32(v.Float()), nil
	case KindFloat64:
		return v.Float(), nil
	case KindBool:
		return v.Bool(), nil
	case KindString:
		return v.String(), nil
	case KindBytes:
		return v.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, v.Type())
	}
}
