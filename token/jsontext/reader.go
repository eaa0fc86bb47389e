// Package jsontext reads and writes JSON text as token streams.
package jsontext

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"graph-serializer/token"
)

type frame struct {
	object    bool
	expectKey bool
}

// Reader is a token.Reader over JSON text.
type Reader struct {
	dec    *json.Decoder
	stack  []frame
	typ    token.Type
	value  any
	depth  int
	offset int64
}

var _ token.Reader = (*Reader)(nil)

// NewReader returns a Reader consuming r. Several top-level values may follow
// each other.
func NewReader(r io.Reader) *Reader {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	return &Reader{dec: dec}
}

// NewReaderString returns a Reader over s.
func NewReaderString(s string) *Reader {
	return NewReader(strings.NewReader(s))
}

func (r *Reader) Read() (bool, error) {
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(r.stack) > 0 {
				return false, fmt.Errorf("jsontext: %w", io.ErrUnexpectedEOF)
			}

			r.typ, r.value = token.None, nil
			return false, nil
		}

		return false, fmt.Errorf("jsontext: offset %d: %w", r.dec.InputOffset(), err)
	}

	r.offset = r.dec.InputOffset()
	r.value = nil
	r.depth = len(r.stack)

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			r.typ = token.StartObject
			r.stack = append(r.stack, frame{object: true, expectKey: true})
		case '[':
			r.typ = token.StartArray
			r.stack = append(r.stack, frame{})
		case '}':
			r.typ = token.EndObject
			r.pop()
		case ']':
			r.typ = token.EndArray
			r.pop()
		}

		return true, nil
	case string:
		if top := r.top(); top != nil && top.object && top.expectKey {
			r.typ, r.value = token.PropertyName, v
			top.expectKey = false

			return true, nil
		}

		r.typ, r.value = token.String, v
	case json.Number:
		typ, n, err := number(v)
		if err != nil {
			return false, fmt.Errorf("jsontext: offset %d: %w", r.offset, err)
		}

		r.typ, r.value = typ, n
	case bool:
		r.typ, r.value = token.Boolean, v
	case nil:
		r.typ = token.Null
	}

	r.valueDone()

	return true, nil
}

func (r *Reader) top() *frame {
	if len(r.stack) == 0 {
		return nil
	}

	return &r.stack[len(r.stack)-1]
}

func (r *Reader) pop() {
	r.stack = r.stack[:len(r.stack)-1]
	r.depth = len(r.stack)
	r.valueDone()
}

func (r *Reader) valueDone() {
	if top := r.top(); top != nil && top.object {
		top.expectKey = true
	}
}

func (r *Reader) Type() token.Type { return r.typ }

func (r *Reader) Value() any { return r.value }

func (r *Reader) Depth() int { return r.depth }

func (r *Reader) Offset() int64 { return r.offset }

// number classifies a JSON number as int64, then uint64, then float64.
func number(n json.Number) (token.Type, any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return token.Integer, i, nil
		}

		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return token.Integer, u, nil
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return token.None, nil, err
	}

	return token.Float, f, nil
}
