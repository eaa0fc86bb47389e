package token

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEnd is returned when input ends inside a container.
var ErrUnexpectedEnd = errors.New("token: unexpected end of input")

// Current returns the token r is positioned on.
func Current(r Reader) Token {
	return Token{Type: r.Type(), Value: r.Value(), Depth: r.Depth(), Offset: r.Offset()}
}

// Next advances r and fails at the end of input.
func Next(r Reader) error {
	ok, err := r.Read()
	if err != nil {
		return err
	}

	if !ok {
		return ErrUnexpectedEnd
	}

	return nil
}

// NextContent advances r past comments.
func NextContent(r Reader) error {
	for {
		if err := Next(r); err != nil {
			return err
		}

		if r.Type() != Comment {
			return nil
		}
	}
}

// Skip moves r from a property name or a container start to the last token
// of that value. On a scalar it does nothing.
func Skip(r Reader) error {
	if r.Type() == PropertyName {
		if err := NextContent(r); err != nil {
			return err
		}
	}

	if !r.Type().IsStart() {
		return nil
	}

	depth := r.Depth()
	for {
		if err := Next(r); err != nil {
			return err
		}

		if r.Depth() == depth && r.Type().IsEnd() {
			return nil
		}
	}
}

// Capture records the value r is positioned on, from its first to its last
// token, leaving r on the last token.
func Capture(r Reader) ([]Token, error) {
	tokens := []Token{Current(r)}
	if !r.Type().IsStart() {
		return tokens, nil
	}

	depth := r.Depth()
	for {
		if err := Next(r); err != nil {
			return nil, err
		}

		tokens = append(tokens, Current(r))

		if r.Depth() == depth && r.Type().IsEnd() {
			return tokens, nil
		}
	}
}

// Copy writes the value r is positioned on to w, leaving r on its last token.
func Copy(w Writer, r Reader) error {
	depth := r.Depth()

	for {
		var err error

		switch r.Type() {
		case StartObject:
			err = w.WriteStartObject()
		case EndObject:
			err = w.WriteEndObject()
		case StartArray:
			err = w.WriteStartArray()
		case EndArray:
			err = w.WriteEndArray()
		case PropertyName:
			err = w.WritePropertyName(fmt.Sprint(r.Value()))
		case Comment:
			err = w.WriteComment(fmt.Sprint(r.Value()))
		case Null:
			err = w.WriteNull()
		case Integer, Float, String, Boolean:
			err = w.WriteValue(r.Value())
		default:
			err = fmt.Errorf("token: cannot copy %s", r.Type())
		}

		if err != nil {
			return err
		}

		if r.Depth() == depth && r.Type() != PropertyName && !r.Type().IsStart() {
			return nil
		}

		if err := Next(r); err != nil {
			return err
		}
	}
}

// Replay reads captured tokens back. It starts before the first token.
type Replay struct {
	tokens []Token
	pos    int
}

// NewReplay returns a Reader over tokens.
func NewReplay(tokens []Token) *Replay {
	return &Replay{tokens: tokens, pos: -1}
}

func (r *Replay) Read() (bool, error) {
	if r.pos+1 >= len(r.tokens) {
		r.pos = len(r.tokens)
		return false, nil
	}

	r.pos++
	return true, nil
}

func (r *Replay) current() Token {
	if r.pos < 0 || r.pos >= len(r.tokens) {
		return Token{}
	}

	return r.tokens[r.pos]
}

func (r *Replay) Type() Type { return r.current().Type }

func (r *Replay) Value() any { return r.current().Value }

func (r *Replay) Depth() int { return r.current().Depth }

func (r *Replay) Offset() int64 { return r.current().Offset }

// Chain reads the tokens of first, then continues with rest. The engine
// uses it to re-walk a buffered object and carry on with the live stream.
func Chain(first []Token, rest Reader) Reader {
	return &chained{replay: NewReplay(first), rest: rest}
}

type chained struct {
	replay *Replay
	rest   Reader
	onRest bool
}

func (c *chained) Read() (bool, error) {
	if !c.onRest {
		ok, err := c.replay.Read()
		if ok || err != nil {
			return ok, err
		}

		c.onRest = true
	}

	return c.rest.Read()
}

func (c *chained) active() Reader {
	if c.onRest {
		return c.rest
	}

	return c.replay
}

func (c *chained) Type() Type { return c.active().Type() }

func (c *chained) Value() any { return c.active().Value() }

func (c *chained) Depth() int { return c.active().Depth() }

func (c *chained) Offset() int64 { return c.active().Offset() }
