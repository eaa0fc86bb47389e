package serializer

import (
	"fmt"

	"graph-serializer/options"
	"graph-serializer/token"
)

type metadata struct {
	id       string
	hasID    bool
	ref      string
	hasRef   bool
	typeName string
	hasType  bool
	// values is set when the reader stopped on the "$values" property name
	values bool
}

// readMetadata consumes the leading $ref, $id and $type members of the
// object the reader is positioned on. It stops on the first other property
// name, on "$values", or on EndObject. In read-ahead mode the object is
// buffered first and its metadata moved to the front, so the returned reader
// must be used from then on.
func (o *operation) readMetadata(r token.Reader) (metadata, token.Reader, error) {
	var meta metadata

	switch o.settings.MetadataHandling {
	case options.MetadataIgnore:
		return meta, r, o.nextContent(r)
	case options.MetadataReadAhead:
		tokens, err := token.Capture(r)
		if err != nil {
			return meta, r, o.wrap(KindStructural, err)
		}

		r = token.Chain(metadataFirst(tokens), r)
		if err := o.next(r); err != nil {
			return meta, r, err
		}
	}

	if err := o.nextContent(r); err != nil {
		return meta, r, err
	}

	for r.Type() == token.PropertyName {
		name, _ := r.Value().(string)

		switch name {
		case keyRef:
			ref, err := o.metadataValue(r, name)
			if err != nil {
				return meta, r, err
			}

			meta.ref, meta.hasRef = ref, true

			if err := o.nextContent(r); err != nil {
				return meta, r, err
			}

			if r.Type() != token.EndObject {
				return meta, r, o.fail(KindStructural, nil,
					"additional content found in JSON reference object, a reference object should only have a %s property", keyRef)
			}

			return meta, r, nil
		case keyID:
			id, err := o.metadataValue(r, name)
			if err != nil {
				return meta, r, err
			}

			meta.id, meta.hasID = id, true
		case keyType:
			typeName, err := o.metadataValue(r, name)
			if err != nil {
				return meta, r, err
			}

			meta.typeName, meta.hasType = typeName, true
		case keyValues:
			meta.values = true
			return meta, r, nil
		default:
			return meta, r, nil
		}

		if err := o.nextContent(r); err != nil {
			return meta, r, err
		}
	}

	return meta, r, nil
}

func (o *operation) metadataValue(r token.Reader, name string) (string, error) {
	if err := o.nextContent(r); err != nil {
		return "", err
	}

	switch r.Type() {
	case token.String, token.Integer:
		return fmt.Sprint(r.Value()), nil
	default:
		return "", o.fail(KindStructural, nil, "unexpected %s token for %s", r.Type(), name)
	}
}

// metadataFirst reorders a captured object so $ref, $id and $type lead.
func metadataFirst(tokens []token.Token) []token.Token {
	if len(tokens) < 2 || tokens[0].Type != token.StartObject {
		return tokens
	}

	memberDepth := tokens[0].Depth + 1
	groups := map[string][]token.Token{}

	var rest []token.Token

	body := tokens[1 : len(tokens)-1]
	for i := 0; i < len(body); {
		j := i + 1
		for j < len(body) && !(body[j].Type == token.PropertyName && body[j].Depth == memberDepth) {
			j++
		}

		member := body[i:j]
		name, _ := member[0].Value.(string)

		switch name {
		case keyRef, keyID, keyType:
			if _, dup := groups[name]; !dup {
				groups[name] = member
				break
			}

			rest = append(rest, member...)
		default:
			rest = append(rest, member...)
		}

		i = j
	}

	out := make([]token.Token, 0, len(tokens))
	out = append(out, tokens[0])
	out = append(out, groups[keyRef]...)
	out = append(out, groups[keyID]...)
	out = append(out, groups[keyType]...)
	out = append(out, rest...)

	return append(out, tokens[len(tokens)-1])
}
