// Package naming maps Go member names to wire names.
//
// A Strategy is a pure function of the member name. Strategies are compared
// by value when contracts are cached, so implementations must be comparable
// (the built-in strategies are small structs).
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy resolves wire names for members and dictionary keys.
type Strategy interface {
	// PropertyName returns the wire name of a member. hasSpecifiedName is
	// true when the member carries an explicit name in its tag.
	PropertyName(name string, hasSpecifiedName bool) string
	// DictionaryKey returns the wire name of a dictionary key.
	DictionaryKey(key string) string
}

// Options are shared by the built-in strategies.
type Options struct {
	// OverrideSpecified applies the strategy to explicitly named members too.
	OverrideSpecified bool
	// ProcessDictionaryKeys applies the strategy to dictionary keys.
	ProcessDictionaryKeys bool
}

func (o Options) apply(name string, hasSpecifiedName bool, fn func(string) string) string {
	if hasSpecifiedName && !o.OverrideSpecified {
		return name
	}

	return fn(name)
}

func (o Options) key(key string, fn func(string) string) string {
	if !o.ProcessDictionaryKeys {
		return key
	}

	return fn(key)
}

// Default leaves names untouched.
type Default struct{}

func (Default) PropertyName(name string, _ bool) string { return name }

func (Default) DictionaryKey(key string) string { return key }

// CamelCase writes "OrderID" as "orderID" and "URLValue" as "urlValue".
type CamelCase struct{ Options }

func (s CamelCase) PropertyName(name string, hasSpecifiedName bool) string {
	return s.apply(name, hasSpecifiedName, ToCamel)
}

func (s CamelCase) DictionaryKey(key string) string { return s.key(key, ToCamel) }

// SnakeCase writes "OrderID" as "order_id".
type SnakeCase struct{ Options }

func (s SnakeCase) PropertyName(name string, hasSpecifiedName bool) string {
	return s.apply(name, hasSpecifiedName, ToSnake)
}

func (s SnakeCase) DictionaryKey(key string) string { return s.key(key, ToSnake) }

// KebabCase writes "OrderID" as "order-id".
type KebabCase struct{ Options }

func (s KebabCase) PropertyName(name string, hasSpecifiedName bool) string {
	return s.apply(name, hasSpecifiedName, ToKebab)
}

func (s KebabCase) DictionaryKey(key string) string { return s.key(key, ToKebab) }

// ToCamel lower-cases the leading run of capitals, keeping the capital that
// starts the next word: "ID" -> "id", "URLValue" -> "urlValue", "Name" -> "name".
func ToCamel(s string) string {
	if s == "" {
		return s
	}

	first, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(first) {
		return s
	}

	runes := []rune(s)
	for i := range runes {
		if i == 1 && !unicode.IsUpper(runes[i]) {
			break
		}

		hasNext := i+1 < len(runes)
		if i > 0 && hasNext && !unicode.IsUpper(runes[i+1]) {
			// "URLValue": keep 'V' upper, stop before it
			if unicode.IsSpace(runes[i+1]) {
				runes[i] = unicode.ToLower(runes[i])
			}

			break
		}

		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}

// ToSnake joins the lower-cased words of s with underscores.
func ToSnake(s string) string {
	return joinLower(s, "_")
}

// ToKebab joins the lower-cased words of s with dashes.
func ToKebab(s string) string {
	return joinLower(s, "-")
}

func joinLower(s, sep string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}

	return strings.Join(words, sep)
}

// Normalize folds an identifier for fuzzy comparison: "order_id" and
// "OrderID" both become "orderid".
func Normalize(s string) string {
	return strings.ToLower(strings.Join(Words(s), ""))
}
