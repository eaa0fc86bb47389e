package naming

import (
	"strings"
	"unicode"
)

// Words splits a Go identifier into its words.
// Examples:
//   - "OrderID" -> ["Order", "ID"]
//   - "customerName" -> ["customer", "Name"]
//   - "XMLParser" -> ["XML", "Parser"]
//   - "getHTTPResponse" -> ["get", "HTTP", "Response"]
//   - "order_item-ID" -> ["order", "item", "ID"]
func Words(s string) []string {
	if s == "" {
		return nil
	}

	var words []string

	var current strings.Builder

	runes := []rune(s)
	for i := range runes {
		r := runes[i]

		if isSeparator(r) {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && startsWord(runes, i) && current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}

// startsWord reports whether a new word begins at position i.
func startsWord(runes []rune, i int) bool {
	r := runes[i]
	prev := runes[i-1]

	if isSeparator(prev) {
		return false
	}

	// "orderID": lower -> upper
	if unicode.IsUpper(r) && !unicode.IsUpper(prev) {
		return true
	}

	// "XMLParser": the last capital of an acronym starts the next word
	if unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}

	return false
}
