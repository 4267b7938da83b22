package index

import "strings"

// Document maps field names to text.
type Document map[string]string

// Tokenize lowercases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
