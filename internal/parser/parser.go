// Package parser splits protocol lines into command tokens.
package parser

import "strings"

// Split returns the space-separated fields of line. Runs of spaces count as a
// single separator and leading or trailing spaces produce no empty tokens.
// Only the ASCII space is a separator; tabs and other whitespace are part of a token.
func Split(line string) []string {
	return strings.FieldsFunc(line, isSeparator)
}

func isSeparator(r rune) bool {
	return r == ' '
}
