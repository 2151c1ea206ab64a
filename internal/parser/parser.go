// Package parser normalizes uploaded sources into plain indexable text.
package parser

// Parser converts a declared-format document body into normalized text
// suitable for chunking. Parsers have no side effects and never fail on
// empty input.
type Parser interface {
	Parse(content string) (string, error)
}

// New returns the parser for a declared file type. Unknown types fall back
// to plain-text treatment.
func New(fileType string) Parser {
	switch fileType {
	case "markdown", "md":
		return &markdownParser{}
	default:
		return &textParser{}
	}
}
