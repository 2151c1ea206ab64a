package parser

import "strings"

// textParser passes content through with line endings and surrounding
// whitespace normalized.
type textParser struct{}

func (p *textParser) Parse(content string) (string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.TrimSpace(normalized), nil
}
