package parser

import (
	"regexp"
	"strings"
)

// markdownParser strips markdown scaffolding while keeping the readable
// text, including heading titles, so section context survives chunking.
type markdownParser struct{}

var (
	fenceRe      = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n?(.*?)```")
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s?`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	orderedRe    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	imageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	emphasisRe   = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
)

func (p *markdownParser) Parse(content string) (string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	// code fences keep their body, lose the fences
	normalized = fenceRe.ReplaceAllString(normalized, "$1")

	normalized = headingRe.ReplaceAllString(normalized, "")
	normalized = blockquoteRe.ReplaceAllString(normalized, "")
	normalized = bulletRe.ReplaceAllString(normalized, "")
	normalized = orderedRe.ReplaceAllString(normalized, "")
	normalized = imageRe.ReplaceAllString(normalized, "$1")
	normalized = linkRe.ReplaceAllString(normalized, "$1")
	normalized = emphasisRe.ReplaceAllString(normalized, "$2")
	normalized = inlineCodeRe.ReplaceAllString(normalized, "$1")

	return strings.TrimSpace(normalized), nil
}
