package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFallsBackToText(t *testing.T) {
	assert.IsType(t, &textParser{}, New("text"))
	assert.IsType(t, &textParser{}, New(""))
	assert.IsType(t, &textParser{}, New("pdf"))
	assert.IsType(t, &markdownParser{}, New("markdown"))
	assert.IsType(t, &markdownParser{}, New("md"))
}

func TestTextParser(t *testing.T) {
	p := New("text")

	out, err := p.Parse("  hello world  \n")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	out, err = p.Parse("line one\r\nline two\rline three")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", out)
}

func TestTextParserEmptyInput(t *testing.T) {
	p := New("text")
	out, err := p.Parse("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestMarkdownParserStripsScaffolding(t *testing.T) {
	p := New("markdown")

	md := "# Title\n\nSome **bold** and *italic* text with `code`.\n\n" +
		"## Section\n\n- first item\n- second item\n\n" +
		"> a quote\n\n" +
		"[link text](https://example.com) and ![alt](img.png)\n\n" +
		"```go\nfmt.Println(\"hi\")\n```"

	out, err := p.Parse(md)
	require.NoError(t, err)

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Some bold and italic text with code.")
	assert.Contains(t, out, "Section")
	assert.Contains(t, out, "first item")
	assert.Contains(t, out, "a quote")
	assert.Contains(t, out, "link text")
	assert.Contains(t, out, "alt")
	assert.Contains(t, out, `fmt.Println("hi")`)

	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "```")
	assert.NotContains(t, out, "https://example.com")
}

func TestMarkdownParserEmptyInput(t *testing.T) {
	p := New("md")
	out, err := p.Parse("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
