package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Title\n" +
	"=====\n" +
	"\n" +
	"Intro paragraph with a [link](https://example.com) and `GET /users`.\n" +
	"\n" +
	"## Setup ##\n" +
	"\n" +
	"- one\n" +
	"- two\n" +
	"* three\n" +
	"\n" +
	"1. first\n" +
	"2) second\n" +
	"\n" +
	"```go\n" +
	"func main() {}\n" +
	"```\n" +
	"\n" +
	"    indented code\n" +
	"\n" +
	"~~~\n" +
	"plain\n" +
	"~~~\n"

func TestParse(t *testing.T) {
	md := Parse(sample)

	require.Len(t, md.Headings, 2)
	assert.Equal(t, Heading{Level: 1, Text: "Title", Line: 1, Style: StyleSetext}, md.Headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Setup", Line: 6, Style: StyleATXClosed}, md.Headings[1])

	require.Len(t, md.CodeBlocks, 3)
	assert.Equal(t, CodeBlock{Lang: "go", Code: "func main() {}", Line: 15, Fence: "```"}, md.CodeBlocks[0])
	assert.Equal(t, CodeBlock{Code: "indented code", Line: 19, Fence: "indent"}, md.CodeBlocks[1])
	assert.Equal(t, CodeBlock{Code: "plain", Line: 21, Fence: "~~~"}, md.CodeBlocks[2])

	var markers []string
	for _, l := range md.Lists {
		markers = append(markers, l.Marker)
	}
	assert.Equal(t, []string{"-", "-", "*", ".", ")"}, markers)

	require.Len(t, md.Links, 1)
	assert.Equal(t, Link{Style: LinkMarkdown, Text: "link", URL: "https://example.com", Line: 4}, md.Links[0])
	assert.Equal(t, []Span{{Text: "GET /users", Line: 4}}, md.CodeSpans)

	require.Len(t, md.Sections, 2)
	assert.Equal(t, "Intro paragraph with a [link](https://example.com) and `GET /users`.", md.Sections[0].Body)
	assert.Contains(t, md.Sections[1].Body, "func main() {}")
}

func TestParse_LinkStyles(t *testing.T) {
	md := Parse(`See <a href="https://a.io">A</a>, <https://b.io> and https://c.io/x.`)
	require.Len(t, md.Links, 3)
	assert.Equal(t, LinkHTML, md.Links[0].Style)
	assert.Equal(t, "https://a.io", md.Links[0].URL)
	assert.Equal(t, Link{Style: LinkRaw, URL: "https://b.io", Line: 1}, md.Links[1])
	assert.Equal(t, Link{Style: LinkRaw, URL: "https://c.io/x", Line: 1}, md.Links[2])
}

func TestParse_UnclosedFence(t *testing.T) {
	md := Parse("# A\n\n```python\nprint(1)\n")
	require.Len(t, md.CodeBlocks, 1)
	assert.Equal(t, "python", md.CodeBlocks[0].Lang)
	assert.Empty(t, md.Paragraphs, "code is not prose")
}

func TestSentencesAndWords(t *testing.T) {
	assert.Equal(t, []string{"One two.", "Three four!", "Five"}, Sentences("One two. Three four! Five"))
	assert.Equal(t, []string{"Version v1.2.3 is out."}, Sentences("Version v1.2.3 is out."))
	assert.Equal(t, []string{"It's", "well-known", "42"}, Words("It's well-known: 42."))
	assert.Equal(t, "Read the docs and run code", PlainText("Read **the** [docs](x.md) and run `make`"))
}
