// Package validators holds the rule-based document analyzers the validation
// Manager runs: technical, completeness, consistency, readability and policy.
package validators

import (
	"regexp"
	"strings"
)

// Heading styles.
const (
	StyleATX       = "atx"
	StyleATXClosed = "atx-closed"
	StyleSetext    = "setext"
)

// Link styles.
const (
	LinkMarkdown = "markdown"
	LinkHTML     = "html"
	LinkRaw      = "raw"
)

type Heading struct {
	Level int
	Text  string
	Line  int
	Style string
}

type CodeBlock struct {
	Lang string
	Code string
	Line int
	// Fence is "```", "~~~" or "indent".
	Fence string
}

type ListItem struct {
	Marker  string
	Ordered bool
	Text    string
	Line    int
}

type Link struct {
	Style string
	Text  string
	URL   string
	Line  int
}

// Paragraph is a run of prose lines between blank lines, headings and blocks.
type Paragraph struct {
	Text string
	Line int
}

// Section is a heading and the lines up to the next heading of any level.
type Section struct {
	Heading Heading
	Body    string
}

// Markdown is the line-oriented structure the validators read.
type Markdown struct {
	Headings   []Heading
	CodeBlocks []CodeBlock
	Lists      []ListItem
	Links      []Link
	Paragraphs []Paragraph
	Sections   []Section
	CodeSpans  []Span
}

// Span is the content of an inline `code span`.
type Span struct {
	Text string
	Line int
}

var (
	atxHeading     = regexp.MustCompile(`^ {0,3}(#{1,6})(?:\s+(.*?))?\s*$`)
	atxClosing     = regexp.MustCompile(`\s+#+$`)
	setextUnder    = regexp.MustCompile(`^ {0,3}(=+|-+)\s*$`)
	fenceOpen      = regexp.MustCompile("^ {0,3}(```+|~~~+)\\s*([^\\s`]*)")
	bulletItem     = regexp.MustCompile(`^\s*([-*+])\s+(.*)$`)
	orderedItem    = regexp.MustCompile(`^\s*(\d+)([.)])\s+(.*)$`)
	thematicBreak  = regexp.MustCompile(`^ {0,3}([-*_])(\s*([-*_]))+\s*$`)
	markdownLink   = regexp.MustCompile(`!?\[([^\]]*)\]\(\s*<?([^)\s>]*)>?(?:\s+"[^"]*")?\s*\)`)
	htmlLink       = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a>`)
	autoLink       = regexp.MustCompile(`<((?:https?|ftp)://[^>\s]+)>`)
	rawURL         = regexp.MustCompile(`(?:https?|ftp)://[^\s<>()"'\]\[]+`)
	inlineCodeSpan = regexp.MustCompile("`([^`]+)`")
)

// Parse scans markdown content. It is forgiving: malformed input yields
// fewer elements, never an error.
func Parse(content string) *Markdown {
	md := &Markdown{}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var (
		fence      string
		block      *CodeBlock
		blockLines []string
		para       []string
		paraLine   int
		prevBlank  = true
		prevList   bool
		sectionIdx = -1
		sectionBuf []string
	)
	flushPara := func() {
		if len(para) > 0 {
			md.Paragraphs = append(md.Paragraphs, Paragraph{Text: strings.Join(para, " "), Line: paraLine})
			para = nil
		}
	}
	flushSection := func() {
		if sectionIdx >= 0 {
			md.Sections[sectionIdx].Body = strings.TrimSpace(strings.Join(sectionBuf, "\n"))
		}
		sectionBuf = nil
	}
	closeBlock := func() {
		block.Code = strings.Join(blockLines, "\n")
		md.CodeBlocks = append(md.CodeBlocks, *block)
		block, blockLines, fence = nil, nil, ""
	}
	addHeading := func(h Heading) {
		flushPara()
		flushSection()
		md.Headings = append(md.Headings, h)
		md.Sections = append(md.Sections, Section{Heading: h})
		sectionIdx = len(md.Sections) - 1
	}

	for i, line := range lines {
		n := i + 1

		if block != nil && block.Fence != "indent" {
			if t := strings.TrimSpace(line); strings.HasPrefix(t, fence) && strings.Trim(t, fence[:1]) == "" {
				closeBlock()
				sectionBuf = append(sectionBuf, line)
				prevBlank = false
				continue
			}
			blockLines = append(blockLines, line)
			sectionBuf = append(sectionBuf, line)
			continue
		}
		if block != nil {
			if strings.TrimSpace(line) == "" || isIndentedCode(line) {
				blockLines = append(blockLines, trimIndent(line))
				sectionBuf = append(sectionBuf, line)
				continue
			}
			for len(blockLines) > 0 && strings.TrimSpace(blockLines[len(blockLines)-1]) == "" {
				blockLines = blockLines[:len(blockLines)-1]
			}
			closeBlock()
		}

		if m := fenceOpen.FindStringSubmatch(line); m != nil {
			flushPara()
			fence = m[1]
			block = &CodeBlock{Lang: strings.ToLower(m[2]), Line: n, Fence: fence[:3]}
			sectionBuf = append(sectionBuf, line)
			prevList = false
			continue
		}
		if prevBlank && !prevList && isIndentedCode(line) {
			flushPara()
			block = &CodeBlock{Line: n, Fence: "indent"}
			blockLines = []string{trimIndent(line)}
			sectionBuf = append(sectionBuf, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flushPara()
			prevBlank = true
			sectionBuf = append(sectionBuf, line)
			continue
		}

		if m := atxHeading.FindStringSubmatch(line); m != nil {
			text, style := m[2], StyleATX
			if atxClosing.MatchString(text) || (text != "" && strings.Trim(text, "#") == "") {
				text, style = strings.TrimSpace(atxClosing.ReplaceAllString(text, "")), StyleATXClosed
			}
			addHeading(Heading{Level: len(m[1]), Text: text, Line: n, Style: style})
			prevBlank, prevList = false, false
			continue
		}
		if m := setextUnder.FindStringSubmatch(line); m != nil && len(para) == 1 && !prevBlank {
			level := 1
			if m[1][0] == '-' {
				level = 2
			}
			text := para[0]
			para = nil
			if len(sectionBuf) > 0 {
				sectionBuf = sectionBuf[:len(sectionBuf)-1]
			}
			addHeading(Heading{Level: level, Text: text, Line: n - 1, Style: StyleSetext})
			prevBlank, prevList = false, false
			continue
		}
		sectionBuf = append(sectionBuf, line)
		if thematicBreak.MatchString(line) {
			flushPara()
			prevBlank, prevList = false, false
			continue
		}

		md.scanInline(line, n)

		if m := bulletItem.FindStringSubmatch(line); m != nil {
			flushPara()
			md.Lists = append(md.Lists, ListItem{Marker: m[1], Text: m[2], Line: n})
			md.Paragraphs = append(md.Paragraphs, Paragraph{Text: m[2], Line: n})
			prevBlank, prevList = false, true
			continue
		}
		if m := orderedItem.FindStringSubmatch(line); m != nil {
			flushPara()
			md.Lists = append(md.Lists, ListItem{Marker: m[2], Ordered: true, Text: m[3], Line: n})
			md.Paragraphs = append(md.Paragraphs, Paragraph{Text: m[3], Line: n})
			prevBlank, prevList = false, true
			continue
		}
		if strings.HasPrefix(trimmed, "|") || strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, ">") {
			// Tables, raw HTML and quotes are not prose paragraphs.
			flushPara()
			prevBlank = false
			continue
		}
		if prevList && !prevBlank && isIndentedCode(line) {
			continue
		}
		if len(para) == 0 {
			paraLine = n
		}
		para = append(para, trimmed)
		prevBlank = false
		if !strings.HasPrefix(line, " ") {
			prevList = false
		}
	}
	if block != nil {
		closeBlock()
	}
	flushPara()
	flushSection()
	return md
}

func (md *Markdown) scanInline(line string, n int) {
	for _, m := range inlineCodeSpan.FindAllStringSubmatch(line, -1) {
		md.CodeSpans = append(md.CodeSpans, Span{Text: m[1], Line: n})
	}
	rest := inlineCodeSpan.ReplaceAllString(line, "")
	for _, m := range htmlLink.FindAllStringSubmatch(rest, -1) {
		md.Links = append(md.Links, Link{Style: LinkHTML, URL: m[1], Text: m[2], Line: n})
	}
	rest = htmlLink.ReplaceAllString(rest, "")
	for _, m := range markdownLink.FindAllStringSubmatch(rest, -1) {
		md.Links = append(md.Links, Link{Style: LinkMarkdown, Text: m[1], URL: m[2], Line: n})
	}
	rest = markdownLink.ReplaceAllString(rest, "")
	for _, m := range autoLink.FindAllStringSubmatch(rest, -1) {
		md.Links = append(md.Links, Link{Style: LinkRaw, URL: m[1], Line: n})
	}
	rest = autoLink.ReplaceAllString(rest, "")
	for _, u := range rawURL.FindAllString(rest, -1) {
		md.Links = append(md.Links, Link{Style: LinkRaw, URL: strings.TrimRight(u, ".,;:!?"), Line: n})
	}
}

func isIndentedCode(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}

func trimIndent(line string) string {
	if strings.HasPrefix(line, "\t") {
		return line[1:]
	}
	if strings.HasPrefix(line, "    ") {
		return line[4:]
	}
	return strings.TrimLeft(line, " ")
}

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+(?:["')\]]*)(?:\s+|$)`)
	emphasis    = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*|\d+(?:[.,]\d+)*`)
)

// PlainText strips inline markup from a prose line.
func PlainText(s string) string {
	s = inlineCodeSpan.ReplaceAllString(s, "code")
	s = htmlLink.ReplaceAllString(s, "$2")
	s = markdownLink.ReplaceAllString(s, "$1")
	s = autoLink.ReplaceAllString(s, "link")
	s = rawURL.ReplaceAllString(s, "link")
	s = emphasis.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Sentences splits plain text on terminal punctuation. A trailing fragment
// without punctuation counts as a sentence.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

// Words returns the word tokens of s.
func Words(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

// excerpt shortens s for issue context.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}
