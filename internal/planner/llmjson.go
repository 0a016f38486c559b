package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNoJSON = errors.New("no JSON object in model output")

var (
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	singleQuoteKey = regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`)
	missingComma   = regexp.MustCompile(`([}\]"\d]|true|false|null)(\s*\n\s*)("\w+"\s*:|\{)`)
)

// decodeModelJSON decodes the first JSON value in a model reply into T.
// Markdown fences and surrounding prose are ignored. When the value does not
// decode as-is it is repaired once: raw control characters inside strings are
// escaped, trailing and missing commas fixed, single-quoted keys quoted and
// a reply cut off mid-value closed.
func decodeModelJSON[T any](reply string) (T, error) {
	var out T
	body := stripFences(reply)
	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return out, errNoJSON
	}
	body = body[start:]

	err := json.NewDecoder(strings.NewReader(body)).Decode(&out)
	if err == nil {
		return out, nil
	}
	var fixed T
	if rerr := json.NewDecoder(strings.NewReader(repairJSON(body))).Decode(&fixed); rerr == nil {
		return fixed, nil
	}
	return out, fmt.Errorf("decode model JSON: %w", err)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:] // drop the language tag line
		}
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

func repairJSON(s string) string {
	s = escapeControlChars(s)
	s = singleQuoteKey.ReplaceAllString(s, `$1"$2"$3`)
	s = missingComma.ReplaceAllString(s, `$1,$2$3`)
	s = closeTruncated(s)
	return trailingComma.ReplaceAllString(s, `$1`)
}

// escapeControlChars escapes raw control characters that appear inside
// string literals.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			default:
				fmt.Fprintf(&b, `\u%04x`, c)
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeTruncated terminates an unterminated string and closes open brackets
// in nesting order.
func closeTruncated(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
