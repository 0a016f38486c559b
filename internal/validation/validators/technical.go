package validators

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Technical checks code blocks, API references, shell commands and URLs.
// The four checks run concurrently and their issues are joined in that order.
type Technical struct {
	cfg validation.TechnicalConfig
}

// NewTechnical returns a Technical validator.
func NewTechnical(cfg validation.TechnicalConfig) *Technical {
	return &Technical{cfg: cfg}
}

func (t *Technical) Name() string { return validation.NameTechnical }

func (t *Technical) Validate(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	md := Parse(doc.Content)
	var parts [4][]validation.Issue
	checks := []struct {
		on  bool
		run func(*Markdown) []validation.Issue
	}{
		{t.cfg.CheckCodeBlocks, t.checkCodeBlocks},
		{t.cfg.CheckAPIReferences, checkAPIReferences},
		{t.cfg.CheckCommands, checkCommands},
		{t.cfg.CheckURLs, checkURLs},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		if !c.on {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = c.run(md)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []validation.Issue
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func technical(sev validation.Severity, line int, format string, args ...any) validation.Issue {
	return validation.NewIssue(validation.IssueTechnical, sev, fmt.Sprintf(format, args...)).
		At(fmt.Sprintf("line %d", line))
}

var langAliases = map[string]string{
	"py": "python", "python3": "python",
	"js": "javascript", "jsx": "javascript", "node": "javascript",
	"ts": "typescript", "tsx": "typescript",
	"golang": "go",
	"yml":    "yaml",
	"sh":     "bash", "shell": "bash", "zsh": "bash", "console": "bash", "shell-session": "bash",
	"c++": "cpp", "rs": "rust",
}

func normalizeLang(lang string) string {
	if a, ok := langAliases[lang]; ok {
		return a
	}
	return lang
}

var braceLangs = map[string]bool{
	"go": true, "javascript": true, "typescript": true, "java": true, "c": true, "cpp": true,
	"csharp": true, "rust": true, "kotlin": true, "swift": true, "php": true, "python": true,
}

func (t *Technical) checkCodeBlocks(md *Markdown) []validation.Issue {
	var out []validation.Issue
	for _, b := range md.CodeBlocks {
		lang := normalizeLang(b.Lang)
		if t.cfg.CheckLanguageTags && b.Fence != "indent" && lang == "" {
			out = append(out, technical(validation.SeverityWarning, b.Line, "code block has no language tag").
				WithContext(excerpt(b.Code, 60)).
				Suggest("add a language after the opening fence, e.g. ```go"))
		}
		if strings.TrimSpace(b.Code) == "" {
			continue
		}
		if t.cfg.CheckSyntax {
			out = append(out, checkSyntax(lang, b)...)
		}
		if t.cfg.CheckIndentation && lang != "makefile" {
			out = append(out, checkIndentation(b, t.cfg.IndentDominance)...)
		}
		if t.cfg.CheckImports {
			out = append(out, checkImports(lang, b)...)
		}
	}
	return out
}

func checkSyntax(lang string, b CodeBlock) []validation.Issue {
	var out []validation.Issue
	switch lang {
	case "json":
		var v any
		if err := json.Unmarshal([]byte(b.Code), &v); err != nil {
			out = append(out, technical(validation.SeverityError, b.Line, "invalid JSON: %v", err))
		}
		return out
	case "yaml":
		var v any
		if err := yaml.Unmarshal([]byte(b.Code), &v); err != nil {
			out = append(out, technical(validation.SeverityError, b.Line, "invalid YAML: %v", err))
		}
		return out
	}
	if braceLangs[lang] {
		if msg := unbalanced(b.Code, lang); msg != "" {
			out = append(out, technical(validation.SeverityError, b.Line, "%s code block has %s", lang, msg))
		}
	}
	switch lang {
	case "python":
		out = append(out, checkPythonColons(b)...)
	case "javascript", "typescript":
		out = append(out, checkJavaScript(b)...)
	}
	return out
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

// unbalanced reports the first bracket mismatch, skipping string literals
// and line comments. It is a heuristic, not a parser.
func unbalanced(code, lang string) string {
	var stack []rune
	comment := commentMarker(lang)
	for _, line := range strings.Split(code, "\n") {
		var quote rune
		escaped := false
		for i, r := range line {
			if quote != 0 {
				switch {
				case escaped:
					escaped = false
				case r == '\\':
					escaped = true
				case r == quote:
					quote = 0
				}
				continue
			}
			if strings.HasPrefix(line[i:], comment) {
				break
			}
			switch r {
			case '"', '\'', '`':
				if r == '\'' && lang != "python" && lang != "javascript" && lang != "typescript" && lang != "php" {
					// Rust lifetimes and C chars are short; treat as literal only if closed nearby.
					if j := strings.IndexRune(line[i+1:], '\''); j < 0 || j > 4 {
						continue
					}
				}
				quote = r
			case '(', '[', '{':
				stack = append(stack, r)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != closers[r] {
					return fmt.Sprintf("an unmatched %q", r)
				}
				stack = stack[:len(stack)-1]
			}
		}
		if quote == '`' {
			// Template literals may span lines; stop checking rather than guess.
			return ""
		}
	}
	if len(stack) > 0 {
		return fmt.Sprintf("%d unclosed %q", len(stack), stack[len(stack)-1])
	}
	return ""
}

var pythonBlockStart = regexp.MustCompile(`^\s*(def|class|if|elif|else|for|while|try|except|finally|with|async def|async for|async with)\b`)

func checkPythonColons(b CodeBlock) []validation.Issue {
	var out []validation.Issue
	lines := strings.Split(b.Code, "\n")
	for i, line := range lines {
		if !pythonBlockStart.MatchString(line) {
			continue
		}
		code := strings.TrimSpace(stripComment(stripStrings(line), "#"))
		if strings.HasSuffix(code, ":") || strings.HasSuffix(code, "\\") || strings.HasSuffix(code, "(") || strings.HasSuffix(code, ",") {
			continue
		}
		// A one-line conditional expression is not a block.
		if strings.Contains(code, ":") || strings.Contains(code, " if ") && strings.Contains(code, " else ") {
			continue
		}
		out = append(out, technical(validation.SeverityError, b.Line+i+1, "python statement is missing a trailing colon").
			WithContext(code))
	}
	return out
}

var (
	jsVar         = regexp.MustCompile(`(^|[\s;(])var\s+\w`)
	jsNoStatement = regexp.MustCompile(`[{}(,\[:]$|^(//|/\*|\*|import\b|export\b.*\{$|if\b|else\b|for\b|while\b|function\b|class\b|switch\b|case\b|default\b|try\b|catch\b|finally\b|return$|\}|\)|\])`)
)

func checkJavaScript(b CodeBlock) []validation.Issue {
	var out []validation.Issue
	if jsVar.MatchString(b.Code) {
		out = append(out, technical(validation.SeverityInfo, b.Line, "code block uses var").
			Suggest("prefer let or const"))
	}
	with, without := 0, 0
	for _, line := range strings.Split(b.Code, "\n") {
		code := strings.TrimSpace(stripComment(stripStrings(line), "//"))
		if code == "" || jsNoStatement.MatchString(code) {
			continue
		}
		if strings.HasSuffix(code, ";") {
			with++
		} else {
			without++
		}
	}
	if with > 0 && without > 0 {
		out = append(out, technical(validation.SeverityInfo, b.Line, "inconsistent semicolon usage (%d with, %d without)", with, without))
	}
	return out
}

func commentMarker(lang string) string {
	if lang == "python" {
		return "#"
	}
	return "//"
}

func stripComment(line, marker string) string {
	if i := strings.Index(line, marker); i >= 0 {
		return line[:i]
	}
	return line
}

func checkIndentation(b CodeBlock, dominance float64) []validation.Issue {
	tabs, spaces := 0, 0
	var widths []int
	for _, line := range strings.Split(b.Code, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "\t"):
			tabs++
		case strings.HasPrefix(line, " "):
			spaces++
			widths = append(widths, len(line)-len(strings.TrimLeft(line, " ")))
		}
	}
	if tabs > 0 && spaces > 0 {
		return []validation.Issue{technical(validation.SeverityWarning, b.Line, "code block mixes tab and space indentation")}
	}
	if len(widths) < 3 {
		return nil
	}
	// Count the indent unit each line implies and require one to dominate.
	units := map[int]int{}
	for _, w := range widths {
		switch {
		case w%4 == 0:
			units[4]++
		case w%2 == 0:
			units[2]++
		default:
			units[w]++
		}
	}
	best := 0
	for _, c := range units {
		best = max(best, c)
	}
	if units[4] > 0 && units[2] > 0 && len(units) == 2 {
		// Four-space lines are also valid at a two-space unit.
		best = units[4] + units[2]
	}
	if float64(best)/float64(len(widths)) < dominance {
		return []validation.Issue{technical(validation.SeverityInfo, b.Line, "inconsistent indentation width in code block")}
	}
	return nil
}

var (
	pyImport     = regexp.MustCompile(`(?m)^\s*import\s+(.+)$`)
	pyFromImport = regexp.MustCompile(`(?m)^\s*from\s+\S+\s+import\s+\(?([^)\n]+)`)
	jsImport     = regexp.MustCompile(`(?m)^\s*import\s+(.+?)\s+from\s+['"]`)
	jsRequire    = regexp.MustCompile(`(?:const|let|var)\s+(\{[^}]*\}|\w+)\s*=\s*require\(`)
	assigned     = regexp.MustCompile(`(?m)(?:^|[\s,(])(?:const|let|var|def|class|function)?\s*(\w+)\s*(?:=[^=]|\bin\b|:=)`)
	declared     = regexp.MustCompile(`\b(?:def|class|function|const|let|var|for|as|catch)\s*\(?\s*(\w+)`)
	params       = regexp.MustCompile(`(?:def\s+\w+|function\s*\w*)\s*\(([^)]*)\)|\(([^()]*)\)\s*=>`)
	qualifiedUse = regexp.MustCompile(`(?:^|[^\w.])([A-Za-z_]\w*)\.[A-Za-z_]\w*`)
	leadingIdent = regexp.MustCompile(`^[A-Za-z_]\w*`)
)

var knownGlobals = map[string]map[string]bool{
	"python": setOf("self", "cls", "super", "print", "len", "str", "int", "float", "dict", "list", "set", "tuple",
		"bytes", "object", "type", "Exception", "ValueError", "KeyError", "TypeError", "RuntimeError", "open", "range"),
	"javascript": setOf("console", "Math", "JSON", "Object", "Array", "Promise", "window", "document", "process",
		"module", "exports", "this", "String", "Number", "Date", "Error", "Symbol", "Map", "Set", "Reflect",
		"globalThis", "navigator", "localStorage", "fetch", "Buffer"),
}

func init() {
	knownGlobals["typescript"] = knownGlobals["javascript"]
}

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// checkImports flags module-qualified names that are neither imported nor
// defined. Blocks without any import are treated as excerpts and skipped.
func checkImports(lang string, b CodeBlock) []validation.Issue {
	globals, ok := knownGlobals[lang]
	if !ok {
		return nil
	}
	known := map[string]bool{}
	addNames := func(list string) {
		for _, part := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == '{' || r == '}' }) {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			name := fields[len(fields)-1]
			known[strings.SplitN(name, ".", 2)[0]] = true
		}
	}
	switch lang {
	case "python":
		for _, m := range pyImport.FindAllStringSubmatch(b.Code, -1) {
			addNames(m[1])
		}
		for _, m := range pyFromImport.FindAllStringSubmatch(b.Code, -1) {
			addNames(m[1])
		}
	default:
		for _, m := range jsImport.FindAllStringSubmatch(b.Code, -1) {
			addNames(strings.ReplaceAll(m[1], "* as", ""))
		}
		for _, m := range jsRequire.FindAllStringSubmatch(b.Code, -1) {
			addNames(m[1])
		}
	}
	if len(known) == 0 {
		return nil
	}
	for _, re := range []*regexp.Regexp{assigned, declared} {
		for _, m := range re.FindAllStringSubmatch(b.Code, -1) {
			known[m[1]] = true
		}
	}
	for _, m := range params.FindAllStringSubmatch(b.Code, -1) {
		for _, p := range strings.Split(m[1]+","+m[2], ",") {
			if name := leadingIdent.FindString(strings.TrimLeft(p, " *.")); name != "" {
				known[name] = true
			}
		}
	}

	var out []validation.Issue
	reported := map[string]bool{}
	for i, line := range strings.Split(b.Code, "\n") {
		code := stripStrings(stripComment(line, commentMarker(lang)))
		for _, m := range qualifiedUse.FindAllStringSubmatch(code, -1) {
			name := m[1]
			if known[name] || globals[name] || reported[name] {
				continue
			}
			reported[name] = true
			out = append(out, technical(validation.SeverityWarning, b.Line+i+1, "%q is used but never imported", name).
				Suggest(fmt.Sprintf("add an import for %s", name)))
		}
	}
	return out
}

var stringLiteral = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|` + "`[^`]*`")

func stripStrings(s string) string {
	return stringLiteral.ReplaceAllString(s, `""`)
}

var (
	apiReference = regexp.MustCompile(`(?i)\b(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\s+(\S+)`)
	requestLine  = regexp.MustCompile(`(?i)^\s*(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)\s`)
	colonParam   = regexp.MustCompile(`/:\w+`)
	braceParam   = regexp.MustCompile(`\{\w+\}`)
)

// checkAPIReferences looks at `METHOD /path` references in inline code and
// http blocks.
func checkAPIReferences(md *Markdown) []validation.Issue {
	var out []validation.Issue
	colon, brace := 0, 0
	check := func(ref string, line int) {
		for _, m := range apiReference.FindAllStringSubmatch(ref, -1) {
			method, path := m[1], strings.TrimRight(m[2], ".,;")
			if method != strings.ToUpper(method) {
				out = append(out, technical(validation.SeverityInfo, line, "HTTP method %q should be uppercase", method))
			}
			if !strings.HasPrefix(path, "/") && !strings.Contains(path, "://") {
				out = append(out, technical(validation.SeverityWarning, line, "API path %q should start with /", path))
			}
			if strings.Count(path, "{") != strings.Count(path, "}") {
				out = append(out, technical(validation.SeverityError, line, "API path %q has unbalanced braces", path))
			}
			if colonParam.MatchString(path) {
				colon++
			}
			if braceParam.MatchString(path) {
				brace++
			}
		}
	}
	for _, c := range md.CodeSpans {
		check(c.Text, c.Line)
	}
	for _, b := range md.CodeBlocks {
		if b.Lang == "http" {
			for i, line := range strings.Split(b.Code, "\n") {
				if requestLine.MatchString(line) {
					check(strings.TrimSpace(line), b.Line+i+1)
				}
			}
		}
	}
	if colon > 0 && brace > 0 {
		out = append(out, validation.NewIssue(validation.IssueTechnical, validation.SeverityInfo,
			"API paths mix :param and {param} placeholders"))
	}
	return out
}

var (
	rmRoot     = regexp.MustCompile(`\brm\s+(?:-[a-zA-Z]*[rR][a-zA-Z]*\s+)+(?:--no-preserve-root\s+)?/(?:\*|\s|$)`)
	pipeShell  = regexp.MustCompile(`\b(?:curl|wget)\b[^|]*\|\s*(?:sudo\s+)?(?:ba|z)?sh\b`)
	chmod777   = regexp.MustCompile(`\bchmod\s+(?:-R\s+)?777\b`)
	gitForce   = regexp.MustCompile(`\bgit\s+push\b.*(?:\s--force(?:\s|$)|\s-f\b)`)
	sudoNPM    = regexp.MustCompile(`\bsudo\s+npm\b`)
	python2    = regexp.MustCompile(`(?:^|[\s;&|])python(?:\s|$)`)
	pipInstall = regexp.MustCompile(`(?:^|[\s;&|])pip\s+install\b`)
)

// checkCommands inspects shell snippets: bash-like blocks and untagged blocks
// whose lines start with a "$ " prompt.
func checkCommands(md *Markdown) []validation.Issue {
	var out []validation.Issue
	for _, b := range md.CodeBlocks {
		lang := normalizeLang(b.Lang)
		prompted := lang == "" && strings.HasPrefix(strings.TrimSpace(b.Code), "$ ")
		if lang != "bash" && !prompted {
			continue
		}
		for i, line := range strings.Split(b.Code, "\n") {
			cmd := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "$ "))
			if cmd == "" || strings.HasPrefix(cmd, "#") {
				continue
			}
			n := b.Line + i + 1
			switch {
			case rmRoot.MatchString(cmd):
				out = append(out, validation.NewIssue(validation.IssueSecurity, validation.SeverityCritical,
					"command deletes the filesystem root").At(fmt.Sprintf("line %d", n)).WithContext(cmd))
			case pipeShell.MatchString(cmd):
				out = append(out, validation.NewIssue(validation.IssueSecurity, validation.SeverityError,
					"command pipes a download straight into a shell").At(fmt.Sprintf("line %d", n)).WithContext(cmd).
					Suggest("download the script, inspect it, then run it"))
			case chmod777.MatchString(cmd):
				out = append(out, validation.NewIssue(validation.IssueSecurity, validation.SeverityWarning,
					"chmod 777 makes files world-writable").At(fmt.Sprintf("line %d", n)).WithContext(cmd))
			}
			if gitForce.MatchString(cmd) {
				out = append(out, technical(validation.SeverityWarning, n, "git push --force can discard remote history").
					WithContext(cmd).Suggest("use --force-with-lease"))
			}
			if sudoNPM.MatchString(cmd) {
				out = append(out, technical(validation.SeverityWarning, n, "avoid running npm with sudo").WithContext(cmd))
			}
			if python2.MatchString(cmd) {
				out = append(out, technical(validation.SeverityInfo, n, "python may resolve to Python 2").
					WithContext(cmd).Suggest("use python3"))
			}
			if pipInstall.MatchString(cmd) {
				out = append(out, technical(validation.SeverityInfo, n, "bare pip may not match the active interpreter").
					WithContext(cmd).Suggest("use python3 -m pip install"))
			}
		}
	}
	return out
}

func checkURLs(md *Markdown) []validation.Issue {
	var out []validation.Issue
	for _, l := range md.Links {
		if l.URL == "" {
			if l.Style == LinkMarkdown {
				out = append(out, technical(validation.SeverityWarning, l.Line, "link %q has an empty target", l.Text))
			}
			continue
		}
		if strings.HasPrefix(l.URL, "#") || strings.HasPrefix(l.URL, "mailto:") {
			continue
		}
		u, err := url.Parse(l.URL)
		if err != nil {
			out = append(out, technical(validation.SeverityError, l.Line, "malformed URL %q", l.URL))
			continue
		}
		if u.Scheme == "" {
			continue // relative link
		}
		if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
			out = append(out, technical(validation.SeverityError, l.Line, "URL %q has no host", l.URL))
			continue
		}
		if u.Scheme == "http" && !isLocalHost(u.Hostname()) {
			out = append(out, technical(validation.SeverityInfo, l.Line, "URL %q uses http", l.URL).
				Suggest("use https"))
		}
	}
	return out
}

func isLocalHost(h string) bool {
	return h == "localhost" || h == "127.0.0.1" || h == "::1" || strings.HasSuffix(h, ".local")
}
