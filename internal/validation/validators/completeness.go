package validators

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// requiredSections lists, per document type, the sections a complete
// document has. Each entry is a set of accepted names.
var requiredSections = map[validation.DocumentType][][]string{
	validation.DocRequirements: {
		{"overview", "introduction", "summary", "purpose"},
		{"requirements", "functional requirements", "user stories"},
		{"acceptance criteria", "success criteria", "definition of done"},
	},
	validation.DocDesign: {
		{"overview", "summary", "context"},
		{"architecture", "design", "approach", "solution"},
		{"components", "modules", "data model"},
		{"alternatives", "alternatives considered", "trade-offs", "tradeoffs"},
	},
	validation.DocAPI: {
		{"overview", "introduction"},
		{"authentication", "auth", "authorization"},
		{"endpoints", "resources", "api reference", "operations"},
		{"errors", "error handling", "error codes"},
	},
	validation.DocArchitecture: {
		{"overview", "context", "introduction"},
		{"components", "building blocks", "containers"},
		{"decisions", "architecture decisions", "rationale"},
		{"deployment", "infrastructure", "operations"},
	},
	validation.DocUserGuide: {
		{"introduction", "overview", "getting started"},
		{"installation", "setup", "install"},
		{"usage", "how to", "tutorial"},
		{"troubleshooting", "faq", "common problems"},
	},
	validation.DocTestPlan: {
		{"scope", "overview", "objectives"},
		{"strategy", "approach", "test approach"},
		{"test cases", "scenarios", "test scenarios"},
		{"environment", "test environment", "setup"},
	},
	validation.DocReadme: {
		{"installation", "install", "getting started", "setup"},
		{"usage", "quick start", "quickstart", "examples"},
		{"license", "licence"},
	},
}

// exampleRules gives the minimum number of code examples per document type
// and the languages at least one of them should use.
var exampleRules = map[validation.DocumentType]struct {
	min   int
	langs []string
}{
	validation.DocAPI:       {2, []string{"json", "http", "bash", "curl"}},
	validation.DocUserGuide: {1, []string{"bash", "console", "shell", "sh"}},
	validation.DocReadme:    {1, []string{"bash", "console", "shell", "sh"}},
	validation.DocDesign:    {0, nil},
	validation.DocTestPlan:  {0, nil},
}

// requiredLinks maps a document type to the type it must be linked to.
var requiredLinks = map[validation.DocumentType]validation.DocumentType{
	validation.DocDesign:   validation.DocRequirements,
	validation.DocAPI:      validation.DocDesign,
	validation.DocTestPlan: validation.DocRequirements,
}

// Completeness checks that a document has the sections, examples and links
// its type calls for.
type Completeness struct {
	cfg   validation.CompletenessConfig
	graph validation.KnowledgeGraph
}

// NewCompleteness returns a Completeness validator. graph may be nil, which
// turns the relationship check off.
func NewCompleteness(cfg validation.CompletenessConfig, graph validation.KnowledgeGraph) *Completeness {
	return &Completeness{cfg: cfg, graph: graph}
}

func (c *Completeness) Name() string { return validation.NameCompleteness }

func (c *Completeness) Validate(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	md := Parse(doc.Content)
	var out []validation.Issue
	if c.cfg.CheckMandatorySections {
		out = append(out, checkSections(doc.Type, md)...)
	}
	if c.cfg.CheckEmptySections {
		out = append(out, checkEmptySections(md)...)
	}
	if c.cfg.CheckExamples {
		out = append(out, checkExamples(doc.Type, md)...)
	}
	if c.cfg.CheckRelationships && c.graph != nil {
		issues, err := c.checkRelationships(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, issues...)
	}
	return out, nil
}

func completeness(sev validation.Severity, format string, args ...any) validation.Issue {
	return validation.NewIssue(validation.IssueCompleteness, sev, fmt.Sprintf(format, args...))
}

var sectionNumber = regexp.MustCompile(`^[\d.]+\s*|[^\p{L}\p{N}\s-]`)

func normalizeHeading(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = sectionNumber.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// sectionMatches accepts exact names, containment either way for names
// longer than three characters, and small typos.
func sectionMatches(heading, want string) bool {
	if heading == want {
		return true
	}
	if len(heading) > 3 && len(want) > 3 && (strings.Contains(heading, want) || strings.Contains(want, heading)) {
		return true
	}
	return len(want) > 5 && levenshtein.ComputeDistance(heading, want) <= len(want)/5
}

func checkSections(typ validation.DocumentType, md *Markdown) []validation.Issue {
	required := requiredSections[typ]
	if len(required) == 0 {
		return nil
	}
	headings := make([]string, 0, len(md.Headings))
	for _, h := range md.Headings {
		headings = append(headings, normalizeHeading(h.Text))
	}
	var out []validation.Issue
	for _, alternatives := range required {
		found := slices.ContainsFunc(headings, func(h string) bool {
			return slices.ContainsFunc(alternatives, func(a string) bool { return sectionMatches(h, a) })
		})
		if !found {
			out = append(out, completeness(validation.SeverityError, "missing required section %q", alternatives[0]).
				Suggest(fmt.Sprintf("add a section named one of: %s", strings.Join(alternatives, ", "))).
				With("document_type", string(typ)))
		}
	}
	return out
}

// checkEmptySections flags headings with no body. A heading followed directly
// by a deeper heading is a parent and counts as filled.
func checkEmptySections(md *Markdown) []validation.Issue {
	var out []validation.Issue
	for i, s := range md.Sections {
		if s.Body != "" {
			continue
		}
		if i+1 < len(md.Sections) && md.Sections[i+1].Heading.Level > s.Heading.Level {
			continue
		}
		out = append(out, completeness(validation.SeverityInfo, "section %q is empty", s.Heading.Text).
			At(fmt.Sprintf("line %d", s.Heading.Line)))
	}
	return out
}

func checkExamples(typ validation.DocumentType, md *Markdown) []validation.Issue {
	rule, ok := exampleRules[typ]
	if !ok {
		return nil
	}
	var out []validation.Issue
	if len(md.CodeBlocks) < rule.min {
		out = append(out, completeness(validation.SeverityWarning, "expected at least %d code examples, found %d", rule.min, len(md.CodeBlocks)))
	}
	if len(rule.langs) > 0 && len(md.CodeBlocks) > 0 {
		covered := slices.ContainsFunc(md.CodeBlocks, func(b CodeBlock) bool { return slices.Contains(rule.langs, b.Lang) })
		if !covered {
			out = append(out, completeness(validation.SeverityInfo, "no example in any of: %s", strings.Join(rule.langs, ", ")))
		}
	}
	return out
}

func (c *Completeness) checkRelationships(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	want, ok := requiredLinks[doc.Type]
	if !ok {
		return nil, nil
	}
	related, err := c.graph.RelatedDocuments(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("related documents of %s: %w", doc.ID, err)
	}
	if slices.ContainsFunc(related, func(r validation.Document) bool { return r.Type == want }) {
		return nil, nil
	}
	return []validation.Issue{
		completeness(validation.SeverityWarning, "%s document is not linked to any %s document", doc.Type, want).
			Suggest(fmt.Sprintf("list the %s document under related in the front matter", want)),
	}, nil
}
