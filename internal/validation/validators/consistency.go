package validators

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Consistency checks heading hierarchy, style homogeneity, link style,
// cross references and version alignment with related documents.
type Consistency struct {
	cfg   validation.ConsistencyConfig
	graph validation.KnowledgeGraph
}

// NewConsistency returns a Consistency validator. graph may be nil, which
// turns the cross reference and version checks off.
func NewConsistency(cfg validation.ConsistencyConfig, graph validation.KnowledgeGraph) *Consistency {
	return &Consistency{cfg: cfg, graph: graph}
}

func (c *Consistency) Name() string { return validation.NameConsistency }

func (c *Consistency) Validate(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	md := Parse(doc.Content)
	var out []validation.Issue
	if c.cfg.CheckHeadingHierarchy {
		out = append(out, checkHeadingHierarchy(md)...)
	}
	if c.cfg.CheckStyle {
		out = append(out, c.checkStyles(md)...)
	}
	if c.cfg.CheckLinks {
		out = append(out, c.checkLinkStyle(md)...)
	}
	if c.graph == nil {
		return out, nil
	}
	if c.cfg.CheckCrossReferences {
		issues, err := c.checkCrossReferences(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, issues...)
	}
	if c.cfg.CheckVersions && doc.Version != "" {
		issues, err := c.checkVersions(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, issues...)
	}
	return out, nil
}

func consistency(sev validation.Severity, format string, args ...any) validation.Issue {
	return validation.NewIssue(validation.IssueConsistency, sev, fmt.Sprintf(format, args...))
}

func checkHeadingHierarchy(md *Markdown) []validation.Issue {
	var out []validation.Issue
	for i := 1; i < len(md.Headings); i++ {
		prev, cur := md.Headings[i-1], md.Headings[i]
		if cur.Level > prev.Level+1 {
			out = append(out, consistency(validation.SeverityWarning, "heading level jumps from H%d to H%d", prev.Level, cur.Level).
				At(fmt.Sprintf("line %d", cur.Line)).
				WithContext(cur.Text))
		}
	}
	return out
}

// styleGroup counts the styles used for one kind of element.
type styleGroup struct {
	name     string
	counts   map[string]int
	order    []string
	total    int
	reported bool
}

func newStyleGroup(name string) *styleGroup {
	return &styleGroup{name: name, counts: map[string]int{}}
}

func (g *styleGroup) add(style string) {
	if g.counts[style] == 0 {
		g.order = append(g.order, style)
	}
	g.counts[style]++
	g.total++
}

// check reports the group once when it has enough items and more than one
// style.
func (g *styleGroup) check(min int) (validation.Issue, bool) {
	if g.reported || g.total < min || len(g.order) < 2 {
		return validation.Issue{}, false
	}
	g.reported = true
	parts := make([]string, 0, len(g.order))
	for _, s := range g.order {
		parts = append(parts, fmt.Sprintf("%s (%d)", s, g.counts[s]))
	}
	return consistency(validation.SeverityInfo, "inconsistent %s style: %s", g.name, strings.Join(parts, ", ")).
		With("group", g.name), true
}

func (c *Consistency) checkStyles(md *Markdown) []validation.Issue {
	headings := newStyleGroup("heading")
	for _, h := range md.Headings {
		headings.add(h.Style)
	}
	bullets := newStyleGroup("bullet list")
	numbered := newStyleGroup("numbered list")
	for _, l := range md.Lists {
		if l.Ordered {
			numbered.add("1" + l.Marker)
		} else {
			bullets.add(l.Marker)
		}
	}
	fences := newStyleGroup("code block")
	for _, b := range md.CodeBlocks {
		fences.add(b.Fence)
	}

	var out []validation.Issue
	for _, g := range []*styleGroup{headings, bullets, numbered, fences} {
		if issue, ok := g.check(c.cfg.MinStyleOccurrences); ok {
			out = append(out, issue)
		}
	}
	return out
}

// checkLinkStyle tolerates a small share of raw URLs mixed with one other
// link style.
func (c *Consistency) checkLinkStyle(md *Markdown) []validation.Issue {
	g := newStyleGroup("link")
	for _, l := range md.Links {
		g.add(l.Style)
	}
	if len(g.order) < 2 {
		return nil
	}
	if len(g.order) == 2 && g.counts[LinkRaw] > 0 &&
		float64(g.counts[LinkRaw])/float64(g.total) < c.cfg.RawURLMinority {
		return nil
	}
	if issue, ok := g.check(0); ok {
		return []validation.Issue{issue.Suggest("use one link style throughout")}
	}
	return nil
}

func (c *Consistency) checkCrossReferences(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	var out []validation.Issue
	for _, ref := range doc.Related {
		if ref == "" || ref == doc.ID {
			continue
		}
		ok, err := c.graph.DocumentExists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("check reference %s: %w", ref, err)
		}
		if !ok {
			out = append(out, consistency(validation.SeverityWarning, "related document %q does not exist", ref).With("reference", ref))
			continue
		}
		back, err := c.graph.References(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("references of %s: %w", ref, err)
		}
		if !slices.Contains(back, doc.ID) {
			out = append(out, consistency(validation.SeverityInfo, "%q does not reference %q back", ref, doc.ID).With("reference", ref))
		}
	}
	return out, nil
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// checkVersions requires related documents to share the document's
// major.minor version.
func (c *Consistency) checkVersions(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	own := canonicalVersion(doc.Version)
	if !semver.IsValid(own) {
		return []validation.Issue{consistency(validation.SeverityInfo, "version %q is not a semantic version", doc.Version)}, nil
	}
	related, err := c.graph.RelatedDocuments(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("related documents of %s: %w", doc.ID, err)
	}
	var out []validation.Issue
	for _, r := range related {
		other := canonicalVersion(r.Version)
		if r.Version == "" || !semver.IsValid(other) {
			continue
		}
		if semver.MajorMinor(own) != semver.MajorMinor(other) {
			out = append(out, consistency(validation.SeverityWarning, "version %s does not match %s of related document %q", doc.Version, r.Version, r.ID).
				With("reference", r.ID))
		}
	}
	return out, nil
}
