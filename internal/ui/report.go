package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/util"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

// ValidationResult prints one document's verdict and its issues, most severe
// first.
func (p *Printer) ValidationResult(label string, r validation.Result) {
	word, vs := verdict(r.IsValid)
	s := r.Summary()
	p.Printf("%s %s  %s\n", p.Style(vs, word), p.Style(StyleTitle, label),
		p.Style(StyleSubtle, fmt.Sprintf("%d critical, %d errors, %d warnings, %d info", s.CriticalCount, s.ErrorCount, s.WarningCount, s.InfoCount)))

	issues := slices.Clone(r.Issues)
	slices.SortStableFunc(issues, func(a, b validation.Issue) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	for _, is := range issues {
		loc := ""
		if is.Location != "" {
			loc = p.Style(StyleSubtle, " ("+is.Location+")")
		}
		p.Printf("  %-8s %-13s %s%s\n",
			p.Style(severityStyle(is.Severity), strings.ToUpper(string(is.Severity))),
			string(is.Type), is.Message, loc)
		for _, sug := range is.Suggestions {
			p.Printf("           %s %s\n", p.Style(StyleSubtle, "→"), sug)
		}
	}
}

// ValidationOutcome prints the primary result and any cascaded results.
func (p *Printer) ValidationOutcome(path string, out validation.Outcome) {
	label := path
	if label == "" {
		label = out.Primary.DocumentID
	}
	p.ValidationResult(label, out.Primary)
	ids := make([]string, 0, len(out.Related))
	for id := range out.Related {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p.ValidationResult("  ↳ "+id, out.Related[id])
	}
}

// Feature prints a feature's fields.
func (p *Printer) Feature(f connector.Feature) {
	p.Header(f.Name, f.ID)
	p.Field("Status", f.Status)
	p.Field("Priority", f.Priority)
	p.Field("Domain", f.Domain)
	p.Field("Purpose", f.Purpose)
	p.Field("Tags", strings.Join(f.Tags, ", "))
	p.Field("Milestone", f.MilestoneID)
	p.Field("Phase", f.PhaseID)
	p.Field("Module", f.ModuleID)
	p.Field("Version", f.Version)
	if f.Placeholder {
		p.Field("Placeholder", "yes")
	}
	if f.Description != "" {
		p.Section("Description")
		p.Println("  " + f.Description)
	}
	if len(f.Requirements) > 0 {
		p.Section("Requirements")
		for _, r := range f.Requirements {
			p.Println("  - " + r)
		}
	}
	if len(f.UserStories) > 0 {
		p.Section("User stories")
		for _, s := range f.UserStories {
			p.Println("  - " + s)
		}
	}
}

// Features prints feature summaries as a table.
func (p *Printer) Features(fs []connector.FeatureSummary) {
	if len(fs) == 0 {
		p.Println(p.Style(StyleSubtle, "No features found."))
		return
	}
	t := &Table{Headers: []string{"ID", "Name", "Status", "Domain", "Tags"}, MaxWidth: 40}
	for _, f := range fs {
		t.Rows = append(t.Rows, []string{f.ID, f.Name, string(f.Status), f.Domain, strings.Join(f.Tags, ",")})
	}
	p.Table(t)
}

// Related prints related features grouped by relation, in the canonical
// relation order.
func (p *Printer) Related(rel map[connector.Relation][]connector.RelatedFeature) {
	for _, r := range connector.AllRelations {
		items, ok := rel[r]
		if !ok {
			continue
		}
		p.Section(strings.ReplaceAll(string(r), "_", " "))
		if len(items) == 0 {
			p.Println(p.Style(StyleSubtle, "  none"))
			continue
		}
		for _, f := range items {
			extra := ""
			switch {
			case f.Depth > 0:
				extra = fmt.Sprintf(" depth %d", f.Depth)
			case len(f.SharedConcepts) > 0:
				extra = " " + strings.Join(f.SharedConcepts, ", ")
			}
			p.Printf("  %s %s%s\n", f.ID, f.Name, p.Style(StyleSubtle, extra))
		}
	}
}

// Tasks prints tasks as a table.
func (p *Printer) Tasks(ts []task.Task) {
	if len(ts) == 0 {
		p.Println(p.Style(StyleSubtle, "No tasks."))
		return
	}
	t := &Table{Headers: []string{"ID", "Name", "Stage", "Status", "Hours", "Depends on"}, MaxWidth: 48}
	for _, tk := range ts {
		deps := make([]string, len(tk.Dependencies))
		for i, d := range tk.Dependencies {
			deps[i] = util.ShortID(d, 12)
		}
		t.Rows = append(t.Rows, []string{
			tk.ID, tk.Name, string(tk.Stage), string(tk.Status),
			fmt.Sprintf("%.1f", tk.EstimatedHours), strings.Join(deps, ","),
		})
	}
	p.Table(t)
}

// Progress prints a one-line completion bar and the status breakdown.
func (p *Printer) Progress(pr task.Progress) {
	const width = 20
	filled := int(pr.Percent / 100 * width)
	bar := p.Style(styleBarDone, strings.Repeat("█", filled)) + p.Style(styleBarLeft, strings.Repeat("░", width-filled))
	p.Printf("%s %5.1f%%  %d/%d tasks, %.1f/%.1f hours\n", bar, pr.Percent, pr.Completed, pr.Total, pr.HoursDone, pr.Hours)
	p.Printf("  not started %d, in progress %d, blocked %d\n", pr.NotStarted, pr.InProgress, pr.Blocked)
}

// Stats prints node and edge counts by type.
func (p *Printer) Stats(s graph.Stats) {
	p.Header("Knowledge graph", fmt.Sprintf("%d nodes, %d edges", s.Nodes, s.Edges))
	nodes := &Table{Headers: []string{"Node type", "Count"}}
	for _, typ := range sortedKeys(s.NodesByType) {
		nodes.Rows = append(nodes.Rows, []string{string(typ), fmt.Sprint(s.NodesByType[typ])})
	}
	edges := &Table{Headers: []string{"Edge type", "Count"}}
	for _, typ := range sortedKeys(s.EdgesByType) {
		edges.Rows = append(edges.Rows, []string{typ, fmt.Sprint(s.EdgesByType[typ])})
	}
	p.Println()
	p.Table(nodes)
	p.Println()
	p.Table(edges)
}

// Inconsistencies prints index check findings.
func (p *Printer) Inconsistencies(found []graph.Inconsistency) {
	if len(found) == 0 {
		p.Success("Indices consistent")
		return
	}
	for _, in := range found {
		subject := in.NodeID
		if subject == "" {
			subject = in.EdgeID
		}
		p.Printf("%s %-14s %s %s\n", p.Style(StyleError, "✗"), in.Kind, subject, in.Message)
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
