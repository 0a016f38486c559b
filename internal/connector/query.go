package connector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/task"
)

// FeatureQuery filters features. Every set field must match; Tags matches
// when any requested tag is on the feature. Limit <= 0 means no cap.
type FeatureQuery struct {
	Domain              string      `json:"domain,omitempty" mapstructure:"domain"`
	Purpose             string      `json:"purpose,omitempty" mapstructure:"purpose"`
	Tags                []string    `json:"tags,omitempty" mapstructure:"tags"`
	MilestoneID         string      `json:"milestone,omitempty" mapstructure:"milestone"`
	PhaseID             string      `json:"phase,omitempty" mapstructure:"phase"`
	ModuleID            string      `json:"module,omitempty" mapstructure:"module"`
	Status              task.Status `json:"status,omitempty" mapstructure:"status"`
	IncludePlaceholders bool        `json:"include_placeholders,omitempty" mapstructure:"include_placeholders"`
	Limit               int         `json:"limit,omitempty" mapstructure:"limit"`
}

// QueryFeatures scans feature nodes in creation order and returns those
// matching q.
func (c *Connector) QueryFeatures(q FeatureQuery) []FeatureSummary {
	want := make(map[string]bool, len(q.Tags))
	for _, t := range q.Tags {
		if n := c.normalizeTag(t); n != "" {
			want[n] = true
		}
	}

	var out []FeatureSummary
	for _, n := range c.store.GetNodesByType(graph.NodeFeature) {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		f, err := featureFromNode(n)
		if err != nil {
			continue
		}
		if f.Placeholder && !q.IncludePlaceholders {
			continue
		}
		if !matchFold(q.Domain, f.Domain) || !matchFold(q.Purpose, f.Purpose) {
			continue
		}
		if !matchExact(q.MilestoneID, f.MilestoneID) || !matchExact(q.PhaseID, f.PhaseID) || !matchExact(q.ModuleID, f.ModuleID) {
			continue
		}
		if q.Status != "" && q.Status != f.Status {
			continue
		}
		if len(want) > 0 && !c.anyTag(f.Tags, want) {
			continue
		}
		out = append(out, f.Summary())
	}
	return out
}

func (c *Connector) normalizeTag(t string) string {
	if c.tags == nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return c.tags.Normalize(t)
}

func (c *Connector) anyTag(have []string, want map[string]bool) bool {
	for _, t := range have {
		if want[c.normalizeTag(t)] {
			return true
		}
	}
	return false
}

func matchFold(filter, value string) bool {
	return filter == "" || strings.EqualFold(strings.TrimSpace(filter), value)
}

func matchExact(filter, value string) bool {
	return filter == "" || filter == value
}

// Relation names a category of related features.
type Relation string

const (
	RelDependencies   Relation = "dependencies"
	RelDependents     Relation = "dependents"
	RelSameDomain     Relation = "same_domain"
	RelSamePurpose    Relation = "same_purpose"
	RelSameModule     Relation = "same_module"
	RelSharedConcepts Relation = "shared_concepts"
)

// AllRelations is every category GetRelatedFeatures understands.
var AllRelations = []Relation{RelDependencies, RelDependents, RelSameDomain, RelSamePurpose, RelSameModule, RelSharedConcepts}

const (
	defaultRelatedLimit = 10
	maxRelatedDepth     = 10
)

// RelatedQuery selects categories and bounds. MaxDepth applies to the
// dependency walks; Limit caps each category separately.
type RelatedQuery struct {
	Relations []Relation `json:"relation_types,omitempty" mapstructure:"relation_types"`
	MaxDepth  int        `json:"max_depth,omitempty" mapstructure:"max_depth"`
	Limit     int        `json:"limit,omitempty" mapstructure:"limit"`
}

// RelatedFeature is a feature reached from the query feature.
type RelatedFeature struct {
	FeatureSummary
	Depth          int      `json:"depth,omitempty"`
	SharedConcepts []string `json:"shared_concepts,omitempty"`
}

// GetRelatedFeatures groups features related to id. Dependencies and
// dependents are walked breadth-first up to MaxDepth hops.
func (c *Connector) GetRelatedFeatures(id string, q RelatedQuery) (map[Relation][]RelatedFeature, error) {
	f, err := c.GetFeature(id)
	if err != nil {
		return nil, err
	}
	relations := q.Relations
	if len(relations) == 0 {
		relations = AllRelations
	}
	depth := min(max(q.MaxDepth, 1), maxRelatedDepth)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultRelatedLimit
	}

	out := make(map[Relation][]RelatedFeature, len(relations))
	for _, rel := range relations {
		var found []RelatedFeature
		switch rel {
		case RelDependencies:
			found = c.walkDependencies(id, graph.Outgoing, depth, limit)
		case RelDependents:
			found = c.walkDependencies(id, graph.Incoming, depth, limit)
		case RelSameDomain:
			if f.Domain != "" {
				found = c.sameAs(id, FeatureQuery{Domain: f.Domain}, limit)
			}
		case RelSamePurpose:
			if f.Purpose != "" {
				found = c.sameAs(id, FeatureQuery{Purpose: f.Purpose}, limit)
			}
		case RelSameModule:
			if f.ModuleID != "" {
				found = c.sameAs(id, FeatureQuery{ModuleID: f.ModuleID}, limit)
			}
		case RelSharedConcepts:
			found = c.sharedConcepts(id, limit)
		default:
			return nil, fmt.Errorf("unknown relation type %q", rel)
		}
		out[rel] = nonNilRelated(found)
	}
	return out, nil
}

func (c *Connector) walkDependencies(start string, dir graph.Direction, maxDepth, limit int) []RelatedFeature {
	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{start: true}
	queue := []item{{start, 0}}
	var out []RelatedFeature

	for len(queue) > 0 && len(out) < limit {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, n := range graph.ConnectedByType(c.store, cur.id, dir, graph.EdgeFeatureDependsOn) {
			if visited[n.ID] || n.Type != graph.NodeFeature {
				continue
			}
			visited[n.ID] = true
			f, err := featureFromNode(n)
			if err != nil {
				continue
			}
			out = append(out, RelatedFeature{FeatureSummary: f.Summary(), Depth: cur.depth + 1})
			if len(out) >= limit {
				break
			}
			queue = append(queue, item{n.ID, cur.depth + 1})
		}
	}
	return out
}

func (c *Connector) sameAs(self string, q FeatureQuery, limit int) []RelatedFeature {
	var out []RelatedFeature
	for _, s := range c.QueryFeatures(q) {
		if s.ID == self {
			continue
		}
		out = append(out, RelatedFeature{FeatureSummary: s})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// sharedConcepts ranks features by how many concepts they share with id.
func (c *Connector) sharedConcepts(id string, limit int) []RelatedFeature {
	shared := make(map[string][]string)
	for _, concept := range graph.ConnectedByType(c.store, id, graph.Outgoing, graph.EdgeFeatureRelatedToConcept) {
		for _, other := range graph.ConnectedByType(c.store, concept.ID, graph.Incoming, graph.EdgeFeatureRelatedToConcept) {
			if other.ID == id {
				continue
			}
			shared[other.ID] = append(shared[other.ID], concept.String("name"))
		}
	}
	ids := make([]string, 0, len(shared))
	for fid := range shared {
		ids = append(ids, fid)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(shared[ids[i]]) != len(shared[ids[j]]) {
			return len(shared[ids[i]]) > len(shared[ids[j]])
		}
		return ids[i] < ids[j]
	})

	var out []RelatedFeature
	for _, fid := range ids {
		if len(out) >= limit {
			break
		}
		f, err := c.GetFeature(fid)
		if err != nil || f.Placeholder {
			continue
		}
		out = append(out, RelatedFeature{FeatureSummary: f.Summary(), SharedConcepts: shared[fid]})
	}
	return out
}

func nonNilRelated(r []RelatedFeature) []RelatedFeature {
	if r == nil {
		return []RelatedFeature{}
	}
	return r
}
