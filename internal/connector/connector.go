// Package connector is the feature and task domain layer over the knowledge
// graph. It creates placement ancestors, wires containment, dependency and
// concept edges, and persists the graph after every successful operation.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/tags"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/util"
)

// Connector serializes all writes behind one mutex, so callers may share it
// across goroutines.
type Connector struct {
	mu    sync.Mutex
	store graph.Store
	tags  *tags.Manager
	now   func() time.Time
	title cases.Caser
}

// New returns a Connector over store. tm may be nil, in which case tags are
// stored as given and no concept nodes are derived.
func New(store graph.Store, tm *tags.Manager) *Connector {
	return &Connector{
		store: store,
		tags:  tm,
		now:   time.Now,
		title: cases.Title(language.English),
	}
}

// Store exposes the underlying graph for read-only collaborators.
func (c *Connector) Store() graph.Store { return c.store }

// AddFeature creates a feature and everything it hangs off: placement
// ancestors, containment edge, dependency placeholders, concept, domain and
// purpose nodes. The operation is all-or-nothing; on any failure, including
// the final save, every node and edge it created is removed again.
//
// A placeholder node left behind by an earlier dependency is upgraded in place.
func (c *Connector) AddFeature(ctx context.Context, in FeatureInput) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in.ID = strings.TrimSpace(in.ID)
	existing, exists := c.store.GetNode(in.ID)
	if exists && (existing.Type != graph.NodeFeature || !isPlaceholder(existing)) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateFeature, in.ID)
	}

	now := c.now().UTC()
	f := in.Feature
	f.Placeholder = false
	f.CreatedAt, f.UpdatedAt = now, now
	if f.Status == "" {
		f.Status = task.StatusNotStarted
	}
	if f.Priority == "" {
		f.Priority = task.PriorityMedium
	}
	if err := util.ValidateStruct(&f); err != nil {
		return "", err
	}
	for _, d := range in.Dependencies {
		if d.ID == f.ID {
			return "", fmt.Errorf("feature %s cannot depend on itself", f.ID)
		}
	}
	f.Tags = c.processTags(f.Tags, f.Domain)

	j := newJournal(c.store)
	if err := c.addFeature(j, in, f, exists); err != nil {
		j.rollback()
		return "", err
	}
	if err := ctx.Err(); err != nil {
		j.rollback()
		return "", err
	}
	if err := c.store.Save(); err != nil {
		j.rollback()
		return "", fmt.Errorf("save graph: %w", err)
	}
	c.saveTags()
	return f.ID, nil
}

func (c *Connector) addFeature(j *journal, in FeatureInput, f Feature, upgrade bool) error {
	// 1. placement ancestors
	if f.MilestoneID != "" {
		if err := c.ensureNode(j, f.MilestoneID, graph.NodeMilestone, in.MilestoneName); err != nil {
			return err
		}
	}
	if f.PhaseID != "" {
		if err := c.ensureNode(j, f.PhaseID, graph.NodePhase, in.PhaseName); err != nil {
			return err
		}
		if f.MilestoneID != "" {
			if err := c.ensureEdge(j, graph.EdgeMilestoneContainsPhase, f.MilestoneID, f.PhaseID); err != nil {
				return err
			}
		}
	}
	if f.ModuleID != "" {
		if err := c.ensureNode(j, f.ModuleID, graph.NodeModule, in.ModuleName); err != nil {
			return err
		}
		if f.PhaseID != "" {
			if err := c.ensureEdge(j, graph.EdgePhaseContainsModule, f.PhaseID, f.ModuleID); err != nil {
				return err
			}
		}
	}

	// 2. the feature itself
	if upgrade {
		if _, err := j.updateNode(f.ID, f.properties()); err != nil {
			return fmt.Errorf("upgrade placeholder %s: %w", f.ID, err)
		}
	} else if _, err := j.addNode(f.ID, graph.NodeFeature, f.properties(), map[string]any{"source": "add_feature"}); err != nil {
		return fmt.Errorf("create feature: %w", err)
	}

	// 3. deepest ancestor
	switch {
	case f.ModuleID != "":
		if _, err := j.addEdge(graph.EdgeModuleContainsFeature, f.ModuleID, f.ID, nil); err != nil {
			return err
		}
	case f.PhaseID != "":
		if _, err := j.addEdge(graph.EdgePhaseContainsFeature, f.PhaseID, f.ID, nil); err != nil {
			return err
		}
	case f.MilestoneID != "":
		if _, err := j.addEdge(graph.EdgeMilestoneContainsFeature, f.MilestoneID, f.ID, nil); err != nil {
			return err
		}
	}

	// 4. dependencies
	for _, d := range in.Dependencies {
		if d.ID == "" {
			continue
		}
		exists, err := c.nodeOfType(d.ID, graph.NodeFeature)
		if err != nil {
			return fmt.Errorf("dependency: %w", err)
		}
		if !exists {
			name := d.Name
			if name == "" {
				name = d.ID
			}
			props := map[string]any{"name": name, "status": string(task.StatusNotStarted), "placeholder": true}
			if _, err := j.addNode(d.ID, graph.NodeFeature, props, map[string]any{"source": "dependency"}); err != nil {
				return fmt.Errorf("create placeholder %s: %w", d.ID, err)
			}
		}
		if err := c.ensureEdge(j, graph.EdgeFeatureDependsOn, f.ID, d.ID); err != nil {
			return err
		}
	}

	// 5-6. concept, domain and purpose nodes
	return c.linkClassifiers(j, f)
}

func (c *Connector) linkClassifiers(j *journal, f Feature) error {
	for _, tag := range f.Tags {
		id := "concept-" + tag
		if err := c.ensureNode(j, id, graph.NodeConcept, c.title.String(strings.ReplaceAll(tag, "-", " "))); err != nil {
			return err
		}
		if err := c.ensureEdge(j, graph.EdgeFeatureRelatedToConcept, f.ID, id); err != nil {
			return err
		}
	}
	if slug := util.Slug(f.Domain); slug != "" {
		id := "domain-" + slug
		if err := c.ensureNode(j, id, graph.NodeDomain, f.Domain); err != nil {
			return err
		}
		if err := c.ensureEdge(j, graph.EdgeFeatureBelongsToDomain, f.ID, id); err != nil {
			return err
		}
	}
	if slug := util.Slug(f.Purpose); slug != "" {
		id := "purpose-" + slug
		if err := c.ensureNode(j, id, graph.NodePurpose, f.Purpose); err != nil {
			return err
		}
		if err := c.ensureEdge(j, graph.EdgeFeatureHasPurpose, f.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// ensureNode creates the node when absent and rejects an id already used by
// another node type.
func (c *Connector) ensureNode(j *journal, id string, typ graph.NodeType, name string) error {
	if exists, err := c.nodeOfType(id, typ); exists || err != nil {
		return err
	}
	if name == "" {
		name = id
	}
	_, err := j.addNode(id, typ, map[string]any{"name": name}, map[string]any{"auto_created": true})
	if err != nil {
		return fmt.Errorf("create %s %s: %w", typ, id, err)
	}
	return nil
}

// nodeOfType reports whether id exists, failing with ErrWrongNodeType when it
// exists under a different type.
func (c *Connector) nodeOfType(id string, typ graph.NodeType) (bool, error) {
	n, ok := c.store.GetNode(id)
	if !ok {
		return false, nil
	}
	if n.Type != typ {
		return true, fmt.Errorf("%w: %s is a %s, not a %s", ErrWrongNodeType, id, n.Type, typ)
	}
	return true, nil
}

func (c *Connector) ensureEdge(j *journal, typ, source, target string) error {
	if graph.HasEdge(c.store, typ, source, target) {
		return nil
	}
	if _, err := j.addEdge(typ, source, target, nil); err != nil {
		return fmt.Errorf("link %s -> %s: %w", source, target, err)
	}
	return nil
}

func (c *Connector) processTags(raw []string, domain string) []string {
	if c.tags == nil {
		out := make([]string, 0, len(raw))
		for _, t := range raw {
			if t = strings.TrimSpace(t); t != "" && !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
		return out
	}
	return c.tags.ProcessTags(raw, domain)
}

func (c *Connector) saveTags() {
	if c.tags == nil {
		return
	}
	if err := c.tags.Save(); err != nil {
		slog.Warn("tag cache not persisted", "error", err)
	}
}

// GetFeature returns the feature with the given id.
func (c *Connector) GetFeature(id string) (Feature, error) {
	n, ok := c.store.GetNode(id)
	if !ok || n.Type != graph.NodeFeature {
		return Feature{}, fmt.Errorf("%w: %s", ErrFeatureNotFound, id)
	}
	return featureFromNode(n)
}

// ListFeatures returns every non-placeholder feature in creation order.
func (c *Connector) ListFeatures() []Feature {
	var out []Feature
	for _, n := range c.store.GetNodesByType(graph.NodeFeature) {
		f, err := featureFromNode(n)
		if err != nil {
			slog.Warn("skipping unreadable feature", "id", n.ID, "error", err)
			continue
		}
		if !f.Placeholder {
			out = append(out, f)
		}
	}
	return out
}

// UpdateFeature merges updates into the feature. Changing tags, domain or
// purpose rewires the derived concept, domain and purpose edges.
func (c *Connector) UpdateFeature(ctx context.Context, id string, updates map[string]any) (Feature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.GetFeature(id)
	if err != nil {
		return Feature{}, err
	}
	merged := cur.properties()
	for k, v := range updates {
		switch k {
		case "id", "created_at", "placeholder":
			continue
		}
		merged[k] = v
	}
	var next Feature
	if err := decodeRecord(merged, &next); err != nil {
		return Feature{}, fmt.Errorf("decode update: %w", err)
	}
	next.ID = id
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = c.now().UTC()
	if err := util.ValidateStruct(&next); err != nil {
		return Feature{}, err
	}

	_, tagsChanged := updates["tags"]
	rewire := tagsChanged || next.Domain != cur.Domain || next.Purpose != cur.Purpose
	if tagsChanged {
		next.Tags = c.processTags(next.Tags, next.Domain)
	}

	j := newJournal(c.store)
	if _, err := j.updateNode(id, next.properties()); err != nil {
		j.rollback()
		return Feature{}, err
	}
	if rewire {
		for _, typ := range []string{graph.EdgeFeatureRelatedToConcept, graph.EdgeFeatureBelongsToDomain, graph.EdgeFeatureHasPurpose} {
			for _, e := range c.store.EdgesOf(id, graph.Outgoing) {
				if e.Type != typ {
					continue
				}
				if err := j.removeEdge(e); err != nil {
					j.rollback()
					return Feature{}, err
				}
			}
		}
		if err := c.linkClassifiers(j, next); err != nil {
			j.rollback()
			return Feature{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		j.rollback()
		return Feature{}, err
	}
	if err := c.store.Save(); err != nil {
		j.rollback()
		return Feature{}, fmt.Errorf("save graph: %w", err)
	}
	if tagsChanged {
		c.saveTags()
	}
	return next, nil
}

func featureFromNode(n *graph.Node) (Feature, error) {
	var f Feature
	if err := decodeRecord(n.Properties, &f); err != nil {
		return Feature{}, fmt.Errorf("decode feature %s: %w", n.ID, err)
	}
	f.ID = n.ID
	return f, nil
}

func isPlaceholder(n *graph.Node) bool {
	v, _ := n.Properties["placeholder"].(bool)
	return v
}

// IsNotFound reports whether err means a feature or task does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFeatureNotFound) || errors.Is(err, ErrTaskNotFound)
}
