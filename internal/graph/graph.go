// Package graph provides the knowledge graph store: typed nodes, directed
// edges, and the derived indices that make type and adjacency lookups O(1).
package graph

import (
	"errors"
	"maps"
	"slices"
)

// NodeType classifies a node. The set is open; these are the types the
// connector and validation layers create.
type NodeType string

const (
	NodeFeature   NodeType = "feature"
	NodeTask      NodeType = "task"
	NodeMilestone NodeType = "milestone"
	NodePhase     NodeType = "phase"
	NodeModule    NodeType = "module"
	NodeConcept   NodeType = "concept"
	NodeDomain    NodeType = "domain"
	NodePurpose   NodeType = "purpose"
	NodeDocument  NodeType = "document"
	NodeAgent     NodeType = "agent"
	NodeWorkflow  NodeType = "workflow"
)

// Edge types wired by the connector and the document registry.
const (
	EdgeMilestoneContainsPhase   = "milestone_contains_phase"
	EdgePhaseContainsModule      = "phase_contains_module"
	EdgeMilestoneContainsFeature = "milestone_contains_feature"
	EdgePhaseContainsFeature     = "phase_contains_feature"
	EdgeModuleContainsFeature    = "module_contains_feature"
	EdgeFeatureDependsOn         = "feature_depends_on"
	EdgeFeatureRelatedToConcept  = "feature_related_to_concept"
	EdgeFeatureBelongsToDomain   = "feature_belongs_to_domain"
	EdgeFeatureHasPurpose        = "feature_has_purpose"
	EdgeFeatureHasTask           = "feature_has_task"
	EdgeTaskDependsOn            = "task_depends_on"
	EdgeDocumentReferences       = "document_references"
)

// Direction selects which side of a node's edges to traverse.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

var (
	ErrDuplicateNode = errors.New("node already exists")
	ErrNodeNotFound  = errors.New("node not found")
	ErrEdgeNotFound  = errors.New("edge not found")
)

// Node is a vertex in the knowledge graph. IDs are unique across all types.
type Node struct {
	ID         string         `json:"id"`
	Type       NodeType       `json:"type"`
	Properties map[string]any `json:"properties"`
	Metadata   map[string]any `json:"metadata"`
}

// Edge is a directed, typed relation. ID is stable for the lifetime of the
// edge and is what every index refers to.
type Edge struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties"`
	Metadata   map[string]any `json:"metadata"`
}

// Stats summarizes store contents.
type Stats struct {
	Nodes       int              `json:"nodes"`
	Edges       int              `json:"edges"`
	NodesByType map[NodeType]int `json:"nodes_by_type"`
	EdgesByType map[string]int   `json:"edges_by_type"`
}

// Store is the capability set every graph backend provides. Reads are safe to
// call concurrently; callers serialize writes and Save.
type Store interface {
	AddNode(id string, typ NodeType, properties, metadata map[string]any) (*Node, error)
	GetNode(id string) (*Node, bool)
	GetNodesByType(typ NodeType) []*Node
	UpdateNode(id string, properties map[string]any) (*Node, error)
	RemoveNode(id string) error

	AddEdge(typ, source, target string, properties, metadata map[string]any) (*Edge, error)
	GetEdge(id string) (*Edge, bool)
	RemoveEdge(id string) error
	Edges() []*Edge
	EdgesOf(id string, dir Direction) []*Edge
	GetEdgesByType(typ string) []*Edge
	GetConnectedNodes(id string, dir Direction) []*Node

	Stats() Stats
	Save() error
}

func (n *Node) clone() *Node {
	return &Node{
		ID:         n.ID,
		Type:       n.Type,
		Properties: cloneMap(n.Properties),
		Metadata:   cloneMap(n.Metadata),
	}
}

func (e *Edge) clone() *Edge {
	c := *e
	c.Properties = cloneMap(e.Properties)
	c.Metadata = cloneMap(e.Metadata)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

// String property accessor used by higher layers.
func (n *Node) String(key string) string {
	if v, ok := n.Properties[key].(string); ok {
		return v
	}
	return ""
}

// ConnectedByType returns the nodes on the far side of dir edges of the given type.
func ConnectedByType(s Store, id string, dir Direction, edgeType string) []*Node {
	var out []*Node
	for _, e := range s.EdgesOf(id, dir) {
		if e.Type != edgeType {
			continue
		}
		other := e.Target
		if dir == Incoming {
			other = e.Source
		}
		if n, ok := s.GetNode(other); ok {
			out = append(out, n)
		}
	}
	return out
}

// HasEdge reports whether an edge of typ already links source to target.
func HasEdge(s Store, typ, source, target string) bool {
	for _, e := range s.EdgesOf(source, Outgoing) {
		if e.Type == typ && e.Target == target {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time copy of a whole graph.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Export copies every node, grouped by type in type-name order, and every
// edge.
func Export(s Store) Snapshot {
	types := make([]NodeType, 0)
	for t := range s.Stats().NodesByType {
		types = append(types, t)
	}
	slices.Sort(types)
	snap := Snapshot{Nodes: []*Node{}, Edges: s.Edges()}
	for _, t := range types {
		snap.Nodes = append(snap.Nodes, s.GetNodesByType(t)...)
	}
	if snap.Edges == nil {
		snap.Edges = []*Edge{}
	}
	return snap
}
