package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Inconsistency describes one index or reference problem found by Check.
type Inconsistency struct {
	Kind    string `json:"kind"`
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
	Message string `json:"message"`
}

// Inconsistency kinds.
const (
	KindIndex    = "index"
	KindDangling = "dangling_edge"
)

type indexSnapshot struct {
	nodes         map[string]*Node
	edges         map[string]*Edge
	nodeTypeIndex map[NodeType][]string
	edgeTypeIndex map[string][]string
	outgoing      map[string][]string
	incoming      map[string][]string
}

type indexed interface {
	indexView() indexSnapshot
}

type rebuildable interface {
	Rebuild()
}

// Check verifies that every edge is mirrored in the edge type, outgoing and
// incoming indices, that every node is in its type index, and that no index
// entry refers to a missing edge. Edges whose endpoints are missing are
// reported as dangling; they are legal but usually point at a typo.
func Check(s Store) []Inconsistency {
	ix, ok := s.(indexed)
	if !ok {
		return nil
	}
	v := ix.indexView()
	var out []Inconsistency

	for _, e := range sortedEdges(v.edges) {
		if !slices.Contains(v.edgeTypeIndex[e.Type], e.ID) {
			out = append(out, Inconsistency{Kind: KindIndex, EdgeID: e.ID, Message: fmt.Sprintf("edge missing from edge_type_index[%s]", e.Type)})
		}
		if !slices.Contains(v.outgoing[e.Source], e.ID) {
			out = append(out, Inconsistency{Kind: KindIndex, EdgeID: e.ID, Message: fmt.Sprintf("edge missing from outgoing index of %s", e.Source)})
		}
		if !slices.Contains(v.incoming[e.Target], e.ID) {
			out = append(out, Inconsistency{Kind: KindIndex, EdgeID: e.ID, Message: fmt.Sprintf("edge missing from incoming index of %s", e.Target)})
		}
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := v.nodes[end]; !ok {
				out = append(out, Inconsistency{Kind: KindDangling, EdgeID: e.ID, NodeID: end, Message: fmt.Sprintf("%s edge references missing node %s", e.Type, end)})
			}
		}
	}

	checkEntries := func(name string, idx map[string][]string, field func(*Edge) string) {
		for _, k := range sortedKeys(idx) {
			for _, eid := range idx[k] {
				e, ok := v.edges[eid]
				if !ok {
					out = append(out, Inconsistency{Kind: KindIndex, EdgeID: eid, Message: fmt.Sprintf("%s[%s] refers to missing edge", name, k)})
					continue
				}
				if field(e) != k {
					out = append(out, Inconsistency{Kind: KindIndex, EdgeID: eid, Message: fmt.Sprintf("%s[%s] holds edge belonging to %s", name, k, field(e))})
				}
			}
		}
	}
	checkEntries("edge_type_index", v.edgeTypeIndex, func(e *Edge) string { return e.Type })
	checkEntries("node_outgoing_edges", v.outgoing, func(e *Edge) string { return e.Source })
	checkEntries("node_incoming_edges", v.incoming, func(e *Edge) string { return e.Target })

	for _, id := range sortedKeys(v.nodes) {
		n := v.nodes[id]
		if !slices.Contains(v.nodeTypeIndex[n.Type], id) {
			out = append(out, Inconsistency{Kind: KindIndex, NodeID: id, Message: fmt.Sprintf("node missing from node_type_index[%s]", n.Type)})
		}
	}
	for _, typ := range sortedKeys(v.nodeTypeIndex) {
		for _, id := range v.nodeTypeIndex[typ] {
			if n, ok := v.nodes[id]; !ok || n.Type != typ {
				out = append(out, Inconsistency{Kind: KindIndex, NodeID: id, Message: fmt.Sprintf("node_type_index[%s] holds stale entry", typ)})
			}
		}
	}
	return out
}

// Repair rebuilds indices when the store supports it and reports whether it did.
func Repair(s Store) bool {
	r, ok := s.(rebuildable)
	if !ok {
		return false
	}
	r.Rebuild()
	return true
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

func sortedEdges(edges map[string]*Edge) []*Edge {
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
