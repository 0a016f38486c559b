package graph

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestAddNode_Duplicate(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.AddNode("feature-1", NodeFeature, map[string]any{"name": "Login"}, nil); err != nil {
		t.Fatalf("AddNode() error: %v", err)
	}
	_, err := s.AddNode("feature-1", NodeFeature, nil, nil)
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
	if got := len(s.GetNodesByType(NodeFeature)); got != 1 {
		t.Errorf("expected 1 feature node, got %d", got)
	}
}

func TestGetNode_ReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("n1", NodeConcept, map[string]any{"name": "Auth"}, nil)

	n, ok := s.GetNode("n1")
	if !ok {
		t.Fatal("GetNode() not found")
	}
	n.Properties["name"] = "mutated"

	again, _ := s.GetNode("n1")
	if again.String("name") != "Auth" {
		t.Errorf("store was mutated through returned node: %q", again.String("name"))
	}
}

func TestUpdateNode_Merge(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("f", NodeFeature, map[string]any{"name": "A", "status": "not-started"}, nil)

	n, err := s.UpdateNode("f", map[string]any{"status": "in-progress", "name": nil, "version": "1.0.0"})
	if err != nil {
		t.Fatalf("UpdateNode() error: %v", err)
	}
	if n.String("status") != "in-progress" || n.String("version") != "1.0.0" {
		t.Errorf("unexpected properties: %v", n.Properties)
	}
	if _, ok := n.Properties["name"]; ok {
		t.Error("nil value should delete the key")
	}
	if _, err := s.UpdateNode("missing", nil); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestAddEdge_AllowsMissingEndpoints(t *testing.T) {
	s := NewMemoryStore()
	e, err := s.AddEdge(EdgeFeatureDependsOn, "feature-1", "feature-2", nil, nil)
	if err != nil {
		t.Fatalf("AddEdge() error: %v", err)
	}
	if e.ID == "" {
		t.Error("edge should get a stable id")
	}
	if got := len(s.EdgesOf("feature-1", Outgoing)); got != 1 {
		t.Errorf("expected 1 outgoing edge, got %d", got)
	}
	if got := len(s.GetConnectedNodes("feature-1", Outgoing)); got != 0 {
		t.Errorf("missing target should not be returned, got %d nodes", got)
	}
}

func TestGetConnectedNodes_Direction(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = s.AddNode(id, NodeFeature, nil, nil)
	}
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "b", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "c", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "c", "b", nil, nil)

	out := s.GetConnectedNodes("a", Outgoing)
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "c" {
		t.Errorf("outgoing from a = %v", ids(out))
	}
	in := s.GetConnectedNodes("b", Incoming)
	if len(in) != 2 || in[0].ID != "a" || in[1].ID != "c" {
		t.Errorf("incoming to b = %v", ids(in))
	}
}

func TestGetConnectedNodes_DeduplicatesParallelEdges(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("a", NodeFeature, nil, nil)
	_, _ = s.AddNode("b", NodeFeature, nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "b", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "b", nil, nil)

	if got := len(s.Edges()); got != 2 {
		t.Fatalf("store should keep duplicate edges, got %d", got)
	}
	if got := len(s.GetConnectedNodes("a", Outgoing)); got != 1 {
		t.Errorf("expected b once, got %d", got)
	}
}

func TestRemoveNode_RemovesTouchingEdges(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = s.AddNode(id, NodeFeature, nil, nil)
	}
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "b", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "b", "c", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureDependsOn, "a", "c", nil, nil)

	if err := s.RemoveNode("b"); err != nil {
		t.Fatalf("RemoveNode() error: %v", err)
	}
	if got := len(s.Edges()); got != 1 {
		t.Errorf("expected 1 edge left, got %d", got)
	}
	if got := len(s.GetNodesByType(NodeFeature)); got != 2 {
		t.Errorf("expected 2 features left, got %d", got)
	}
	if issues := Check(s); len(issues) != 0 {
		t.Errorf("indices inconsistent after removal: %v", issues)
	}
	if err := s.RemoveNode("b"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestRemoveEdge(t *testing.T) {
	s := NewMemoryStore()
	e, _ := s.AddEdge(EdgeFeatureHasTask, "f", "t", nil, nil)
	if err := s.RemoveEdge(e.ID); err != nil {
		t.Fatalf("RemoveEdge() error: %v", err)
	}
	if got := len(s.GetEdgesByType(EdgeFeatureHasTask)); got != 0 {
		t.Errorf("edge type index still has %d entries", got)
	}
	if err := s.RemoveEdge(e.ID); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("expected ErrEdgeNotFound, got %v", err)
	}
}

// Random interleavings of adds and removals must never break the index invariant.
func TestIndexConsistency_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewMemoryStore()
	types := []string{EdgeFeatureDependsOn, EdgeFeatureHasTask, EdgeFeatureRelatedToConcept}

	var nodeIDs, edgeIDs []string
	for i := range 500 {
		switch op := rng.Intn(10); {
		case op < 4:
			id := fmt.Sprintf("n%d", i)
			if _, err := s.AddNode(id, NodeFeature, nil, nil); err == nil {
				nodeIDs = append(nodeIDs, id)
			}
		case op < 8 && len(nodeIDs) > 0:
			src := nodeIDs[rng.Intn(len(nodeIDs))]
			dst := nodeIDs[rng.Intn(len(nodeIDs))]
			e, err := s.AddEdge(types[rng.Intn(len(types))], src, dst, nil, nil)
			if err != nil {
				t.Fatalf("AddEdge() error: %v", err)
			}
			edgeIDs = append(edgeIDs, e.ID)
		case op == 8 && len(edgeIDs) > 0:
			_ = s.RemoveEdge(edgeIDs[rng.Intn(len(edgeIDs))])
		case op == 9 && len(nodeIDs) > 0:
			_ = s.RemoveNode(nodeIDs[rng.Intn(len(nodeIDs))])
		}
	}

	for _, issue := range Check(s) {
		if issue.Kind == KindIndex {
			t.Errorf("index inconsistency: %+v", issue)
		}
	}
	for _, e := range s.Edges() {
		if !containsEdge(s.GetEdgesByType(e.Type), e.ID) {
			t.Errorf("edge %s missing from type index", e.ID)
		}
		if !containsEdge(s.EdgesOf(e.Source, Outgoing), e.ID) {
			t.Errorf("edge %s missing from outgoing index", e.ID)
		}
		if !containsEdge(s.EdgesOf(e.Target, Incoming), e.ID) {
			t.Errorf("edge %s missing from incoming index", e.ID)
		}
	}
}

func TestStats(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("f1", NodeFeature, nil, nil)
	_, _ = s.AddNode("c1", NodeConcept, nil, nil)
	_, _ = s.AddEdge(EdgeFeatureRelatedToConcept, "f1", "c1", nil, nil)

	st := s.Stats()
	if st.Nodes != 2 || st.Edges != 1 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.NodesByType[NodeFeature] != 1 || st.EdgesByType[EdgeFeatureRelatedToConcept] != 1 {
		t.Errorf("per-type counts wrong: %+v", st)
	}
}

func TestHasEdgeAndConnectedByType(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("m", NodeModule, nil, nil)
	_, _ = s.AddNode("f", NodeFeature, nil, nil)
	_, _ = s.AddNode("c", NodeConcept, nil, nil)
	_, _ = s.AddEdge(EdgeModuleContainsFeature, "m", "f", nil, nil)
	_, _ = s.AddEdge(EdgeFeatureRelatedToConcept, "f", "c", nil, nil)

	if !HasEdge(s, EdgeModuleContainsFeature, "m", "f") {
		t.Error("HasEdge() = false, want true")
	}
	if HasEdge(s, EdgeModuleContainsFeature, "f", "m") {
		t.Error("HasEdge() should respect direction")
	}
	got := ConnectedByType(s, "f", Incoming, EdgeModuleContainsFeature)
	if len(got) != 1 || got[0].ID != "m" {
		t.Errorf("ConnectedByType() = %v", ids(got))
	}
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func containsEdge(edges []*Edge, id string) bool {
	for _, e := range edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

func TestExport(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.AddNode("t1", NodeTask, nil, nil)
	_, _ = s.AddNode("f1", NodeFeature, nil, nil)
	_, _ = s.AddNode("c1", NodeConcept, nil, nil)
	if _, err := s.AddEdge(EdgeFeatureHasTask, "f1", "t1", nil, nil); err != nil {
		t.Fatal(err)
	}

	snap := Export(s)
	var ids []string
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	if fmt.Sprint(ids) != "[c1 f1 t1]" {
		t.Errorf("node order = %v, want [c1 f1 t1]", ids)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Source != "f1" {
		t.Errorf("edges = %+v", snap.Edges)
	}

	empty := Export(NewMemoryStore())
	if empty.Nodes == nil || empty.Edges == nil {
		t.Error("empty export should use empty slices")
	}
}
