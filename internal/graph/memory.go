package graph

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory graph. It owns the four indices and is the
// base the persistent stores embed. Save is a no-op.
type MemoryStore struct {
	mu sync.RWMutex

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string

	nodeTypeIndex map[NodeType][]string
	edgeTypeIndex map[string][]string
	outgoing      map[string][]string
	incoming      map[string][]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	m.reset()
	return m
}

func (m *MemoryStore) reset() {
	m.nodes = make(map[string]*Node)
	m.nodeOrder = nil
	m.edges = make(map[string]*Edge)
	m.edgeOrder = nil
	m.nodeTypeIndex = make(map[NodeType][]string)
	m.edgeTypeIndex = make(map[string][]string)
	m.outgoing = make(map[string][]string)
	m.incoming = make(map[string][]string)
}

func (m *MemoryStore) AddNode(id string, typ NodeType, properties, metadata map[string]any) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("add node: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	n := &Node{ID: id, Type: typ, Properties: cloneMap(properties), Metadata: cloneMap(metadata)}
	m.insertNode(n)
	return n.clone(), nil
}

func (m *MemoryStore) insertNode(n *Node) {
	m.nodes[n.ID] = n
	m.nodeOrder = append(m.nodeOrder, n.ID)
	m.nodeTypeIndex[n.Type] = append(m.nodeTypeIndex[n.Type], n.ID)
}

func (m *MemoryStore) GetNode(id string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

func (m *MemoryStore) GetNodesByType(typ NodeType) []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.nodeTypeIndex[typ]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.nodes[id].clone())
	}
	return out
}

// UpdateNode merges properties into the node. A nil value deletes the key.
func (m *MemoryStore) UpdateNode(id string, properties map[string]any) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	for k, v := range properties {
		if v == nil {
			delete(n.Properties, k)
			continue
		}
		n.Properties[k] = v
	}
	return n.clone(), nil
}

// RemoveNode deletes the node and every edge touching it.
func (m *MemoryStore) RemoveNode(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	touching := append(slices.Clone(m.outgoing[id]), m.incoming[id]...)
	for _, eid := range touching {
		m.deleteEdge(eid)
	}
	delete(m.nodes, id)
	m.nodeOrder = removeID(m.nodeOrder, id)
	m.nodeTypeIndex[n.Type] = removeID(m.nodeTypeIndex[n.Type], id)
	if len(m.nodeTypeIndex[n.Type]) == 0 {
		delete(m.nodeTypeIndex, n.Type)
	}
	delete(m.outgoing, id)
	delete(m.incoming, id)
	return nil
}

// AddEdge appends a directed edge. Endpoints are not required to exist so
// forward references and placeholders can be wired before their nodes.
func (m *MemoryStore) AddEdge(typ, source, target string, properties, metadata map[string]any) (*Edge, error) {
	if typ == "" || source == "" || target == "" {
		return nil, fmt.Errorf("add edge: type, source and target are required")
	}
	e := &Edge{
		ID:         uuid.NewString(),
		Type:       typ,
		Source:     source,
		Target:     target,
		Properties: cloneMap(properties),
		Metadata:   cloneMap(metadata),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertEdge(e)
	return e.clone(), nil
}

func (m *MemoryStore) insertEdge(e *Edge) {
	m.edges[e.ID] = e
	m.edgeOrder = append(m.edgeOrder, e.ID)
	m.edgeTypeIndex[e.Type] = append(m.edgeTypeIndex[e.Type], e.ID)
	m.outgoing[e.Source] = append(m.outgoing[e.Source], e.ID)
	m.incoming[e.Target] = append(m.incoming[e.Target], e.ID)
}

func (m *MemoryStore) GetEdge(id string) (*Edge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

func (m *MemoryStore) RemoveEdge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	m.deleteEdge(id)
	return nil
}

func (m *MemoryStore) deleteEdge(id string) {
	e, ok := m.edges[id]
	if !ok {
		return
	}
	delete(m.edges, id)
	m.edgeOrder = removeID(m.edgeOrder, id)
	m.edgeTypeIndex[e.Type] = removeID(m.edgeTypeIndex[e.Type], id)
	if len(m.edgeTypeIndex[e.Type]) == 0 {
		delete(m.edgeTypeIndex, e.Type)
	}
	m.outgoing[e.Source] = removeID(m.outgoing[e.Source], id)
	m.incoming[e.Target] = removeID(m.incoming[e.Target], id)
}

// Edges returns every edge in insertion order.
func (m *MemoryStore) Edges() []*Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectEdges(m.edgeOrder)
}

func (m *MemoryStore) EdgesOf(id string, dir Direction) []*Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if dir == Incoming {
		return m.collectEdges(m.incoming[id])
	}
	return m.collectEdges(m.outgoing[id])
}

func (m *MemoryStore) GetEdgesByType(typ string) []*Edge {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectEdges(m.edgeTypeIndex[typ])
}

func (m *MemoryStore) collectEdges(ids []string) []*Edge {
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.edges[id]; ok {
			out = append(out, e.clone())
		}
	}
	return out
}

// GetConnectedNodes follows the node's edges in dir. Edges pointing at
// missing nodes are skipped; a node reached twice is returned once.
func (m *MemoryStore) GetConnectedNodes(id string, dir Direction) []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	edgeIDs := m.outgoing[id]
	if dir == Incoming {
		edgeIDs = m.incoming[id]
	}
	seen := make(map[string]bool, len(edgeIDs))
	var out []*Node
	for _, eid := range edgeIDs {
		e := m.edges[eid]
		other := e.Target
		if dir == Incoming {
			other = e.Source
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if n, ok := m.nodes[other]; ok {
			out = append(out, n.clone())
		}
	}
	return out
}

func (m *MemoryStore) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{
		Nodes:       len(m.nodes),
		Edges:       len(m.edges),
		NodesByType: make(map[NodeType]int, len(m.nodeTypeIndex)),
		EdgesByType: make(map[string]int, len(m.edgeTypeIndex)),
	}
	for t, ids := range m.nodeTypeIndex {
		s.NodesByType[t] = len(ids)
	}
	for t, ids := range m.edgeTypeIndex {
		s.EdgesByType[t] = len(ids)
	}
	return s
}

func (m *MemoryStore) Save() error { return nil }

// Rebuild regenerates all four indices from the node and edge tables.
func (m *MemoryStore) Rebuild() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked()
}

func (m *MemoryStore) rebuildLocked() {
	m.nodeTypeIndex = make(map[NodeType][]string)
	m.edgeTypeIndex = make(map[string][]string)
	m.outgoing = make(map[string][]string)
	m.incoming = make(map[string][]string)
	for _, id := range m.nodeOrder {
		n := m.nodes[id]
		m.nodeTypeIndex[n.Type] = append(m.nodeTypeIndex[n.Type], id)
	}
	for _, id := range m.edgeOrder {
		e := m.edges[id]
		m.edgeTypeIndex[e.Type] = append(m.edgeTypeIndex[e.Type], id)
		m.outgoing[e.Source] = append(m.outgoing[e.Source], id)
		m.incoming[e.Target] = append(m.incoming[e.Target], id)
	}
}

// snapshot returns nodes and edges in insertion order for persistence.
func (m *MemoryStore) snapshot() ([]*Node, []*Edge) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]*Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		nodes = append(nodes, m.nodes[id].clone())
	}
	return nodes, m.collectEdges(m.edgeOrder)
}

// replace swaps the whole graph content and rebuilds indices. Duplicate node
// ids keep the first occurrence; edges without an id get a fresh one.
func (m *MemoryStore) replace(nodes []*Node, edges []*Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	for _, n := range nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, dup := m.nodes[n.ID]; dup {
			continue
		}
		m.nodes[n.ID] = &Node{ID: n.ID, Type: n.Type, Properties: cloneMap(n.Properties), Metadata: cloneMap(n.Metadata)}
		m.nodeOrder = append(m.nodeOrder, n.ID)
	}
	for _, e := range edges {
		if e == nil {
			continue
		}
		c := e.clone()
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, dup := m.edges[c.ID]; dup {
			c.ID = uuid.NewString()
		}
		m.edges[c.ID] = c
		m.edgeOrder = append(m.edgeOrder, c.ID)
	}
	m.rebuildLocked()
}

// indexView exposes a copy of the indices for consistency checks.
func (m *MemoryStore) indexView() indexSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	copyIdx := func(src map[string][]string) map[string][]string {
		dst := make(map[string][]string, len(src))
		for k, v := range src {
			dst[k] = slices.Clone(v)
		}
		return dst
	}
	nt := make(map[NodeType][]string, len(m.nodeTypeIndex))
	for k, v := range m.nodeTypeIndex {
		nt[k] = slices.Clone(v)
	}
	return indexSnapshot{
		nodes:         maps.Clone(m.nodes),
		edges:         maps.Clone(m.edges),
		nodeTypeIndex: nt,
		edgeTypeIndex: copyIdx(m.edgeTypeIndex),
		outgoing:      copyIdx(m.outgoing),
		incoming:      copyIdx(m.incoming),
	}
}

func removeID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
