package validation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/josephgoksu/featuregraph/internal/graph"
)

// GraphDocuments stores documents as document nodes linked by
// document_references edges, and serves them back as a KnowledgeGraph.
type GraphDocuments struct {
	mu    sync.Mutex
	store graph.Store
}

var _ KnowledgeGraph = (*GraphDocuments)(nil)

// NewGraphDocuments wraps store.
func NewGraphDocuments(store graph.Store) *GraphDocuments {
	return &GraphDocuments{store: store}
}

// Register upserts doc and replaces its outgoing references with doc.Related,
// then saves the graph. Referenced documents need not exist yet.
func (g *GraphDocuments) Register(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	props := map[string]any{
		"name":     doc.Title,
		"doc_type": string(doc.Type),
		"version":  doc.Version,
		"path":     doc.Path,
		"content":  doc.Content,
		"related":  slices.Clone(doc.Related),
	}
	if n, ok := g.store.GetNode(doc.ID); ok {
		if n.Type != graph.NodeDocument {
			return fmt.Errorf("register document: %s is a %s node", doc.ID, n.Type)
		}
		if _, err := g.store.UpdateNode(doc.ID, props); err != nil {
			return fmt.Errorf("register document: %w", err)
		}
		for _, e := range g.store.EdgesOf(doc.ID, graph.Outgoing) {
			if e.Type != graph.EdgeDocumentReferences {
				continue
			}
			if err := g.store.RemoveEdge(e.ID); err != nil {
				return fmt.Errorf("register document: %w", err)
			}
		}
	} else if _, err := g.store.AddNode(doc.ID, graph.NodeDocument, props, map[string]any{"source": "validate"}); err != nil {
		return fmt.Errorf("register document: %w", err)
	}

	for _, ref := range doc.Related {
		if ref == "" || ref == doc.ID || graph.HasEdge(g.store, graph.EdgeDocumentReferences, doc.ID, ref) {
			continue
		}
		if _, err := g.store.AddEdge(graph.EdgeDocumentReferences, doc.ID, ref, nil, nil); err != nil {
			return fmt.Errorf("register document: %w", err)
		}
	}
	if err := g.store.Save(); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

func (g *GraphDocuments) DocumentExists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, ok := g.store.GetNode(id)
	return ok && n.Type == graph.NodeDocument, nil
}

func (g *GraphDocuments) RelatedDocuments(ctx context.Context, id string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Document
	seen := map[string]bool{id: true}
	for _, dir := range []graph.Direction{graph.Outgoing, graph.Incoming} {
		for _, n := range graph.ConnectedByType(g.store, id, dir, graph.EdgeDocumentReferences) {
			if seen[n.ID] || n.Type != graph.NodeDocument {
				continue
			}
			seen[n.ID] = true
			out = append(out, documentFromNode(n))
		}
	}
	return out, nil
}

func (g *GraphDocuments) References(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	for _, e := range g.store.EdgesOf(id, graph.Outgoing) {
		if e.Type == graph.EdgeDocumentReferences && !slices.Contains(out, e.Target) {
			out = append(out, e.Target)
		}
	}
	return out, nil
}

func documentFromNode(n *graph.Node) Document {
	doc := Document{
		ID:      n.ID,
		Title:   n.String("name"),
		Type:    DocumentType(n.String("doc_type")),
		Version: n.String("version"),
		Path:    n.String("path"),
		Content: n.String("content"),
	}
	switch rel := n.Properties["related"].(type) {
	case []string:
		doc.Related = slices.Clone(rel)
	case []any:
		for _, r := range rel {
			if s, ok := r.(string); ok {
				doc.Related = append(doc.Related, s)
			}
		}
	}
	return doc
}
