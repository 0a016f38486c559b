package connector

import (
	"log/slog"

	"github.com/josephgoksu/featuregraph/internal/graph"
)

// journal records every mutation a connector operation makes so a failure at
// any step, including the final save, can be undone in reverse order.
type journal struct {
	store graph.Store
	steps []func() error
}

func newJournal(s graph.Store) *journal {
	return &journal{store: s}
}

func (j *journal) addNode(id string, typ graph.NodeType, props, meta map[string]any) (*graph.Node, error) {
	n, err := j.store.AddNode(id, typ, props, meta)
	if err != nil {
		return nil, err
	}
	j.steps = append(j.steps, func() error { return j.store.RemoveNode(id) })
	return n, nil
}

func (j *journal) addEdge(typ, source, target string, props map[string]any) (*graph.Edge, error) {
	e, err := j.store.AddEdge(typ, source, target, props, nil)
	if err != nil {
		return nil, err
	}
	j.steps = append(j.steps, func() error { return j.store.RemoveEdge(e.ID) })
	return e, nil
}

func (j *journal) removeEdge(e *graph.Edge) error {
	if err := j.store.RemoveEdge(e.ID); err != nil {
		return err
	}
	j.steps = append(j.steps, func() error {
		_, err := j.store.AddEdge(e.Type, e.Source, e.Target, e.Properties, e.Metadata)
		return err
	})
	return nil
}

// updateNode merges props and remembers how to restore the previous values.
func (j *journal) updateNode(id string, props map[string]any) (*graph.Node, error) {
	before, ok := j.store.GetNode(id)
	if !ok {
		return nil, graph.ErrNodeNotFound
	}
	n, err := j.store.UpdateNode(id, props)
	if err != nil {
		return nil, err
	}
	restore := make(map[string]any, len(props))
	for k := range props {
		if old, had := before.Properties[k]; had {
			restore[k] = old
		} else {
			restore[k] = nil
		}
	}
	j.steps = append(j.steps, func() error {
		_, err := j.store.UpdateNode(id, restore)
		return err
	})
	return n, nil
}

func (j *journal) rollback() {
	for i := len(j.steps) - 1; i >= 0; i-- {
		if err := j.steps[i](); err != nil {
			slog.Warn("rollback step failed", "error", err)
		}
	}
	j.steps = nil
}
