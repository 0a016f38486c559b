package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the graph in memory and mirrors it to a SQLite database
// on Save. Load and Save move the whole graph, matching FileStore semantics.
type SQLiteStore struct {
	*MemoryStore
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}',
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS graph_edges (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	properties TEXT NOT NULL DEFAULT '{}',
	metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_graph_nodes_type ON graph_nodes(type);
CREATE INDEX IF NOT EXISTS idx_graph_edges_type ON graph_edges(type);
CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges(source);
CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target);
`

// OpenSQLiteStore opens (or creates) the database at path and loads it.
// Pass ":memory:" for an ephemeral database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create graph directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a second pooled connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s := &SQLiteStore{MemoryStore: NewMemoryStore(), db: db}
	if err := s.Load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load replaces the in-memory graph with the database contents.
func (s *SQLiteStore) Load() error {
	nodes, err := s.loadNodes()
	if err != nil {
		return err
	}
	edges, err := s.loadEdges()
	if err != nil {
		return err
	}
	s.replace(nodes, edges)
	return nil
}

func (s *SQLiteStore) loadNodes() ([]*Node, error) {
	rows, err := s.db.Query(`SELECT id, type, properties, metadata FROM graph_nodes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*Node
	for rows.Next() {
		var (
			n           Node
			typ         string
			props, meta string
		)
		if err := rows.Scan(&n.ID, &typ, &props, &meta); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Type = NodeType(typ)
		if err := decodeJSONMap(props, &n.Properties); err != nil {
			return nil, fmt.Errorf("node %s properties: %w", n.ID, err)
		}
		if err := decodeJSONMap(meta, &n.Metadata); err != nil {
			return nil, fmt.Errorf("node %s metadata: %w", n.ID, err)
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *SQLiteStore) loadEdges() ([]*Edge, error) {
	rows, err := s.db.Query(`SELECT id, type, source, target, properties, metadata FROM graph_edges ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []*Edge
	for rows.Next() {
		var (
			e           Edge
			props, meta string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Source, &e.Target, &props, &meta); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if err := decodeJSONMap(props, &e.Properties); err != nil {
			return nil, fmt.Errorf("edge %s properties: %w", e.ID, err)
		}
		if err := decodeJSONMap(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("edge %s metadata: %w", e.ID, err)
		}
		edges = append(edges, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// Save rewrites both tables inside one transaction.
func (s *SQLiteStore) Save() error {
	nodes, edges := s.snapshot()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM graph_edges`); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM graph_nodes`); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO graph_nodes (id, position, type, properties, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = nodeStmt.Close() }()
	for i, n := range nodes {
		props, meta, err := encodeMaps(n.Properties, n.Metadata)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if _, err := nodeStmt.Exec(n.ID, i, string(n.Type), props, meta); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT INTO graph_edges (id, position, type, source, target, properties, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer func() { _ = edgeStmt.Close() }()
	for i, e := range edges {
		props, meta, err := encodeMaps(e.Properties, e.Metadata)
		if err != nil {
			return fmt.Errorf("edge %s: %w", e.ID, err)
		}
		if _, err := edgeStmt.Exec(e.ID, i, e.Type, e.Source, e.Target, props, meta); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit graph: %w", err)
	}
	return nil
}

func encodeMaps(props, meta map[string]any) (string, string, error) {
	p, err := json.Marshal(cloneMap(props))
	if err != nil {
		return "", "", fmt.Errorf("marshal properties: %w", err)
	}
	m, err := json.Marshal(cloneMap(meta))
	if err != nil {
		return "", "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(p), string(m), nil
}

func decodeJSONMap(raw string, dst *map[string]any) error {
	if raw == "" {
		*dst = map[string]any{}
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
