package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

const checksumSuffix = ".checksum"

// FileStore persists the whole graph as one JSON document:
//
//	{"knowledge_graph": {"nodes": {...}, "edges": [...], "indices": {...}}}
//
// Edge indices on disk are positional offsets into the edges array. They are
// written for readers of the file and ignored on load, where the in-memory
// indices are rebuilt from the edge list.
type FileStore struct {
	*MemoryStore

	fs   afero.Fs
	path string
	lock *flock.Flock
}

type fileEnvelope struct {
	KnowledgeGraph fileGraph `json:"knowledge_graph"`
}

type fileGraph struct {
	Nodes   map[string]*Node `json:"nodes"`
	Edges   []*Edge          `json:"edges"`
	Indices fileIndices      `json:"indices"`
}

type fileIndices struct {
	NodeTypeIndex     map[NodeType][]string `json:"node_type_index"`
	EdgeTypeIndex     map[string][]int      `json:"edge_type_index"`
	NodeOutgoingEdges map[string][]int      `json:"node_outgoing_edges"`
	NodeIncomingEdges map[string][]int      `json:"node_incoming_edges"`
}

// OpenFileStore loads the graph at path. A missing file yields an empty graph.
// An unreadable or corrupt file is moved aside and the store starts empty, so
// a later Save never overwrites data that failed to load.
func OpenFileStore(fs afero.Fs, path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("graph file path is required")
	}
	s := &FileStore{MemoryStore: NewMemoryStore(), fs: fs, path: path}
	if _, ok := fs.(*afero.OsFs); ok {
		s.lock = flock.New(path + ".lock")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create graph directory: %w", err)
	}
	if err := s.Load(); err != nil {
		slog.Warn("graph file unreadable, starting empty", "path", path, "error", err)
		s.quarantine()
	}
	return s, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

// Load replaces the in-memory graph with the file contents.
func (s *FileStore) Load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.replace(nil, nil)
			return nil
		}
		return fmt.Errorf("read graph file: %w", err)
	}
	if err := s.verifyChecksum(data); err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		s.replace(nil, nil)
		return nil
	}
	nodes, edges, err := decodeGraph(data)
	if err != nil {
		return err
	}
	s.replace(nodes, edges)
	return nil
}

func (s *FileStore) verifyChecksum(data []byte) error {
	expected, err := afero.ReadFile(s.fs, s.path+checksumSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read checksum file: %w", err)
	}
	if got := checksum(data); strings.TrimSpace(string(expected)) != got {
		return fmt.Errorf("checksum mismatch for %s: file is corrupt or was edited by hand", s.path)
	}
	return nil
}

func (s *FileStore) quarantine() {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102_150405"))
	if err := s.fs.Rename(s.path, aside); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not move corrupt graph file aside", "path", s.path, "error", err)
	}
	_ = s.fs.Remove(s.path + checksumSuffix)
}

// Save writes the graph atomically: data and checksum go to temp files that
// are then renamed over the originals while holding the file lock.
func (s *FileStore) Save() error {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			return fmt.Errorf("lock graph file: %w", err)
		}
		defer func() { _ = s.lock.Unlock() }()
	}

	data, err := s.encode()
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	tmpSum := s.path + checksumSuffix + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp graph file: %w", err)
	}
	if err := afero.WriteFile(s.fs, tmpSum, []byte(checksum(data)), 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write temp checksum file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		_ = s.fs.Remove(tmpSum)
		return fmt.Errorf("replace graph file: %w", err)
	}
	if err := s.fs.Rename(tmpSum, s.path+checksumSuffix); err != nil {
		return fmt.Errorf("graph file %s updated but checksum was not: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) encode() ([]byte, error) {
	nodes, edges := s.snapshot()
	env := fileEnvelope{KnowledgeGraph: fileGraph{
		Nodes: make(map[string]*Node, len(nodes)),
		Edges: edges,
		Indices: fileIndices{
			NodeTypeIndex:     make(map[NodeType][]string),
			EdgeTypeIndex:     make(map[string][]int),
			NodeOutgoingEdges: make(map[string][]int),
			NodeIncomingEdges: make(map[string][]int),
		},
	}}
	g := &env.KnowledgeGraph
	for _, n := range nodes {
		g.Nodes[n.ID] = n
		g.Indices.NodeTypeIndex[n.Type] = append(g.Indices.NodeTypeIndex[n.Type], n.ID)
	}
	for i, e := range edges {
		g.Indices.EdgeTypeIndex[e.Type] = append(g.Indices.EdgeTypeIndex[e.Type], i)
		g.Indices.NodeOutgoingEdges[e.Source] = append(g.Indices.NodeOutgoingEdges[e.Source], i)
		g.Indices.NodeIncomingEdges[e.Target] = append(g.Indices.NodeIncomingEdges[e.Target], i)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return data, nil
}

// decodeGraph restores node insertion order from node_type_index; nodes the
// index does not mention follow in id order.
func decodeGraph(data []byte) ([]*Node, []*Edge, error) {
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("parse graph file: %w", err)
	}
	g := env.KnowledgeGraph

	var nodes []*Node
	placed := make(map[string]bool, len(g.Nodes))
	types := make([]string, 0, len(g.Indices.NodeTypeIndex))
	for t := range g.Indices.NodeTypeIndex {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		for _, id := range g.Indices.NodeTypeIndex[NodeType(t)] {
			n, ok := g.Nodes[id]
			if !ok || placed[id] {
				continue
			}
			if n.ID == "" {
				n.ID = id
			}
			placed[id] = true
			nodes = append(nodes, n)
		}
	}
	rest := make([]string, 0)
	for id := range g.Nodes {
		if !placed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		n := g.Nodes[id]
		if n == nil {
			continue
		}
		if n.ID == "" {
			n.ID = id
		}
		nodes = append(nodes, n)
	}
	return nodes, g.Edges, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
