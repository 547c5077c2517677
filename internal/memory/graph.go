package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/alvmarrod/fair/internal/storage"
	"github.com/sirupsen/logrus"
)

// GraphStore persists and restores the interaction graph
type GraphStore interface {
	SaveGraph(nodes []storage.Node, edges []storage.Edge, directed bool) error
	LoadGraph() ([]storage.Node, []storage.Edge, bool, error)
}

// InteractionGraph holds the directed account interaction graph in memory
type InteractionGraph struct {
	nodes map[string]*storage.Node // username -> node
	order []string                 // node insertion order
	succ  map[string][]string      // username -> successors, insertion order
	pred  map[string][]string      // username -> predecessors, insertion order
	edges map[storage.Edge]struct{}
	list  []storage.Edge // edge insertion order
	mu    sync.RWMutex
}

// NewInteractionGraph creates an empty directed graph
func NewInteractionGraph() *InteractionGraph {
	return &InteractionGraph{
		nodes: make(map[string]*storage.Node),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
		edges: make(map[storage.Edge]struct{}),
	}
}

// UpsertNode inserts a node with count=1 or increments the count of an existing one.
// Metadata is first-write-wins: later calls never overwrite it.
// Returns true if the node was created.
func (g *InteractionGraph) UpsertNode(username, fullName string, followers, following int) (bool, error) {
	if username == "" {
		return false, fmt.Errorf("username is required")
	}
	if followers < 0 || following < 0 {
		return false, fmt.Errorf("invalid counts for %s: followers=%d following=%d", username, followers, following)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if node, exists := g.nodes[username]; exists {
		node.Count++
		return false, nil
	}

	if fullName == "" {
		fullName = username
	}

	g.nodes[username] = &storage.Node{
		Username:  username,
		Count:     1,
		FullName:  fullName,
		Followers: followers,
		Following: following,
	}
	g.order = append(g.order, username)

	return true, nil
}

// UpsertEdge ensures the directed edge source -> target exists.
// Returns true if the edge was created; re-adding is a no-op.
func (g *InteractionGraph) UpsertEdge(source, target string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Verify nodes exist
	if _, exists := g.nodes[source]; !exists {
		return false, fmt.Errorf("source node %s not found", source)
	}
	if _, exists := g.nodes[target]; !exists {
		return false, fmt.Errorf("target node %s not found", target)
	}

	edge := storage.Edge{Source: source, Target: target}
	if _, exists := g.edges[edge]; exists {
		return false, nil
	}

	g.edges[edge] = struct{}{}
	g.list = append(g.list, edge)
	g.succ[source] = append(g.succ[source], target)
	g.pred[target] = append(g.pred[target], source)

	return true, nil
}

// HasNode reports whether username is a node
func (g *InteractionGraph) HasNode(username string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.nodes[username]
	return exists
}

// HasEdge reports whether the directed edge source -> target exists
func (g *InteractionGraph) HasEdge(source, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.edges[storage.Edge{Source: source, Target: target}]
	return exists
}

// GetNode retrieves a copy of a node by username, nil if absent
func (g *InteractionGraph) GetNode(username string) *storage.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if node, exists := g.nodes[username]; exists {
		// Return a copy to prevent external modifications
		nodeCopy := *node
		return &nodeCopy
	}
	return nil
}

// Nodes returns copies of all nodes in insertion order
func (g *InteractionGraph) Nodes() []storage.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]storage.Node, 0, len(g.order))
	for _, username := range g.order {
		nodes = append(nodes, *g.nodes[username])
	}
	return nodes
}

// Edges returns all edges in insertion order
func (g *InteractionGraph) Edges() []storage.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]storage.Edge, len(g.list))
	copy(edges, g.list)
	return edges
}

// Successors returns the targets of edges leaving username
func (g *InteractionGraph) Successors(username string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.succ[username]...)
}

// Predecessors returns the sources of edges entering username
func (g *InteractionGraph) Predecessors(username string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.pred[username]...)
}

// Degree returns in-degree plus out-degree
func (g *InteractionGraph) Degree(username string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.succ[username]) + len(g.pred[username])
}

// GetStats returns current graph statistics
func (g *InteractionGraph) GetStats() (nodeCount, edgeCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes), len(g.list)
}

// Flush writes all in-memory nodes and edges to the graph store
func (g *InteractionGraph) Flush(store GraphStore) error {
	nodes := g.Nodes()
	edges := g.Edges()

	startTime := time.Now()
	logrus.Info("Starting graph flush to database...")

	if err := store.SaveGraph(nodes, edges, true); err != nil {
		return fmt.Errorf("failed to flush graph: %w", err)
	}

	logrus.Infof("Flush complete: %d nodes, %d edges written in %v", len(nodes), len(edges), time.Since(startTime))
	return nil
}

// LoadFromStorage replaces the in-memory graph with the persisted one
func (g *InteractionGraph) LoadFromStorage(store GraphStore) error {
	logrus.Info("Loading graph from database into memory...")

	nodes, edges, directed, err := store.LoadGraph()
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if !directed {
		return fmt.Errorf("stored graph is undirected")
	}

	fresh := NewInteractionGraph()
	for _, n := range nodes {
		if n.Count < 1 {
			return fmt.Errorf("invalid count %d for node %s", n.Count, n.Username)
		}
		if _, err := fresh.UpsertNode(n.Username, n.FullName, n.Followers, n.Following); err != nil {
			return err
		}
		fresh.nodes[n.Username].Count = n.Count
	}
	for _, e := range edges {
		if _, err := fresh.UpsertEdge(e.Source, e.Target); err != nil {
			return err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes, g.order = fresh.nodes, fresh.order
	g.succ, g.pred = fresh.succ, fresh.pred
	g.edges, g.list = fresh.edges, fresh.list

	logrus.Infof("Loaded %d nodes and %d edges into memory", len(nodes), len(edges))
	return nil
}
