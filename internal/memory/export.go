package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// NodeLinkGraph is the document consumed by the graph renderer
type NodeLinkGraph struct {
	Directed bool           `json:"directed"`
	MainUser string         `json:"main_user"`
	Nodes    []NodeLinkNode `json:"nodes"`
	Links    []NodeLinkEdge `json:"links"`
}

// NodeLinkNode carries per-node display attributes and adjacency
type NodeLinkNode struct {
	ID           string   `json:"id"`
	Count        int      `json:"count"`
	FullName     string   `json:"full_name"`
	Followers    int      `json:"followers"`
	Following    int      `json:"following"`
	FinalScore   *float64 `json:"final_score,omitempty"`
	Predecessors []string `json:"predecessors"`
	Successors   []string `json:"successors"`
}

// NodeLinkEdge is a directed link
type NodeLinkEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// BuildNodeLink assembles the export document from the graph and the cache
func BuildNodeLink(g *InteractionGraph, cache *ProfileCache, mainUser string) NodeLinkGraph {
	doc := NodeLinkGraph{
		Directed: true,
		MainUser: mainUser,
		Nodes:    []NodeLinkNode{},
		Links:    []NodeLinkEdge{},
	}

	for _, n := range g.Nodes() {
		node := NodeLinkNode{
			ID:           n.Username,
			Count:        n.Count,
			FullName:     n.FullName,
			Followers:    n.Followers,
			Following:    n.Following,
			Predecessors: nonNil(g.Predecessors(n.Username)),
			Successors:   nonNil(g.Successors(n.Username)),
		}
		if cache != nil {
			if p, ok := cache.Get(n.Username); ok && p.SuspiciousScore != nil {
				score := p.SuspiciousScore.FinalScore
				node.FinalScore = &score
			}
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, e := range g.Edges() {
		doc.Links = append(doc.Links, NodeLinkEdge{Source: e.Source, Target: e.Target})
	}

	return doc
}

// EncodeNodeLink writes the export document as indented JSON
func EncodeNodeLink(w io.Writer, doc NodeLinkGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// WriteNodeLink exports the graph to a JSON file
func WriteNodeLink(path string, g *InteractionGraph, cache *ProfileCache, mainUser string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}

	if err := EncodeNodeLink(file, BuildNodeLink(g, cache, mainUser)); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
