package graph

import (
	"math"

	"mindvault/internal/memory"
)

const similarityThreshold = 0.7

// Node is a graph vertex: either an ingested document or a category hub.
type Node struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "file" or "category"
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Modality string `json:"modality,omitempty"`
}

// Edge connects two nodes. "belongs_to" links a file to its category hub;
// "similar" links two files whose descriptions embed close to one another.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

// Graph is the knowledge graph over the user's stored documents.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Stats summarises a graph.
type Stats struct {
	FileCount     int            `json:"file_count"`
	CategoryCount int            `json:"category_count"`
	EdgeCount     int            `json:"edge_count"`
	SimilarPairs  int            `json:"similar_pairs"`
	ByCategory    map[string]int `json:"by_category"`
}

// Build assembles the graph from stored records. Every document becomes a
// file node linked to its category hub, and each pair of documents whose
// embedding similarity exceeds the threshold gets a weighted similar edge.
func Build(records []memory.DocumentRecord) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}

	categories := make(map[string]bool)
	for _, rec := range records {
		g.Nodes = append(g.Nodes, Node{
			ID:       rec.DocID,
			Type:     "file",
			Label:    rec.FileName,
			Category: rec.Category,
			Modality: string(rec.Modality),
		})
		if !categories[rec.Category] {
			categories[rec.Category] = true
			g.Nodes = append(g.Nodes, Node{
				ID:    categoryNodeID(rec.Category),
				Type:  "category",
				Label: rec.Category,
			})
		}
		g.Edges = append(g.Edges, Edge{
			Source: rec.DocID,
			Target: categoryNodeID(rec.Category),
			Type:   "belongs_to",
		})
	}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			sim := cosineSimilarity(records[i].Embedding, records[j].Embedding)
			if sim > similarityThreshold {
				g.Edges = append(g.Edges, Edge{
					Source: records[i].DocID,
					Target: records[j].DocID,
					Type:   "similar",
					Weight: math.Round(sim*100) / 100,
				})
			}
		}
	}

	return g
}

// ComputeStats tallies node and edge counts per kind.
func ComputeStats(g Graph) Stats {
	stats := Stats{ByCategory: make(map[string]int)}
	for _, node := range g.Nodes {
		switch node.Type {
		case "file":
			stats.FileCount++
			stats.ByCategory[node.Category]++
		case "category":
			stats.CategoryCount++
		}
	}
	stats.EdgeCount = len(g.Edges)
	for _, edge := range g.Edges {
		if edge.Type == "similar" {
			stats.SimilarPairs++
		}
	}
	return stats
}

// Related returns the file nodes connected to the given document by similar
// edges, paired with the edge weights.
func Related(g Graph, docID string) []Edge {
	var related []Edge
	for _, edge := range g.Edges {
		if edge.Type != "similar" {
			continue
		}
		if edge.Source == docID || edge.Target == docID {
			related = append(related, edge)
		}
	}
	return related
}

// ByCategory returns the file nodes attached to the named category hub.
func ByCategory(g Graph, category string) []Node {
	var nodes []Node
	for _, node := range g.Nodes {
		if node.Type == "file" && node.Category == category {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func categoryNodeID(category string) string {
	return "category:" + category
}

// cosineSimilarity computes the normalised dot product of two vectors.
// Mismatched lengths or zero vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
