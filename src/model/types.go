package model

// Node is one entry of the travel dataset loaded into the graph store and
// uploaded to the vector index.
type Node struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Name         string       `json:"name"`
	City         string       `json:"city,omitempty"`
	Region       string       `json:"region,omitempty"`
	Description  string       `json:"description,omitempty"`
	SemanticText string       `json:"semantic_text,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Connections  []Connection `json:"connections,omitempty"`
}

// Connection is an outgoing relationship declared on a dataset node.
type Connection struct {
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// GraphFact is one neighbor fact fetched from the graph store.
// Source is empty for 1-hop facts and holds the intermediate node id for
// 2-hop facts.
type GraphFact struct {
	Source     string   `json:"source,omitempty"`
	Rel        string   `json:"rel"`
	TargetID   string   `json:"target_id"`
	TargetName string   `json:"target_name"`
	TargetDesc string   `json:"target_desc"`
	Labels     []string `json:"labels"`
}

// VectorMatch is one scored result from the vector index.
type VectorMatch struct {
	ID       string    `json:"id"`
	Score    float64   `json:"score"`
	Metadata NodeMeta  `json:"metadata"`
	Values   []float64 `json:"values,omitempty"`
}

// NodeMeta is the metadata payload stored alongside each vector.
type NodeMeta struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Name string   `json:"name"`
	City string   `json:"city,omitempty"`
	Tags []string `json:"tags,omitempty"`
}
