// Package memory defines the typed knowledge model shared by the vector and
// graph stores.
//
// A Memory is a project-scoped, soft-deletable unit of stored knowledge. Each
// memory type maps to its own vector store collection; the relationship graph
// keys its nodes by memory id.
package memory

import (
	"fmt"
	"time"
)

// Type enumerates the kinds of knowledge the store holds.
type Type string

const (
	TypeRequirement Type = "requirement"
	TypeDesign      Type = "design"
	TypeCodePattern Type = "code_pattern"
	TypeComponent   Type = "component"
	TypeFunction    Type = "function"
	TypeTestResult  Type = "test_result"
	TypeSession     Type = "session"
)

// collections maps memory types to their vector store collection names.
var collections = map[Type]string{
	TypeRequirement: "requirements",
	TypeDesign:      "design",
	TypeCodePattern: "code_pattern",
	TypeComponent:   "component",
	TypeFunction:    "function",
	TypeTestResult:  "test_results",
	TypeSession:     "sessions",
}

// Valid reports whether t is a known memory type.
func (t Type) Valid() bool {
	_, ok := collections[t]
	return ok
}

// Collection returns the vector store collection name for t.
// Returns an error for unknown types rather than guessing a name.
func (t Type) Collection() (string, error) {
	name, ok := collections[t]
	if !ok {
		return "", fmt.Errorf("unknown memory type: %q", string(t))
	}
	return name, nil
}

// Memory is a single stored unit of project knowledge.
//
// Memories are created and mutated by the indexing path; the retrieval engine
// treats them as read-only. Deleted memories must never surface in search
// results.
type Memory struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Deleted   bool                   `json:"deleted"`
	ProjectID string                 `json:"project_id"`
}

// Relationship enumerates the typed directed edges of the knowledge graph.
type Relationship string

const (
	RelImplements Relationship = "IMPLEMENTS"
	RelSatisfies  Relationship = "SATISFIES"
	RelTests      Relationship = "TESTS"
	RelDependsOn  Relationship = "DEPENDS_ON"
	RelContains   Relationship = "CONTAINS"
	RelRelatesTo  Relationship = "RELATES_TO"
)

// TraceRelationships are the edge types followed when tracing a requirement
// to its implementations.
var TraceRelationships = []Relationship{RelImplements, RelSatisfies, RelTests}
