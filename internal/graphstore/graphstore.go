// Package graphstore reads the typed relationship graph from Neo4j.
//
// The graph holds one node per memory id and typed directed edges between
// them. This layer is strictly read-only and strictly best-effort: every
// traversal failure is absorbed locally and reported as an unavailable
// Expansion, never as an error. The engine relies on that asymmetry - vector
// search failures are hard errors, graph failures degrade to empty results.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
)

const (
	// maxDepth bounds traversal depth regardless of caller input.
	maxDepth = 5

	// maxRelated bounds the number of related nodes one expansion returns.
	maxRelated = 50
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Status tags an expansion outcome so callers can distinguish "no related
// nodes" from "graph store was unreachable".
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
)

// Node is a graph node keyed by memory id.
type Node struct {
	ID       string                 `json:"id"`
	Label    string                 `json:"label"`
	Type     string                 `json:"type"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RelatedNode pairs a node with the relationship that reached it.
type RelatedNode struct {
	Node         Node   `json:"node"`
	Relationship string `json:"relationship"`
}

// Expansion is the typed outcome of a bounded-depth traversal.
type Expansion struct {
	Status Status        `json:"status"`
	Nodes  []RelatedNode `json:"nodes"`
}

// Config holds Neo4j connection settings.
type Config struct {
	// URI is the bolt URI, e.g. "bolt://localhost:7687".
	URI string

	// Username authenticates the driver.
	Username string

	// Password authenticates the driver. Never logged.
	Password string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: URI required", ErrInvalidConfig)
	}
	return nil
}

// Store reads the relationship graph.
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a Store. Connectivity problems are logged, not fatal:
// an unreachable graph degrades every expansion to an unavailable result
// instead of preventing startup.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		logger.Warn("graph store unreachable at startup, expansions will degrade to empty",
			zap.String("uri", cfg.URI), zap.Error(err))
	}

	return &Store{driver: driver, logger: logger}, nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// FindAnchor resolves a graph anchor by best-effort structured match: a node
// whose name contains the given name, or whose id is one of the candidate
// ids. At most one match is taken; ambiguous matches are not disambiguated,
// the first match wins. Any failure resolves to not-found.
func (s *Store) FindAnchor(ctx context.Context, projectID, name string, candidateIDs []string) (string, bool) {
	if name == "" && len(candidateIDs) == 0 {
		return "", false
	}
	if candidateIDs == nil {
		candidateIDs = []string{}
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, anchorQuery, map[string]interface{}{
		"project_id": projectID,
		"name":       name,
		"ids":        candidateIDs,
	})
	if err != nil {
		s.logger.Warn("anchor resolution failed", zap.String("name", name), zap.Error(err))
		return "", false
	}

	if result.Next(ctx) {
		id := getString(result.Record(), "id")
		if id != "" {
			return id, true
		}
	}
	if err := result.Err(); err != nil {
		s.logger.Warn("anchor resolution failed", zap.String("name", name), zap.Error(err))
	}
	return "", false
}

// Related expands nodes reachable from anchorID within depth hops, filtered
// by the relationship-type allow-list when one is supplied.
//
// All traversal failures are swallowed to an unavailable Expansion; this
// method never returns an error.
func (s *Store) Related(ctx context.Context, anchorID string, allowlist []memory.Relationship, depth int) Expansion {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := relatedQuery(depth, len(allowlist) > 0)
	params := map[string]interface{}{
		"id":    anchorID,
		"limit": maxRelated,
	}
	if len(allowlist) > 0 {
		types := make([]string, len(allowlist))
		for i, rel := range allowlist {
			types[i] = string(rel)
		}
		params["types"] = types
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		s.logger.Warn("graph expansion failed", zap.String("anchor", anchorID), zap.Error(err))
		return Expansion{Status: StatusUnavailable}
	}

	var nodes []RelatedNode
	for result.Next(ctx) {
		record := result.Record()
		node := Node{
			ID:    getString(record, "id"),
			Label: getString(record, "label"),
			Type:  getString(record, "type"),
		}
		if props, ok := record.Get("props"); ok {
			if m, ok := props.(map[string]interface{}); ok {
				node.Metadata = m
			}
		}
		nodes = append(nodes, RelatedNode{
			Node:         node,
			Relationship: getString(record, "relationship"),
		})
	}
	if err := result.Err(); err != nil {
		s.logger.Warn("graph expansion failed mid-stream", zap.String("anchor", anchorID), zap.Error(err))
		return Expansion{Status: StatusUnavailable}
	}

	return Expansion{Status: StatusOK, Nodes: nodes}
}

// anchorQuery matches the first node by name containment or candidate id
// membership. No ORDER BY: first match wins.
const anchorQuery = `
MATCH (n)
WHERE n.project_id = $project_id
  AND (($name <> '' AND toLower(n.name) CONTAINS toLower($name)) OR n.id IN $ids)
RETURN n.id AS id
LIMIT 1
`

// relatedQuery builds the bounded-depth traversal. Depth is inlined because
// Cypher cannot parameterize variable-length bounds; it is clamped first.
func relatedQuery(depth int, filtered bool) string {
	depth = clampDepth(depth)

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (a {id: $id})-[rels*1..%d]-(n)\nWHERE a <> n", depth)
	if filtered {
		b.WriteString("\n  AND ALL(rel IN rels WHERE type(rel) IN $types)")
	}
	b.WriteString(`
RETURN DISTINCT n.id AS id,
       coalesce(labels(n)[0], '') AS label,
       coalesce(n.type, '') AS type,
       properties(n) AS props,
       type(last(rels)) AS relationship
LIMIT $limit`)
	return b.String()
}

// clampDepth bounds traversal depth to [1, maxDepth].
func clampDepth(depth int) int {
	if depth < 1 {
		return 1
	}
	if depth > maxDepth {
		return maxDepth
	}
	return depth
}

// getString extracts a string field from a record, empty on miss.
func getString(record *db.Record, key string) string {
	val, ok := record.Get(key)
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}
