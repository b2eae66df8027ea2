// Package engine implements the retrieval and consistency engine: the four
// query pipelines that combine multi-collection similarity search,
// score-threshold classification, and graph-relationship expansion into
// structured verdicts.
//
// The engine is a stateless pipeline over externally-owned state. Every
// operation embeds the caller's text once, searches one or two collection
// sets (concurrently when independent), optionally expands the relationship
// graph, and assembles a single response. Vector store failures surface as
// errors; graph failures always degrade to empty results.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/graphstore"
	"github.com/fyrsmithlabs/knowledged/internal/memory"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// Per-pipeline search limits and bounds.
const (
	// maxCodeLength bounds the code fragment accepted by CheckConsistency.
	maxCodeLength = 10000

	consistencyLimit          = 5
	fixRequirementsLimit      = 5
	fixDesignLimit            = 3
	contextDesignLimit        = 10
	contextPatternLimit       = 5
	traceImplementationsLimit = 10

	contextGraphDepth = 2
	traceGraphDepth   = 3

	// anchorCandidateHits is how many top design hits feed anchor resolution.
	anchorCandidateHits = 3
)

// Content preview budgets, in characters.
const (
	PatternPreviewLimit     = 200
	AlignmentPreviewLimit   = 300
	RequirementPreviewLimit = 500
)

// Embedder turns caller-supplied text into an embedding.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher issues scoped similarity searches and direct lookups against the
// vector store.
type Searcher interface {
	SearchCollections(ctx context.Context, collections []string, vector []float32, limit int, projectID string) ([]vectorstore.SearchHit, error)
	GetByID(ctx context.Context, collection, id, projectID string) (*memory.Memory, error)
}

// Grapher resolves graph anchors and expands bounded-depth related nodes.
// Implementations must never return errors; failures degrade to not-found
// anchors and unavailable expansions.
type Grapher interface {
	FindAnchor(ctx context.Context, projectID, name string, candidateIDs []string) (string, bool)
	Related(ctx context.Context, anchorID string, allowlist []memory.Relationship, depth int) graphstore.Expansion
}

// Config holds the score-classification policy.
//
// The thresholds are tunable configuration, not hard literals: similarity at
// or above PatternMatchThreshold makes a retrieved pattern "closely
// matching"; similarity strictly above AlignmentThreshold makes a requirement
// or design "aligned" with a proposed change.
type Config struct {
	PatternMatchThreshold float64
	AlignmentThreshold    float64
}

// DefaultConfig returns the policy defaults.
func DefaultConfig() Config {
	return Config{
		PatternMatchThreshold: 0.7,
		AlignmentThreshold:    0.5,
	}
}

// Validate checks threshold sanity.
func (c Config) Validate() error {
	if c.PatternMatchThreshold <= 0 || c.PatternMatchThreshold > 1 {
		return fmt.Errorf("pattern match threshold must be in (0, 1], got %v", c.PatternMatchThreshold)
	}
	if c.AlignmentThreshold <= 0 || c.AlignmentThreshold > 1 {
		return fmt.Errorf("alignment threshold must be in (0, 1], got %v", c.AlignmentThreshold)
	}
	return nil
}

// Engine orchestrates the four retrieval operations.
type Engine struct {
	embedder Embedder
	search   Searcher
	graph    Grapher
	cfg      Config
	logger   *zap.Logger
}

// New creates an Engine. All three collaborators are required.
func New(embedder Embedder, search Searcher, graph Grapher, cfg Config, logger *zap.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if search == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("grapher is required")
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		embedder: embedder,
		search:   search,
		graph:    graph,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// collectionsFor maps memory types to their collection names.
// Only called with the package's own type constants.
func collectionsFor(types ...memory.Type) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		name, err := t.Collection()
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names
}
