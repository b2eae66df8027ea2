package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
	"github.com/fyrsmithlabs/knowledged/internal/sanitize"
)

// TraceRequirementsRequest traces a requirement to its implementations.
// At least one of RequirementID and RequirementText must be set.
type TraceRequirementsRequest struct {
	ProjectID       string
	RequirementID   string
	RequirementText string
}

// RequirementRef identifies the traced requirement.
type RequirementRef struct {
	ID      string `json:"id,omitempty"`
	Preview string `json:"preview"`
}

// TraceResult links a requirement to implementing memories and graph trace.
type TraceResult struct {
	Requirement     RequirementRef     `json:"requirement"`
	Implementations []Evidence         `json:"implementations"`
	Trace           []RelatedComponent `json:"trace"`

	// TraceStatus distinguishes an empty trace (ok) from an unreachable
	// graph store (unavailable). Empty when no id was available to traverse
	// from.
	TraceStatus string `json:"trace_status,omitempty"`
}

// TraceRequirements finds implementations of a requirement given by id or by
// free text.
//
// With neither field set the call fails INVALID_INPUT before any store call.
// An id that misses the requirements collection fails NOT_FOUND. When an id
// is available the relationship graph is traversed from it restricted to
// IMPLEMENTS, SATISFIES, and TESTS edges; traversal failure yields an empty
// trace, never an error.
func (e *Engine) TraceRequirements(ctx context.Context, req TraceRequirementsRequest) (*TraceResult, error) {
	if req.RequirementID == "" && strings.TrimSpace(req.RequirementText) == "" {
		return nil, invalidInput("either requirement_id or requirement_text is required")
	}
	if err := sanitize.ValidateProjectID(req.ProjectID); err != nil {
		return nil, invalidInput("project_id: %v", err)
	}

	text := req.RequirementText
	if req.RequirementID != "" {
		if err := sanitize.ValidateMemoryID(req.RequirementID); err != nil {
			return nil, invalidInput("requirement_id: %v", err)
		}

		collection, _ := memory.TypeRequirement.Collection()
		mem, err := e.search.GetByID(ctx, collection, req.RequirementID, req.ProjectID)
		if err != nil {
			return nil, operationError(CodeTraceError, fmt.Errorf("fetching requirement %s: %w", req.RequirementID, err))
		}
		if mem == nil {
			return nil, notFound("requirement %s not found", req.RequirementID)
		}
		text = mem.Content
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, operationError(CodeTraceError, fmt.Errorf("embedding requirement: %w", err))
	}

	hits, err := e.search.SearchCollections(ctx,
		collectionsFor(memory.TypeCodePattern, memory.TypeFunction, memory.TypeComponent),
		vector, traceImplementationsLimit, req.ProjectID)
	if err != nil {
		return nil, operationError(CodeTraceError, fmt.Errorf("searching implementations: %w", err))
	}

	result := &TraceResult{
		Requirement: RequirementRef{
			ID:      req.RequirementID,
			Preview: sanitize.Truncate(text, RequirementPreviewLimit),
		},
		Implementations: evidenceFrom(hits, AlignmentPreviewLimit),
		Trace:           []RelatedComponent{},
	}

	if req.RequirementID != "" {
		exp := e.graph.Related(ctx, req.RequirementID, memory.TraceRelationships, traceGraphDepth)
		result.Trace = relatedFrom(exp)
		result.TraceStatus = string(exp.Status)
	}

	e.logger.Debug("requirement trace complete",
		zap.String("project_id", req.ProjectID),
		zap.String("requirement_id", req.RequirementID),
		zap.Int("implementations", len(hits)),
		zap.Int("trace_nodes", len(result.Trace)))

	return result, nil
}
