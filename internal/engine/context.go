package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/knowledged/internal/graphstore"
	"github.com/fyrsmithlabs/knowledged/internal/memory"
	"github.com/fyrsmithlabs/knowledged/internal/sanitize"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// DesignContextRequest asks for the design context around a component.
type DesignContextRequest struct {
	ProjectID     string
	ComponentName string

	// IncludeRelated controls graph expansion. Callers default it to true.
	IncludeRelated bool
}

// DesignContextResult collects designs, patterns, and graph-related
// components for one component name.
type DesignContextResult struct {
	ComponentName     string             `json:"component_name"`
	Designs           []Evidence         `json:"designs"`
	Patterns          []Evidence         `json:"patterns"`
	RelatedComponents []RelatedComponent `json:"related_components"`

	// RelatedStatus distinguishes "no related nodes" (ok) from "graph store
	// was unreachable" (unavailable). Empty when expansion was not requested.
	RelatedStatus string `json:"related_status,omitempty"`
}

// GetDesignContext searches designs and code patterns for the component name
// and opportunistically expands graph-related components.
//
// Graph failures never propagate: resolution misses and traversal errors both
// yield an empty related-components list on a success payload.
func (e *Engine) GetDesignContext(ctx context.Context, req DesignContextRequest) (*DesignContextResult, error) {
	if err := sanitize.ValidateProjectID(req.ProjectID); err != nil {
		return nil, validationError("project_id: %v", err)
	}
	if strings.TrimSpace(req.ComponentName) == "" {
		return nil, validationError("component_name is required")
	}

	vector, err := e.embedder.EmbedQuery(ctx, req.ComponentName)
	if err != nil {
		return nil, operationError(CodeContextError, fmt.Errorf("embedding component name: %w", err))
	}

	var (
		designHits, patternHits []vectorstore.SearchHit
		designErr, patternErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		designHits, designErr = e.search.SearchCollections(gctx,
			collectionsFor(memory.TypeDesign), vector, contextDesignLimit, req.ProjectID)
		return nil
	})
	g.Go(func() error {
		patternHits, patternErr = e.search.SearchCollections(gctx,
			collectionsFor(memory.TypeCodePattern), vector, contextPatternLimit, req.ProjectID)
		return nil
	})
	_ = g.Wait()

	if designErr != nil || patternErr != nil {
		return nil, operationError(CodeContextError, errors.Join(designErr, patternErr))
	}

	result := &DesignContextResult{
		ComponentName:     req.ComponentName,
		Designs:           evidenceFrom(designHits, AlignmentPreviewLimit),
		Patterns:          evidenceFrom(patternHits, PatternPreviewLimit),
		RelatedComponents: []RelatedComponent{},
	}

	if req.IncludeRelated {
		result.RelatedStatus = string(e.expandComponent(ctx, req.ProjectID, req.ComponentName, designHits, result))
	}

	e.logger.Debug("design context complete",
		zap.String("project_id", req.ProjectID),
		zap.String("component", req.ComponentName),
		zap.Int("designs", len(designHits)),
		zap.Int("related", len(result.RelatedComponents)))

	return result, nil
}

// expandComponent resolves a graph anchor from the component name or the top
// design hit ids and expands unfiltered related nodes to the context depth.
func (e *Engine) expandComponent(ctx context.Context, projectID, name string, designHits []vectorstore.SearchHit, result *DesignContextResult) graphstore.Status {
	candidates := make([]string, 0, anchorCandidateHits)
	for _, hit := range designHits {
		if len(candidates) == anchorCandidateHits {
			break
		}
		if hit.ID != "" {
			candidates = append(candidates, hit.ID)
		}
	}

	anchorID, found := e.graph.FindAnchor(ctx, projectID, name, candidates)
	if !found {
		// No anchor resolved, or resolution itself failed; either way the
		// related list stays empty on a success payload.
		return graphstore.StatusOK
	}

	exp := e.graph.Related(ctx, anchorID, nil, contextGraphDepth)
	result.RelatedComponents = relatedFrom(exp)
	return exp.Status
}
