package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
	"github.com/fyrsmithlabs/knowledged/internal/sanitize"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// ValidateFixRequest asks whether a proposed fix aligns with stored
// requirements and designs.
type ValidateFixRequest struct {
	ProjectID      string
	FixDescription string

	// CodeChanges is accepted for symmetry with the caller's workflow but
	// does not feed the search: alignment is judged on the fix description
	// embedding alone.
	CodeChanges string

	// RequirementIDs are requirement identifiers the caller claims the fix
	// addresses. Each is echoed back with whether it appeared in the aligned
	// hits.
	RequirementIDs []string
}

// ReferencedRequirement echoes one caller-supplied requirement id.
type ReferencedRequirement struct {
	ID      string `json:"id"`
	Matched bool   `json:"matched"`
}

// FixValidationResult is the alignment verdict for a proposed fix.
//
// Valid is always RequirementsAlignment OR DesignAlignment: either source of
// alignment suffices. Each alignment flag requires a non-empty hit set and a
// top score strictly above the alignment threshold.
type FixValidationResult struct {
	Valid                  bool                    `json:"valid"`
	RequirementsAlignment  bool                    `json:"requirements_alignment"`
	DesignAlignment        bool                    `json:"design_alignment"`
	RequirementsScore      float32                 `json:"requirements_score"`
	DesignScore            float32                 `json:"design_score"`
	RelatedRequirements    []Evidence              `json:"related_requirements"`
	RelatedDesigns         []Evidence              `json:"related_designs"`
	ReferencedRequirements []ReferencedRequirement `json:"referenced_requirements,omitempty"`
}

// ValidateFix searches requirements and designs concurrently with the fix
// description embedding and classifies both against the alignment threshold.
func (e *Engine) ValidateFix(ctx context.Context, req ValidateFixRequest) (*FixValidationResult, error) {
	if err := sanitize.ValidateProjectID(req.ProjectID); err != nil {
		return nil, validationError("project_id: %v", err)
	}
	if strings.TrimSpace(req.FixDescription) == "" {
		return nil, validationError("fix_description is required")
	}

	vector, err := e.embedder.EmbedQuery(ctx, req.FixDescription)
	if err != nil {
		return nil, operationError(CodeValidationError, fmt.Errorf("embedding fix description: %w", err))
	}

	// The two searches target disjoint collections; dispatch them
	// concurrently. Branch errors are captured per slot rather than returned
	// from the group, so one failing branch cannot cancel or hide the other.
	var (
		reqHits, designHits []vectorstore.SearchHit
		reqErr, designErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqHits, reqErr = e.search.SearchCollections(gctx,
			collectionsFor(memory.TypeRequirement), vector, fixRequirementsLimit, req.ProjectID)
		return nil
	})
	g.Go(func() error {
		designHits, designErr = e.search.SearchCollections(gctx,
			collectionsFor(memory.TypeDesign), vector, fixDesignLimit, req.ProjectID)
		return nil
	})
	_ = g.Wait()

	// A backend fault is never masked as a negative verdict.
	if reqErr != nil || designErr != nil {
		return nil, operationError(CodeValidationError, errors.Join(reqErr, designErr))
	}

	reqScore := topScore(reqHits)
	designScore := topScore(designHits)

	result := &FixValidationResult{
		RequirementsAlignment: len(reqHits) > 0 && float64(reqScore) > e.cfg.AlignmentThreshold,
		DesignAlignment:       len(designHits) > 0 && float64(designScore) > e.cfg.AlignmentThreshold,
		RequirementsScore:     reqScore,
		DesignScore:           designScore,
		RelatedRequirements:   evidenceFrom(reqHits, AlignmentPreviewLimit),
		RelatedDesigns:        evidenceFrom(designHits, AlignmentPreviewLimit),
	}
	result.Valid = result.RequirementsAlignment || result.DesignAlignment

	if len(req.RequirementIDs) > 0 {
		matched := make(map[string]bool, len(reqHits))
		for _, hit := range reqHits {
			matched[hit.ID] = true
		}
		refs := make([]ReferencedRequirement, 0, len(req.RequirementIDs))
		for _, id := range req.RequirementIDs {
			refs = append(refs, ReferencedRequirement{ID: id, Matched: matched[id]})
		}
		result.ReferencedRequirements = refs
	}

	e.logger.Debug("fix validation complete",
		zap.String("project_id", req.ProjectID),
		zap.Bool("valid", result.Valid),
		zap.Float32("requirements_score", reqScore),
		zap.Float32("design_score", designScore))

	return result, nil
}
