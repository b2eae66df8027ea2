package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
	"github.com/fyrsmithlabs/knowledged/internal/sanitize"
)

// CheckConsistencyRequest asks whether a code fragment is consistent with
// stored code patterns and designs.
type CheckConsistencyRequest struct {
	ProjectID     string
	Code          string
	ComponentName string
}

// ConsistencyResult is the verdict of a consistency check.
//
// Consistent is always a pure function of Issues: it is true exactly when no
// issue carries error severity. The current classifier produces only info and
// warning issues, so Consistent cannot yet be false; that changes when the
// classifier grows error-severity rules.
type ConsistencyResult struct {
	Consistent      bool       `json:"consistent"`
	Issues          []Issue    `json:"issues"`
	MatchedPatterns []Evidence `json:"matched_patterns"`
}

// CheckConsistency searches the code_pattern and design collections for the
// given fragment and classifies the top match against the pattern threshold.
func (e *Engine) CheckConsistency(ctx context.Context, req CheckConsistencyRequest) (*ConsistencyResult, error) {
	if err := sanitize.ValidateProjectID(req.ProjectID); err != nil {
		return nil, validationError("project_id: %v", err)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, validationError("code is required")
	}
	if len(req.Code) > maxCodeLength {
		return nil, validationError("code exceeds maximum length of %d characters", maxCodeLength)
	}

	text := req.Code
	if req.ComponentName != "" {
		text = req.ComponentName + "\n\n" + req.Code
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, operationError(CodeConsistencyError, fmt.Errorf("embedding query: %w", err))
	}

	hits, err := e.search.SearchCollections(ctx,
		collectionsFor(memory.TypeCodePattern, memory.TypeDesign),
		vector, consistencyLimit, req.ProjectID)
	if err != nil {
		return nil, operationError(CodeConsistencyError, fmt.Errorf("searching patterns: %w", err))
	}

	issues := []Issue{}
	if len(hits) == 0 {
		issues = append(issues, Issue{
			Kind:     IssueNoPatterns,
			Severity: SeverityInfo,
			Message:  "no stored code patterns or designs matched this fragment",
		})
	} else if float64(hits[0].Score) < e.cfg.PatternMatchThreshold {
		// Only the top-ranked hit is inspected; lower ranks never raise issues.
		issues = append(issues, Issue{
			Kind:             IssueLowSimilarity,
			Severity:         SeverityWarning,
			Message:          fmt.Sprintf("closest pattern scored %.2f, below the %.2f match threshold", hits[0].Score, e.cfg.PatternMatchThreshold),
			RelatedReference: sanitize.Truncate(hits[0].Content, PatternPreviewLimit),
		})
	}

	result := &ConsistencyResult{
		Consistent:      !hasErrorIssue(issues),
		Issues:          issues,
		MatchedPatterns: evidenceFrom(hits, PatternPreviewLimit),
	}

	e.logger.Debug("consistency check complete",
		zap.String("project_id", req.ProjectID),
		zap.Int("hits", len(hits)),
		zap.Bool("consistent", result.Consistent))

	return result, nil
}
