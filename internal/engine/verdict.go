package engine

import (
	"github.com/fyrsmithlabs/knowledged/internal/graphstore"
	"github.com/fyrsmithlabs/knowledged/internal/sanitize"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// Severity classifies an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue kinds produced by the score classifier.
const (
	IssueNoPatterns    = "no_patterns"
	IssueLowSimilarity = "low_similarity"
)

// Issue is one classified finding of a consistency query.
type Issue struct {
	Kind             string   `json:"kind"`
	Severity         Severity `json:"severity"`
	Message          string   `json:"message"`
	RelatedReference string   `json:"related_reference,omitempty"`
}

// hasErrorIssue reports whether any issue carries error severity. The
// consistency verdict is a pure function of this.
func hasErrorIssue(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Evidence is one supporting search hit surfaced to the caller, with its
// content truncated to the operation's preview budget.
type Evidence struct {
	ID         string  `json:"id"`
	Score      float32 `json:"score"`
	Collection string  `json:"collection"`
	Preview    string  `json:"preview"`
}

// evidenceFrom converts hits into caller-facing evidence.
// Always returns a non-nil slice: an empty evidence list is a valid verdict.
func evidenceFrom(hits []vectorstore.SearchHit, previewLimit int) []Evidence {
	evidence := make([]Evidence, 0, len(hits))
	for _, hit := range hits {
		evidence = append(evidence, Evidence{
			ID:         hit.ID,
			Score:      hit.Score,
			Collection: hit.Collection,
			Preview:    sanitize.Truncate(hit.Content, previewLimit),
		})
	}
	return evidence
}

// RelatedComponent is one graph node reached during expansion, paired with
// the relationship that reached it.
type RelatedComponent struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Label        string `json:"label,omitempty"`
	Type         string `json:"type,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// relatedFrom converts an expansion into caller-facing related components.
func relatedFrom(exp graphstore.Expansion) []RelatedComponent {
	related := make([]RelatedComponent, 0, len(exp.Nodes))
	for _, rn := range exp.Nodes {
		rc := RelatedComponent{
			ID:           rn.Node.ID,
			Label:        rn.Node.Label,
			Type:         rn.Node.Type,
			Relationship: rn.Relationship,
		}
		if name, ok := rn.Node.Metadata["name"].(string); ok {
			rc.Name = name
		}
		related = append(related, rc)
	}
	return related
}

// topScore returns the score of the highest-ranked hit, zero when empty.
func topScore(hits []vectorstore.SearchHit) float32 {
	if len(hits) == 0 {
		return 0
	}
	return hits[0].Score
}
