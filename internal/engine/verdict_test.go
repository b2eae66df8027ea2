package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/knowledged/internal/graphstore"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

func TestHasErrorIssue(t *testing.T) {
	assert.False(t, hasErrorIssue(nil))
	assert.False(t, hasErrorIssue([]Issue{
		{Severity: SeverityInfo},
		{Severity: SeverityWarning},
	}))
	assert.True(t, hasErrorIssue([]Issue{
		{Severity: SeverityWarning},
		{Severity: SeverityError},
	}))
}

func TestEvidenceFrom(t *testing.T) {
	hits := []vectorstore.SearchHit{
		{ID: "a", Score: 0.9, Collection: "design", Content: strings.Repeat("x", 400)},
		{ID: "b", Score: 0.5, Collection: "code_pattern", Content: "short"},
	}

	evidence := evidenceFrom(hits, 300)

	require.Len(t, evidence, 2)
	assert.Len(t, evidence[0].Preview, 300)
	assert.Equal(t, "short", evidence[1].Preview)
	assert.Equal(t, "design", evidence[0].Collection)
}

func TestEvidenceFromEmpty(t *testing.T) {
	evidence := evidenceFrom(nil, 200)
	assert.NotNil(t, evidence)
	assert.Empty(t, evidence)
}

func TestRelatedFrom(t *testing.T) {
	exp := graphstore.Expansion{
		Status: graphstore.StatusOK,
		Nodes: []graphstore.RelatedNode{
			{
				Node: graphstore.Node{
					ID:       "c1",
					Label:    "Component",
					Type:     "component",
					Metadata: map[string]interface{}{"name": "session", "owner": "platform"},
				},
				Relationship: "CONTAINS",
			},
			{
				Node:         graphstore.Node{ID: "c2", Label: "Function"},
				Relationship: "IMPLEMENTS",
			},
		},
	}

	related := relatedFrom(exp)

	require.Len(t, related, 2)
	assert.Equal(t, "session", related[0].Name)
	assert.Equal(t, "CONTAINS", related[0].Relationship)
	assert.Empty(t, related[1].Name, "missing name metadata stays empty")
}

func TestTopScore(t *testing.T) {
	assert.Equal(t, float32(0), topScore(nil))
	assert.Equal(t, float32(0.8), topScore([]vectorstore.SearchHit{
		{Score: 0.8}, {Score: 0.6},
	}))
}
