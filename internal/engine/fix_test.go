package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

const (
	requirementsKey = "requirements"
	designKey       = "design"
)

func TestValidateFixAlignedOnRequirements(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		requirementsKey: {hit("req-1", 0.8, "requirements", "users must be able to reset passwords")},
		designKey:       {hit("des-1", 0.3, "design", "session design")},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "add password reset endpoint",
	})
	require.NoError(t, err)

	// One aligned source suffices.
	assert.True(t, result.Valid)
	assert.True(t, result.RequirementsAlignment)
	assert.False(t, result.DesignAlignment)
	assert.Equal(t, float32(0.8), result.RequirementsScore)
	assert.Equal(t, float32(0.3), result.DesignScore)
	require.Len(t, result.RelatedRequirements, 1)
	assert.Equal(t, "req-1", result.RelatedRequirements[0].ID)
}

func TestValidateFixNotAligned(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		requirementsKey: {hit("req-1", 0.42, "requirements", "unrelated requirement")},
		designKey:       {hit("des-1", 0.38, "design", "unrelated design")},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "rewrite everything in a weekend",
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.False(t, result.RequirementsAlignment)
	assert.False(t, result.DesignAlignment)
	assert.Equal(t, float32(0.42), result.RequirementsScore)
}

func TestValidateFixThresholdIsStrict(t *testing.T) {
	// Exactly the threshold is not aligned: alignment requires strictly
	// greater similarity.
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		requirementsKey: {hit("req-1", 0.5, "requirements", "requirement")},
		designKey:       {},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "borderline fix",
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.False(t, result.RequirementsAlignment)
}

func TestValidateFixEmptyHitsNeverAlign(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "fix for an empty store",
	})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Zero(t, result.RequirementsScore)
	assert.NotNil(t, result.RelatedRequirements)
	assert.Empty(t, result.RelatedRequirements)
}

func TestValidateFixSearchesBothCollections(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{}}
	eng := newTestEngine(t, nil, search, nil)

	_, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "some fix",
	})
	require.NoError(t, err)

	require.Equal(t, 2, search.callCount())
	limits := map[string]int{}
	for _, call := range search.calls {
		limits[searchKey(call.collections)] = call.limit
		assert.Equal(t, "webapp", call.projectID)
	}
	assert.Equal(t, fixRequirementsLimit, limits[requirementsKey])
	assert.Equal(t, fixDesignLimit, limits[designKey])
}

func TestValidateFixBranchFailure(t *testing.T) {
	// One failing branch fails the operation, but the sibling branch still
	// ran to completion.
	search := &fakeSearcher{
		hits: map[string][]vectorstore.SearchHit{
			designKey: {hit("des-1", 0.9, "design", "design")},
		},
		errs: map[string]error{
			requirementsKey: vectorstore.ErrStoreUnavailable,
		},
	}
	eng := newTestEngine(t, nil, search, nil)

	_, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "some fix",
	})
	require.Error(t, err)

	e := AsError(err, CodeValidationError)
	assert.Equal(t, CodeValidationError, e.Code)
	assert.NotEmpty(t, e.Suggestion)
	assert.Equal(t, 2, search.callCount(), "the healthy branch must not be cancelled")
}

func TestValidateFixReferencedRequirements(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		requirementsKey: {
			hit("req-1", 0.8, "requirements", "first"),
			hit("req-2", 0.7, "requirements", "second"),
		},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "some fix",
		RequirementIDs: []string{"req-1", "req-9"},
	})
	require.NoError(t, err)

	require.Len(t, result.ReferencedRequirements, 2)
	assert.Equal(t, ReferencedRequirement{ID: "req-1", Matched: true}, result.ReferencedRequirements[0])
	assert.Equal(t, ReferencedRequirement{ID: "req-9", Matched: false}, result.ReferencedRequirements[1])
}

func TestValidateFixEmbedsDescriptionOnly(t *testing.T) {
	embedder := &fakeEmbedder{}
	eng := newTestEngine(t, embedder, &fakeSearcher{}, nil)

	_, err := eng.ValidateFix(context.Background(), ValidateFixRequest{
		ProjectID:      "webapp",
		FixDescription: "swap the cache eviction policy",
		CodeChanges:    "func evict() { /* ... */ }",
	})
	require.NoError(t, err)

	require.Len(t, embedder.calls, 1)
	assert.Equal(t, "swap the cache eviction policy", embedder.calls[0])
}

func TestValidateFixValidation(t *testing.T) {
	eng := newTestEngine(t, nil, nil, nil)

	_, err := eng.ValidateFix(context.Background(), ValidateFixRequest{ProjectID: "webapp"})
	require.Error(t, err)
	assert.Equal(t, CodeValidationError, AsError(err, "").Code)

	_, err = eng.ValidateFix(context.Background(), ValidateFixRequest{ProjectID: "Bad!", FixDescription: "fix"})
	require.Error(t, err)
	assert.Equal(t, CodeValidationError, AsError(err, "").Code)
}
