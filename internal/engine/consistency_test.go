package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

const patternKey = "code_pattern,design"

func TestCheckConsistencyNoPatterns(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID: "webapp",
		Code:      "func handleLogin(w http.ResponseWriter, r *http.Request) {}",
	})
	require.NoError(t, err)

	// No stored knowledge is informational, not a failure.
	assert.True(t, result.Consistent)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, IssueNoPatterns, result.Issues[0].Kind)
	assert.Equal(t, SeverityInfo, result.Issues[0].Severity)
	assert.NotNil(t, result.MatchedPatterns)
	assert.Empty(t, result.MatchedPatterns)
}

func TestCheckConsistencyLowSimilarity(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		patternKey: {
			hit("p1", 0.65, "code_pattern", strings.Repeat("handler pattern ", 30)),
			hit("p2", 0.60, "code_pattern", "helper"),
		},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID: "webapp",
		Code:      "func x() {}",
	})
	require.NoError(t, err)

	assert.True(t, result.Consistent, "warnings do not flip the verdict")
	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, IssueLowSimilarity, issue.Kind)
	assert.Equal(t, SeverityWarning, issue.Severity)
	assert.Contains(t, issue.Message, "0.65")
	assert.LessOrEqual(t, len([]rune(issue.RelatedReference)), PatternPreviewLimit)

	require.Len(t, result.MatchedPatterns, 2)
	assert.Equal(t, "p1", result.MatchedPatterns[0].ID)
}

func TestCheckConsistencyAboveThreshold(t *testing.T) {
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		patternKey: {hit("p1", 0.82, "code_pattern", "retry with backoff")},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID: "webapp",
		Code:      "func retry() {}",
	})
	require.NoError(t, err)

	assert.True(t, result.Consistent)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Issues, "issues is always a list, never null")
}

func TestCheckConsistencyExactThreshold(t *testing.T) {
	// 0.70 meets the 0.7 threshold: "score below threshold" is strict.
	search := &fakeSearcher{hits: map[string][]vectorstore.SearchHit{
		patternKey: {hit("p1", 0.70, "code_pattern", "pattern")},
	}}
	eng := newTestEngine(t, nil, search, nil)

	result, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID: "webapp",
		Code:      "func x() {}",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
}

func TestCheckConsistencyComponentNameFeedsEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	eng := newTestEngine(t, embedder, &fakeSearcher{}, nil)

	_, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID:     "webapp",
		Code:          "func x() {}",
		ComponentName: "auth",
	})
	require.NoError(t, err)

	require.Len(t, embedder.calls, 1)
	assert.Equal(t, "auth\n\nfunc x() {}", embedder.calls[0])
}

func TestCheckConsistencyValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CheckConsistencyRequest
	}{
		{name: "bad project id", req: CheckConsistencyRequest{ProjectID: "Bad-Project", Code: "x"}},
		{name: "empty code", req: CheckConsistencyRequest{ProjectID: "webapp", Code: "   "}},
		{name: "code too long", req: CheckConsistencyRequest{ProjectID: "webapp", Code: strings.Repeat("x", maxCodeLength+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &fakeEmbedder{}
			search := &fakeSearcher{}
			eng := newTestEngine(t, embedder, search, nil)

			_, err := eng.CheckConsistency(context.Background(), tt.req)
			require.Error(t, err)

			e := AsError(err, CodeConsistencyError)
			assert.Equal(t, CodeValidationError, e.Code)
			assert.Empty(t, embedder.calls, "validation failures must precede backend calls")
			assert.Zero(t, search.callCount())
		})
	}
}

func TestCheckConsistencyStoreUnavailable(t *testing.T) {
	search := &fakeSearcher{errs: map[string]error{
		patternKey: vectorstore.ErrStoreUnavailable,
	}}
	eng := newTestEngine(t, nil, search, nil)

	_, err := eng.CheckConsistency(context.Background(), CheckConsistencyRequest{
		ProjectID: "webapp",
		Code:      "func x() {}",
	})
	require.Error(t, err)

	e := AsError(err, CodeConsistencyError)
	assert.Equal(t, CodeConsistencyError, e.Code)
	assert.NotEmpty(t, e.Suggestion, "backend faults carry a retry hint")
}
