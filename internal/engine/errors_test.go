package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/knowledged/internal/embeddings"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

func TestErrorInterface(t *testing.T) {
	e := &Error{Code: CodeNotFound, Message: "requirement req-1 not found"}
	assert.Equal(t, "NOT_FOUND: requirement req-1 not found", e.Error())
}

func TestAsErrorPassthrough(t *testing.T) {
	original := notFound("requirement %s not found", "req-1")

	e := AsError(original, CodeTraceError)
	assert.Same(t, original, e, "tagged errors pass through unchanged")
}

func TestAsErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("pipeline step: %w", validationError("code is required"))

	e := AsError(wrapped, CodeConsistencyError)
	assert.Equal(t, CodeValidationError, e.Code)
}

func TestAsErrorFallback(t *testing.T) {
	e := AsError(errors.New("something untagged broke"), CodeContextError)

	assert.Equal(t, CodeContextError, e.Code)
	assert.Equal(t, "something untagged broke", e.Message)
	assert.Empty(t, e.Suggestion)
}

func TestOperationErrorRetrySuggestion(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRetry   bool
	}{
		{
			name:      "embedding failure",
			err:       fmt.Errorf("embedding query: %w", embeddings.ErrEmbeddingFailed),
			wantRetry: true,
		},
		{
			name:      "store unavailable",
			err:       fmt.Errorf("searching: %w", vectorstore.ErrStoreUnavailable),
			wantRetry: true,
		},
		{
			name:      "partial search",
			err:       fmt.Errorf("searching: %w", vectorstore.ErrPartialSearch),
			wantRetry: true,
		},
		{
			name:      "caller fault",
			err:       errors.New("limit must be positive"),
			wantRetry: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := operationError(CodeConsistencyError, tt.err)
			require.Equal(t, CodeConsistencyError, e.Code)
			if tt.wantRetry {
				assert.Equal(t, retrySuggestion, e.Suggestion)
			} else {
				assert.Empty(t, e.Suggestion)
			}
		})
	}
}
