package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTEIServer returns a test server answering /embed with one vector per
// input, where vector[0] encodes the input's arrival index.
func newTEIServer(t *testing.T, requestCount *int) *httptest.Server {
	t.Helper()
	seen := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		inputs, ok := req.Inputs.([]interface{})
		require.True(t, ok, "inputs should be a string array")

		if requestCount != nil {
			*requestCount++
		}

		vectors := make([][]float32, len(inputs))
		for i := range inputs {
			vectors[i] = []float32{float32(seen), 0.5, 0.25}
			seen++
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid", config: Config{BaseURL: "http://localhost:8080"}, wantErr: false},
		{name: "missing base URL", config: Config{}, wantErr: true},
		{name: "negative batch size", config: Config{BaseURL: "http://localhost:8080", MaxBatchSize: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestEmbedQuery(t *testing.T) {
	srv := newTEIServer(t, nil)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	vector, err := svc.EmbedQuery(context.Background(), "how is auth handled")
	require.NoError(t, err)
	assert.Len(t, vector, 3)
}

func TestEmbedQueryEmptyText(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:8080"})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedQueryEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[]]`)
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestEmbedQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestEmbedQueryAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[[0.1]]`)
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL, APIKey: "secret-key"})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestEmbedDocuments(t *testing.T) {
	srv := newTEIServer(t, nil)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	texts := []string{"first", "second", "third"}
	vectors, err := svc.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	// Arrival index in vector[0] proves input order survived.
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
}

func TestEmbedDocumentsBatching(t *testing.T) {
	requestCount := 0
	srv := newTEIServer(t, &requestCount)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL, MaxBatchSize: 2})
	require.NoError(t, err)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := svc.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	assert.Equal(t, 3, requestCount, "5 texts at batch size 2 should take 3 requests")

	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order across batches", i)
	}
}

func TestEmbedDocumentsEmpty(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:8080"})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedDocumentsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[0.1]]`)
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingFailed))
}
