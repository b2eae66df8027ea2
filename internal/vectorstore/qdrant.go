package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("knowledged.vectorstore.qdrant")

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrStoreUnavailable indicates every targeted collection errored.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrPartialSearch indicates some targeted collections errored while
	// others returned. Callers decide whether to proceed with the partial
	// result; the store never degrades silently.
	ErrPartialSearch = errors.New("partial search failure")
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against security rules.
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// VectorSize is the dimensionality of embeddings.
	// MUST match the embedding provider's output dimensions.
	VectorSize uint64

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// QdrantStore searches memory collections over Qdrant's native gRPC client.
//
// The store is read-only over memories: indexing and CRUD belong to a
// separate path. Every query carries the project scope predicate.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantStore creates a QdrantStore and verifies connectivity.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client: client,
		config: config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	return store, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// healthCheck performs a health check on the Qdrant connection.
func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	_, err := s.client.HealthCheck(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}

	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// SearchCollections issues one logical similarity search spanning the given
// collections, scoped to projectID and to non-deleted records.
//
// Each collection is queried concurrently with the same vector and limit; the
// merged result is ordered by descending score with ties broken by the order
// collections were given, then by the store's natural result order.
//
// If every collection errors the call fails with ErrStoreUnavailable. If only
// some error, the call fails with ErrPartialSearch carrying the failed
// collection names, so the caller can decide whether to proceed.
func (s *QdrantStore) SearchCollections(ctx context.Context, collections []string, vector []float32, limit int, projectID string) ([]SearchHit, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.SearchCollections")
	defer span.End()

	span.SetAttributes(
		attribute.StringSlice("collections", collections),
		attribute.Int("limit", limit),
	)

	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: no collections given", ErrInvalidConfig)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	for _, name := range collections {
		if err := ValidateCollectionName(name); err != nil {
			return nil, err
		}
	}

	filter, err := ApplyScopeFilter(nil, projectID)
	if err != nil {
		return nil, err
	}

	sets := make([]collectionHits, len(collections))
	failures := make([]error, len(collections))

	// Fan out one query per collection. Branch errors are collected, not
	// returned from the group, so one failing collection never cancels or
	// hides a sibling's result.
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range collections {
		g.Go(func() error {
			hits, err := s.searchOne(gctx, name, vector, limit, filter)
			if err != nil {
				failures[i] = fmt.Errorf("collection %s: %w", name, err)
				return nil
			}
			sets[i] = collectionHits{order: i, hits: hits}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []string
	var errs []error
	for i, ferr := range failures {
		if ferr != nil {
			failed = append(failed, collections[i])
			errs = append(errs, ferr)
		}
	}

	switch {
	case len(failed) == len(collections):
		joined := errors.Join(errs...)
		span.RecordError(joined)
		span.SetStatus(codes.Error, "all collections failed")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, joined)
	case len(failed) > 0:
		joined := errors.Join(errs...)
		span.RecordError(joined)
		span.SetStatus(codes.Error, "some collections failed")
		return nil, fmt.Errorf("%w: collections [%s]: %v", ErrPartialSearch, strings.Join(failed, ", "), joined)
	}

	merged := mergeHits(sets, 0)
	span.SetAttributes(attribute.Int("results_count", len(merged)))
	span.SetStatus(codes.Ok, "success")
	return merged, nil
}

// searchOne queries a single collection.
func (s *QdrantStore) searchOne(ctx context.Context, collection string, vector []float32, limit int, filter map[string]interface{}) ([]SearchHit, error) {
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(filter),
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, len(results))
	for i, point := range results {
		hits[i] = hitFromPoint(point, collection)
	}
	return hits, nil
}

// GetByID fetches a single memory by id from a collection, scoped to the
// project and to non-deleted records. A miss returns (nil, nil).
func (s *QdrantStore) GetByID(ctx context.Context, collection, id, projectID string) (*memory.Memory, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("memory_id", id),
	)

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("id cannot be empty")
	}

	filter, err := ApplyScopeFilter(map[string]interface{}{"id": id}, projectID)
	if err != nil {
		return nil, err
	}

	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint32(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: fetching %s from %s: %v", ErrStoreUnavailable, id, collection, err)
	}

	if len(points) == 0 {
		span.SetStatus(codes.Ok, "not found")
		return nil, nil
	}

	payload := payloadToMap(points[0].Payload)
	span.SetStatus(codes.Ok, "success")
	return memoryFromPayload(id, payload), nil
}

// buildFilter converts an equality-predicate map into a Qdrant filter.
func buildFilter(filters map[string]interface{}) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filters))
	for key, value := range filters {
		var match *qdrant.Match
		switch v := value.(type) {
		case string:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}
		case bool:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}
		case int:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
		case int64:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}
		default:
			continue
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   key,
					Match: match,
				},
			},
		})
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

// hitFromPoint converts a scored point into a SearchHit.
func hitFromPoint(point *qdrant.ScoredPoint, collection string) SearchHit {
	hit := SearchHit{
		Score:      point.Score,
		Collection: collection,
	}

	if point.Payload != nil {
		hit.Payload = payloadToMap(point.Payload)
		if content, ok := hit.Payload["content"].(string); ok {
			hit.Content = content
		}
		if id, ok := hit.Payload["id"].(string); ok {
			hit.ID = id
		}
	}

	return hit
}

// payloadToMap converts a Qdrant payload to plain Go values.
func payloadToMap(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			out[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = val.BoolValue
		}
	}
	return out
}
