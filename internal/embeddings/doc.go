// Package embeddings provides embedding generation via a TEI-compatible
// HTTP service.
//
// The service maps text to fixed-length float32 vectors. Batch requests are
// chunked to the configured maximum batch size and returned in input order.
// The package performs no caching and no retries of its own; callers that
// need idempotent vectors for identical text rely on provider-level
// determinism.
package embeddings
