// Package vectorstore provides the multi-collection similarity searcher
// backed by Qdrant.
//
// One collection exists per memory type. Every search is scoped to the
// caller's project and to non-deleted records; the scope predicate is
// injected by the store itself so no call site can omit it. A search that
// spans several collections fans out one query per collection and merges the
// results by descending score, ties broken by the order collections were
// requested.
package vectorstore
