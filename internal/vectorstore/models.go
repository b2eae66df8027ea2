package vectorstore

import (
	"sort"
	"time"

	"github.com/fyrsmithlabs/knowledged/internal/memory"
)

// SearchHit is one ranked result of a similarity search.
//
// Hits are ephemeral, produced per query, never persisted.
type SearchHit struct {
	// ID is the memory identifier.
	ID string

	// Score is the similarity score (higher = more similar).
	Score float32

	// Content is the memory text content.
	Content string

	// Collection is the collection the hit came from.
	Collection string

	// Payload contains the memory's stored fields.
	Payload map[string]interface{}
}

// collectionHits pairs a collection's rank (the order it was requested in)
// with its results, for stable merging.
type collectionHits struct {
	order int
	hits  []SearchHit
}

// mergeHits flattens per-collection result sets into one sequence ordered by
// descending score. Ties are broken by the order collections were requested,
// then by each store's natural result order.
func mergeHits(sets []collectionHits, limit int) []SearchHit {
	total := 0
	for _, set := range sets {
		total += len(set.hits)
	}

	merged := make([]SearchHit, 0, total)
	for _, set := range sets {
		merged = append(merged, set.hits...)
	}

	// Stable sort preserves collection order then natural order for equal scores.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// memoryFromPayload rebuilds a Memory from a stored point payload.
func memoryFromPayload(id string, payload map[string]interface{}) *memory.Memory {
	m := &memory.Memory{
		ID:       id,
		Metadata: make(map[string]interface{}),
	}

	for k, v := range payload {
		switch k {
		case "content":
			if s, ok := v.(string); ok {
				m.Content = s
			}
		case "type":
			if s, ok := v.(string); ok {
				m.Type = memory.Type(s)
			}
		case "project_id":
			if s, ok := v.(string); ok {
				m.ProjectID = s
			}
		case "deleted":
			if b, ok := v.(bool); ok {
				m.Deleted = b
			}
		case "created_at":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					m.CreatedAt = ts
				}
			}
		case "updated_at":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339, s); err == nil {
					m.UpdatedAt = ts
				}
			}
		case "id":
			// Already carried as the point id.
		default:
			m.Metadata[k] = v
		}
	}

	return m
}
