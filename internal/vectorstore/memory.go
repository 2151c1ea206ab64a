package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/tome-labs/tome/internal/domain"
)

// MemoryStore keeps entries in insertion order behind a mutex. It backs
// tests and single-process deployments that do not want Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	dimensions int
	entries    []Entry
	index      map[string]int
}

// NewMemoryStore returns an empty in-memory store. dimensions of zero
// disables dimension checking.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{
		dimensions: dimensions,
		index:      make(map[string]int),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if s.dimensions > 0 && len(e.Embedding) != s.dimensions {
			return domain.ErrDimensionMismatch
		}
		if pos, ok := s.index[e.ID]; ok {
			// replace in place, preserving insertion order
			s.entries[pos] = e
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Hit, error) {
	if topK < 1 {
		return nil, domain.ErrInvalidTopK
	}
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]Hit, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.DocumentID != "" && e.DocumentID != filter.DocumentID {
			continue
		}
		hits = append(hits, Hit{
			ID:         e.ID,
			DocumentID: e.DocumentID,
			Content:    e.Content,
			Source:     e.Source,
			Score:      roundScore(cosineSimilarity(vector, e.Embedding)),
			Metadata:   e.Metadata,
		})
	}

	// stable sort keeps insertion order for equal scores
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *MemoryStore) DeleteByDocument(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.DocumentID != docID {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	s.index = make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		s.index[e.ID] = i
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func roundScore(v float32) float32 {
	return float32(math.Round(float64(v)*10000) / 10000)
}
