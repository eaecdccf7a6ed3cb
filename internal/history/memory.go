package history

import (
	"context"
	"sort"
	"sync"

	"github.com/derivscope/derivscope/internal/domain"
)

// MemoryStore keeps records in memory, optionally mirroring them to the
// JSON tree. It backs dry runs and tests; the semantics match the Postgres
// store, append-only included.
type MemoryStore struct {
	mu      sync.Mutex
	jsonDir string
	nextID  int64
	recs    []Record
}

// NewMemoryStore builds an in-memory store. An empty jsonDir disables the
// file mirror.
func NewMemoryStore(jsonDir string) *MemoryStore {
	return &MemoryStore{jsonDir: jsonDir, nextID: 1}
}

// Record appends the record and mirrors it if configured.
func (s *MemoryStore) Record(_ context.Context, sig *domain.Signal, snap *domain.Snapshot, extras any) (int64, error) {
	rec, err := buildRecord(sig, snap, extras)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if s.jsonDir != "" {
		if err := writeMirror(s.jsonDir, rec); err != nil {
			return 0, err
		}
	}
	s.recs = append(s.recs, *rec)
	return rec.ID, nil
}

// ByConfig returns the newest-first records for one parameter fingerprint.
func (s *MemoryStore) ByConfig(_ context.Context, configHash string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.recs {
		if r.ConfigHash == configHash {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats aggregates the records for one parameter fingerprint.
func (s *MemoryStore) Stats(_ context.Context, configHash string) (*ConfigStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &ConfigStats{ConfigHash: configHash}
	var confSum float64
	for _, r := range s.recs {
		if r.ConfigHash != configHash {
			continue
		}
		stats.Count++
		confSum += r.Confidence
		if r.Strength == string(domain.StrengthStrong) {
			stats.StrongCount++
		}
		switch r.Direction {
		case string(domain.DirectionBullish):
			stats.BullishCount++
		case string(domain.DirectionBearish):
			stats.BearishCount++
		}
	}
	if stats.Count > 0 {
		stats.AvgConfidence = confSum / float64(stats.Count)
	}
	return stats, nil
}

// Count returns the total number of records.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.recs)), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
