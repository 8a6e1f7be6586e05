package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
)

var (
	// ErrNotFound is returned when no run matches the request.
	ErrNotFound = errors.New("no pipeline run found")
)

// MemoryStore is a concurrency-safe in-memory history of pipeline runs,
// ordered by insertion.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []pipeline.RunRecord

	// retention configuration
	maxHistory int           // max number of runs kept
	maxAge     time.Duration // optional max age, measured from StartedAt

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a run and enforces retention.
func (s *MemoryStore) Save(rec pipeline.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = s.runs[over:]
	}

	// Enforce retention by age. The newest run is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs)-1; i++ {
			if !s.runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.runs = s.runs[i:]
		}
	}
}

// Get returns the run with the given ID.
func (s *MemoryStore) Get(id string) (pipeline.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].ID == id {
			return s.runs[i], nil
		}
	}
	return pipeline.RunRecord{}, ErrNotFound
}

// Latest returns the most recently saved run.
func (s *MemoryStore) Latest() (pipeline.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return pipeline.RunRecord{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// Range returns all runs started between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]pipeline.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []pipeline.RunRecord
	for _, rec := range s.runs {
		if !rec.StartedAt.Before(from) && !rec.StartedAt.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
