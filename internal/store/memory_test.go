package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-forecast-etl/internal/pipeline"
)

func TestMemoryStoreLatestAndGet(t *testing.T) {
	s := NewMemoryStore(10, 0)

	if _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	base := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	s.Save(pipeline.RunRecord{ID: "a", StartedAt: base})
	s.Save(pipeline.RunRecord{ID: "b", StartedAt: base.Add(6 * time.Hour)})

	latest, err := s.Latest()
	if err != nil || latest.ID != "b" {
		t.Fatalf("expected latest b, got %+v (%v)", latest, err)
	}

	rec, err := s.Get("a")
	if err != nil || rec.ID != "a" {
		t.Fatalf("expected run a, got %+v (%v)", rec, err)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		s.Save(pipeline.RunRecord{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected oldest run to be evicted, got %v", err)
	}
	if _, err := s.Get("c"); err != nil {
		t.Fatalf("expected newest run to be kept: %v", err)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2024, 10, 8, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, 24*time.Hour)
	s.now = func() time.Time { return now }

	s.Save(pipeline.RunRecord{ID: "old", StartedAt: now.Add(-48 * time.Hour)})
	s.Save(pipeline.RunRecord{ID: "new", StartedAt: now.Add(-time.Hour)})

	if _, err := s.Get("old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old run to be evicted, got %v", err)
	}
	if _, err := s.Get("new"); err != nil {
		t.Fatalf("expected recent run to be kept: %v", err)
	}
}

func TestMemoryStoreRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		s.Save(pipeline.RunRecord{ID: id, StartedAt: base.Add(time.Duration(i) * 6 * time.Hour)})
	}

	got, err := s.Range(base.Add(6*time.Hour), base.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected range result: %+v", got)
	}

	if _, err := s.Range(base.Add(48*time.Hour), base.Add(72*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
