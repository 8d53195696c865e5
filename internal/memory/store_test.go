package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, dim, capacity int) *Store {
	t.Helper()
	s, err := NewStore(zerolog.Nop(), StoreConfig{
		Dimension:    dim,
		Capacity:     capacity,
		SnapshotPath: filepath.Join(t.TempDir(), "memory.json"),
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func unitVec(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func TestNewStore_RejectsInvalidConfig(t *testing.T) {
	if _, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 4, Capacity: 0}); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 0, Capacity: 10}); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestStore_Insert_AssignsMonotonicIDs(t *testing.T) {
	s := newTestStore(t, 4, 10)

	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.Insert(unitVec(4, i), "text", "fact")
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if id <= last {
			t.Errorf("expected monotonic ids, got %d after %d", id, last)
		}
		last = id
	}
}

func TestStore_Insert_RejectsWrongDimension(t *testing.T) {
	s := newTestStore(t, 4, 10)

	if _, err := s.Insert(make([]float32, 3), "text", "fact"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestStore_EvictsOldestAtCapacity(t *testing.T) {
	const capacity = 3
	s := newTestStore(t, 4, capacity)

	var ids []int64
	for i := 0; i < 7; i++ {
		id, err := s.Insert(unitVec(4, i), "text", "fact")
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		ids = append(ids, id)
	}

	stats := s.Stats()
	if stats.Count != capacity {
		t.Fatalf("expected count=%d, got %d", capacity, stats.Count)
	}

	// Retained records must be the most recently inserted ones
	results, err := s.Query(unitVec(4, 0), capacity)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := map[int64]bool{ids[4]: true, ids[5]: true, ids[6]: true}
	for _, r := range results {
		if !want[r.Record.ID] {
			t.Errorf("unexpected retained record id %d", r.Record.ID)
		}
	}
}

func TestStore_Query_DescendingSimilarity(t *testing.T) {
	s := newTestStore(t, 3, 10)

	// Orthogonal, aligned, and partially aligned vectors
	mustInsert(t, s, []float32{0, 1, 0}, "orthogonal")
	mustInsert(t, s, []float32{1, 0, 0}, "aligned")
	mustInsert(t, s, []float32{1, 1, 0}, "partial")

	results, err := s.Query([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Record.Text != "aligned" {
		t.Errorf("expected 'aligned' first, got %q", results[0].Record.Text)
	}
	if results[1].Record.Text != "partial" {
		t.Errorf("expected 'partial' second, got %q", results[1].Record.Text)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending order at %d", i)
		}
	}
}

func TestStore_Query_TiesBreakMostRecentFirst(t *testing.T) {
	s := newTestStore(t, 3, 10)

	first := mustInsert(t, s, []float32{1, 0, 0}, "older")
	second := mustInsert(t, s, []float32{1, 0, 0}, "newer")

	results, err := s.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if results[0].Record.ID != second || results[1].Record.ID != first {
		t.Errorf("expected newest first on tie, got ids %d, %d",
			results[0].Record.ID, results[1].Record.ID)
	}
}

func TestStore_Query_TopKLargerThanCount(t *testing.T) {
	s := newTestStore(t, 3, 10)

	mustInsert(t, s, []float32{1, 0, 0}, "a")
	mustInsert(t, s, []float32{0, 1, 0}, "b")

	results, err := s.Query([]float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected all 2 records, got %d", len(results))
	}

	seen := map[int64]int{}
	for _, r := range results {
		seen[r.Record.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("record %d returned %d times", id, n)
		}
	}
}

func TestStore_Query_EmptyStore(t *testing.T) {
	s := newTestStore(t, 3, 10)

	results, err := s.Query([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("query on empty store must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s1, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 3, Capacity: 10, SnapshotPath: path})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	mustInsert(t, s1, []float32{1, 0, 0}, "alpha")
	mustInsert(t, s1, []float32{0.9, 0.1, 0}, "beta")
	mustInsert(t, s1, []float32{0, 1, 0}, "gamma")

	query := []float32{1, 0, 0}
	before, err := s1.Query(query, 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if err := s1.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	s2, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 3, Capacity: 10, SnapshotPath: path})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s2.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	after, err := s2.Query(query, 3)
	if err != nil {
		t.Fatalf("query after reload failed: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count changed across reload: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Record.ID != after[i].Record.ID {
			t.Errorf("result %d: id %d before, %d after reload",
				i, before[i].Record.ID, after[i].Record.ID)
		}
	}

	// Ids keep increasing after a reload
	id, err := s2.Insert([]float32{0, 0, 1}, "delta", "fact")
	if err != nil {
		t.Fatalf("insert after reload failed: %v", err)
	}
	if id != 4 {
		t.Errorf("expected next id 4 after reload, got %d", id)
	}
}

func TestStore_Load_MissingFile(t *testing.T) {
	s := newTestStore(t, 3, 10)
	if err := s.Load(); err != nil {
		t.Errorf("missing snapshot must not error, got: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d records", s.Len())
	}
}

func TestStore_Load_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 3, Capacity: 10, SnapshotPath: path})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := s.Load(); err == nil {
		t.Error("expected corrupt snapshot error")
	}
	if s.Len() != 0 {
		t.Errorf("store must stay empty after corrupt load, got %d", s.Len())
	}

	// Store stays usable
	if _, err := s.Insert([]float32{1, 0, 0}, "text", "fact"); err != nil {
		t.Errorf("insert after corrupt load failed: %v", err)
	}
}

func TestStore_Load_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")

	s1, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 3, Capacity: 10, SnapshotPath: path})
	if err != nil {
		t.Fatal(err)
	}
	mustInsert(t, s1, []float32{1, 0, 0}, "a")
	if err := s1.Save(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStore(zerolog.Nop(), StoreConfig{Dimension: 8, Capacity: 10, SnapshotPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Load(); err == nil {
		t.Error("expected error loading snapshot with different dimension")
	}
	if s2.Len() != 0 {
		t.Errorf("store must stay empty on dimension mismatch, got %d", s2.Len())
	}
}

func TestStore_Stats_Categories(t *testing.T) {
	s := newTestStore(t, 3, 10)

	mustInsertCat(t, s, []float32{1, 0, 0}, "a", "fact")
	mustInsertCat(t, s, []float32{0, 1, 0}, "b", "fact")
	mustInsertCat(t, s, []float32{0, 0, 1}, "c", "preference")

	stats := s.Stats()
	if stats.Count != 3 {
		t.Errorf("expected count 3, got %d", stats.Count)
	}
	if stats.Capacity != 10 {
		t.Errorf("expected capacity 10, got %d", stats.Capacity)
	}
	if stats.Categories["fact"] != 2 || stats.Categories["preference"] != 1 {
		t.Errorf("unexpected category counts: %v", stats.Categories)
	}
}

func mustInsert(t *testing.T, s *Store, vec []float32, text string) int64 {
	t.Helper()
	return mustInsertCat(t, s, vec, text, "fact")
}

func mustInsertCat(t *testing.T, s *Store, vec []float32, text, category string) int64 {
	t.Helper()
	id, err := s.Insert(vec, text, category)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return id
}
