// Package memory implements the assistant's long-term semantic memory:
// a capacity-bounded vector index over embedded text fragments with
// cosine-similarity retrieval and a durable JSON snapshot.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrCorruptSnapshot   = errors.New("memory snapshot is corrupt")
	ErrDimensionMismatch = errors.New("vector dimension does not match store")
	ErrCapacityInvalid   = errors.New("store capacity must be positive")
)

// Record is a single stored memory. Records are owned by the Store and
// never mutated after insertion.
type Record struct {
	ID        int64     `json:"id"`
	Vector    []float32 `json:"vector"`
	Text      string    `json:"text"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult pairs a record with its similarity to a query.
type SearchResult struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// Stats describes the store's current contents.
type Stats struct {
	Count      int            `json:"count"`
	Capacity   int            `json:"capacity"`
	Categories map[string]int `json:"categories"`
}

// StoreConfig configures the vector store.
type StoreConfig struct {
	// Dimension every stored vector must have.
	Dimension int
	// Capacity bounds the record count; the oldest record is evicted
	// when an insert would exceed it.
	Capacity int
	// SnapshotPath is the durable snapshot file.
	SnapshotPath string
}

// Store is a flat cosine-similarity index. Similarity is cosine, fixed;
// ordering ties are broken most-recent-first. The orchestrator sequences
// all mutation, so a single mutex is sufficient.
type Store struct {
	mu      sync.RWMutex
	config  StoreConfig
	records []Record
	nextID  int64
	logger  zerolog.Logger
}

// NewStore creates an empty store.
func NewStore(logger zerolog.Logger, cfg StoreConfig) (*Store, error) {
	if cfg.Capacity <= 0 {
		return nil, ErrCapacityInvalid
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("store dimension must be positive, got %d", cfg.Dimension)
	}

	return &Store{
		config:  cfg,
		records: make([]Record, 0),
		nextID:  1,
		logger:  logger.With().Str("component", "memory.store").Logger(),
	}, nil
}

// Insert embeds nothing itself: it accepts a ready vector, wraps it into a
// Record and appends it. If the store is at capacity the single oldest
// record is evicted first; eviction and insertion happen under one lock so
// no caller ever observes an over-capacity state.
func (s *Store) Insert(vector []float32, text, category string) (int64, error) {
	if len(vector) != s.config.Dimension {
		return 0, fmt.Errorf("%w: got %d, want %d",
			ErrDimensionMismatch, len(vector), s.config.Dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) >= s.config.Capacity {
		evicted := s.records[0]
		s.records = s.records[1:]
		s.logger.Debug().
			Int64("id", evicted.ID).
			Str("category", evicted.Category).
			Msg("Evicted oldest record at capacity")
	}

	rec := Record{
		ID:        s.nextID,
		Vector:    vector,
		Text:      text,
		Category:  category,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.records = append(s.records, rec)

	return rec.ID, nil
}

// Query returns the topK most similar records to the query vector in
// descending similarity order. topK larger than the stored count returns
// everything; an empty store returns an empty slice.
func (s *Store) Query(vector []float32, topK int) ([]SearchResult, error) {
	if len(vector) != s.config.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrDimensionMismatch, len(vector), s.config.Dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		results = append(results, SearchResult{
			Record: rec,
			Score:  cosineSimilarity(vector, rec.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		// Ties break most-recent-first
		return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}

// Stats returns the store's current contents summary.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make(map[string]int)
	for _, rec := range s.records {
		categories[rec.Category]++
	}

	return Stats{
		Count:      len(s.records),
		Capacity:   s.config.Capacity,
		Categories: categories,
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes all records. The next assigned id keeps increasing so ids
// stay unique for the process lifetime.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// snapshot is the on-disk serialization of the store.
type snapshot struct {
	Dimension int      `json:"dimension"`
	NextID    int64    `json:"next_id"`
	Records   []Record `json:"records"`
}

// Save writes the index and records to the snapshot file atomically
// (temp file + rename) so a crash mid-write never corrupts the previous
// snapshot.
func (s *Store) Save() error {
	s.mu.RLock()
	snap := snapshot{
		Dimension: s.config.Dimension,
		NextID:    s.nextID,
		Records:   append([]Record(nil), s.records...),
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.config.SnapshotPath), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := s.config.SnapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.config.SnapshotPath); err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	s.logger.Debug().
		Int("records", len(snap.Records)).
		Str("path", s.config.SnapshotPath).
		Msg("Snapshot saved")

	return nil
}

// Load replaces the store's contents with the snapshot on disk. A missing
// file leaves the store empty and returns nil; a corrupt or mismatched file
// leaves the store empty and returns ErrCorruptSnapshot so the caller can
// log a warning. Neither case is fatal.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.config.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if snap.Dimension != s.config.Dimension {
		return fmt.Errorf("%w: snapshot dimension %d, store dimension %d",
			ErrCorruptSnapshot, snap.Dimension, s.config.Dimension)
	}
	for _, rec := range snap.Records {
		if len(rec.Vector) != snap.Dimension {
			return fmt.Errorf("%w: record %d has %d-dimensional vector",
				ErrCorruptSnapshot, rec.ID, len(rec.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := snap.Records
	// Snapshot may predate a capacity reduction
	if len(records) > s.config.Capacity {
		records = records[len(records)-s.config.Capacity:]
	}

	s.records = records
	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}

	s.logger.Info().
		Int("records", len(s.records)).
		Str("path", s.config.SnapshotPath).
		Msg("Snapshot loaded")

	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors compare as 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
