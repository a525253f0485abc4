// Package store retains enriched analysis records in process memory.
package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/screenshotai/internal/models"
)

// RecentLimit caps how many records a listing query returns.
const RecentLimit = 50

// DefaultCapacity bounds retained records; inserting past it evicts the
// oldest record by creation time.
const DefaultCapacity = 200

// Store is a concurrency-safe keyed container of analysis records plus the
// request counters backing the status snapshot. Concurrent inserts of
// distinct IDs never block each other.
type Store struct {
	records  sync.Map // record ID -> *models.AnalysisRecord
	size     atomic.Int64
	capacity int

	requests atomic.Uint64

	lastMu      sync.RWMutex
	lastRequest time.Time
}

// New creates a Store. A capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Insert adds a record. It is idempotent per ID; re-inserting an existing ID
// is a no-op. When the store is over capacity the oldest record is evicted.
func (s *Store) Insert(rec *models.AnalysisRecord) {
	if _, loaded := s.records.LoadOrStore(rec.ID, rec); loaded {
		return
	}
	if s.size.Add(1) > int64(s.capacity) {
		s.evictOldest()
	}
}

// evictOldest drops the record with the earliest creation time. A scan is
// fine here: capacity keeps the map small.
func (s *Store) evictOldest() {
	var oldestID string
	var oldestAt time.Time
	s.records.Range(func(key, value any) bool {
		rec := value.(*models.AnalysisRecord)
		if oldestID == "" || rec.CreatedAt.Before(oldestAt) {
			oldestID = key.(string)
			oldestAt = rec.CreatedAt
		}
		return true
	})
	if oldestID != "" {
		if _, loaded := s.records.LoadAndDelete(oldestID); loaded {
			s.size.Add(-1)
		}
	}
}

// Get returns the record for an ID, if present.
func (s *Store) Get(id string) (*models.AnalysisRecord, bool) {
	value, ok := s.records.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*models.AnalysisRecord), true
}

// Recent returns up to limit records sorted by creation time, newest first.
// Limits outside (0, RecentLimit] are clamped to RecentLimit.
func (s *Store) Recent(limit int) []*models.AnalysisRecord {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}

	out := make([]*models.AnalysisRecord, 0, limit)
	s.records.Range(func(_, value any) bool {
		out = append(out, value.(*models.AnalysisRecord))
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count returns the number of retained records.
func (s *Store) Count() int {
	return int(s.size.Load())
}

// RecordRequest bumps the request counter and stamps the last-activity time,
// returning the new total.
func (s *Store) RecordRequest() uint64 {
	count := s.requests.Add(1)
	now := time.Now().UTC()
	s.lastMu.Lock()
	s.lastRequest = now
	s.lastMu.Unlock()
	return count
}

// TotalRequests returns the number of submissions seen so far.
func (s *Store) TotalRequests() uint64 {
	return s.requests.Load()
}

// LastRequest returns the time of the most recent submission, or nil if none
// has been seen yet.
func (s *Store) LastRequest() *time.Time {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.lastRequest.IsZero() {
		return nil
	}
	t := s.lastRequest
	return &t
}
