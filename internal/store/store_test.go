package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/screenshotai/internal/models"
)

func record(id string, createdAt time.Time) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:        id,
		CreatedAt: createdAt,
		Source:    "iOS",
	}
}

func TestConcurrentInserts(t *testing.T) {
	const n = 200
	s := New(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.RecordRequest()
			s.Insert(record(uuid.NewString(), time.Now().Add(time.Duration(i)*time.Millisecond)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Count())
	assert.Equal(t, uint64(n), s.TotalRequests())
	require.NotNil(t, s.LastRequest())
}

func TestInsertIdempotentPerID(t *testing.T) {
	s := New(10)
	first := record("same-id", time.Now())
	s.Insert(first)
	s.Insert(record("same-id", time.Now().Add(time.Hour)))

	assert.Equal(t, 1, s.Count())
	got, ok := s.Get("same-id")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRecentOrderingAndLimit(t *testing.T) {
	s := New(100)
	base := time.Now()
	for i := 0; i < 80; i++ {
		s.Insert(record(fmt.Sprintf("rec-%03d", i), base.Add(time.Duration(i)*time.Second)))
	}

	recent := s.Recent(RecentLimit)
	require.Len(t, recent, RecentLimit)

	// Newest first: rec-079 down to rec-030.
	assert.Equal(t, "rec-079", recent[0].ID)
	assert.Equal(t, "rec-030", recent[len(recent)-1].ID)
	for i := 1; i < len(recent); i++ {
		assert.True(t, !recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := New(5)
	base := time.Now()
	for i := 0; i < 8; i++ {
		s.Insert(record(fmt.Sprintf("rec-%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 5, s.Count())
	_, ok := s.Get("rec-0")
	assert.False(t, ok, "oldest record should have been evicted")
	_, ok = s.Get("rec-7")
	assert.True(t, ok)
}

func TestLastRequestNilBeforeActivity(t *testing.T) {
	s := New(0)
	assert.Nil(t, s.LastRequest())
	assert.Equal(t, uint64(0), s.TotalRequests())
}
